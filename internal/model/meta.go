package model

import (
	"bytes"
	"encoding/json"
	"strconv"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Meta is the opaque structured payload attached to a notification. The
// backend sends it either as a JSON object or as a JSON-encoded string;
// anything that is not an object decodes to an empty Meta.
type Meta struct {
	fields *structpb.Struct
}

func NewMeta(m map[string]any) (Meta, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return Meta{}, err
	}
	return Meta{fields: s}, nil
}

func (m Meta) IsZero() bool {
	return m.fields == nil || len(m.fields.GetFields()) == 0
}

// String returns the value under key rendered as a string. Numbers are
// rendered without a trailing ".0" so numeric ids round-trip.
func (m Meta) String(key string) (string, bool) {
	if m.fields == nil {
		return "", false
	}
	v, ok := m.fields.GetFields()[key]
	if !ok {
		return "", false
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue, k.StringValue != ""
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64), true
	default:
		return "", false
	}
}

func (m Meta) AsMap() map[string]any {
	if m.fields == nil {
		return nil
	}
	return m.fields.AsMap()
}

func (m Meta) MarshalJSON() ([]byte, error) {
	if m.fields == nil {
		return []byte("null"), nil
	}
	return protojson.Marshal(m.fields)
}

func (m *Meta) UnmarshalJSON(b []byte) error {
	*m = Meta{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = bytes.TrimSpace([]byte(s))
	}
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil
	}
	m.fields = s
	return nil
}
