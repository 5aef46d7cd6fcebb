package rpc

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/types/known/timestamppb"

	"smartboard-client/internal/model"
)

// rawMsg wraps raw protobuf bytes.
type rawMsg struct{ data []byte }

// rawCodec passes bytes through without marshal/unmarshal.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	return v.(*rawMsg).data, nil
}
func (rawCodec) Unmarshal(data []byte, v any) error {
	m := v.(*rawMsg)
	m.data = append([]byte(nil), data...)
	return nil
}
func (rawCodec) Name() string { return "raw" }

// Field numbers of notification.v1:
//
//	UnreadCountResponse { int64 count = 1; }
//	ListNotificationsResponse { repeated Notification notifications = 1; }
//	Notification { string id = 1; string title = 2; string message = 3;
//	  google.protobuf.Timestamp created_at = 4; bool read = 5; string meta_json = 6; }

func parseCount(b []byte) (int, error) {
	var count int
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		b = b[n:]
		if num == 1 && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			count = int(int64(v))
			b = b[n:]
		} else {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return count, nil
}

func parseNotifications(b []byte) ([]model.NotificationItem, error) {
	var out []model.NotificationItem
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			item, err := parseNotification(v)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
			b = b[n:]
		} else {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return out, nil
}

func parseNotification(b []byte) (model.NotificationItem, error) {
	var it model.NotificationItem
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return it, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == 5 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return it, protowire.ParseError(n)
			}
			it.Read = protowire.DecodeBool(v)
			b = b[n:]
		case num >= 1 && num <= 6 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return it, protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case 1:
				it.ID = model.ID(v)
			case 2:
				it.Title = string(v)
			case 3:
				it.Message = string(v)
			case 4:
				ts, err := parseTimestamp(v)
				if err != nil {
					return it, err
				}
				it.CreatedAt = ts.AsTime().In(time.Local)
			case 6:
				// meta decodes leniently; a bad payload is an empty meta
				_ = it.Meta.UnmarshalJSON(v)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return it, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return it, nil
}

func parseTimestamp(b []byte) (*timestamppb.Timestamp, error) {
	ts := &timestamppb.Timestamp{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		if (num == 1 || num == 2) && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			if num == 1 {
				ts.Seconds = int64(v)
			} else {
				ts.Nanos = int32(v)
			}
			b = b[n:]
		} else {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return ts, nil
}
