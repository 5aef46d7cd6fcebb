package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/types/known/timestamppb"

	"smartboard-client/internal/model"
)

func appendTimestamp(out []byte, num protowire.Number, ts *timestamppb.Timestamp) []byte {
	var inner []byte
	if ts.Seconds != 0 {
		inner = protowire.AppendTag(inner, 1, protowire.VarintType)
		inner = protowire.AppendVarint(inner, uint64(ts.Seconds))
	}
	if ts.Nanos != 0 {
		inner = protowire.AppendTag(inner, 2, protowire.VarintType)
		inner = protowire.AppendVarint(inner, uint64(ts.Nanos))
	}
	out = protowire.AppendTag(out, num, protowire.BytesType)
	return protowire.AppendBytes(out, inner)
}

func appendNotification(out []byte, num protowire.Number, it model.NotificationItem) ([]byte, error) {
	var inner []byte
	inner = protowire.AppendTag(inner, 1, protowire.BytesType)
	inner = protowire.AppendString(inner, string(it.ID))
	inner = protowire.AppendTag(inner, 2, protowire.BytesType)
	inner = protowire.AppendString(inner, it.Title)
	inner = protowire.AppendTag(inner, 3, protowire.BytesType)
	inner = protowire.AppendString(inner, it.Message)
	if !it.CreatedAt.IsZero() {
		inner = appendTimestamp(inner, 4, timestamppb.New(it.CreatedAt))
	}
	inner = protowire.AppendTag(inner, 5, protowire.VarintType)
	inner = protowire.AppendVarint(inner, protowire.EncodeBool(it.Read))
	if !it.Meta.IsZero() {
		meta, err := it.Meta.MarshalJSON()
		if err != nil {
			return nil, err
		}
		inner = protowire.AppendTag(inner, 6, protowire.BytesType)
		inner = protowire.AppendBytes(inner, meta)
	}

	out = protowire.AppendTag(out, num, protowire.BytesType)
	return protowire.AppendBytes(out, inner), nil
}

// wrap frames inner as one ListNotificationsResponse entry.
func wrap(inner []byte) []byte {
	out := protowire.AppendTag(nil, 1, protowire.BytesType)
	return protowire.AppendBytes(out, inner)
}

func TestParseNotificationsRejectsTruncatedFrames(t *testing.T) {
	shortTitle := protowire.AppendTag(nil, 2, protowire.BytesType)
	shortTitle = protowire.AppendVarint(shortTitle, 10)
	shortTitle = append(shortTitle, "ab"...)

	badRead := protowire.AppendTag(nil, 5, protowire.VarintType)
	badRead = append(badRead, 0x80)

	badSeconds := protowire.AppendTag(nil, 1, protowire.VarintType)
	badSeconds = append(badSeconds, 0x80)
	badTime := protowire.AppendTag(nil, 4, protowire.BytesType)
	badTime = protowire.AppendBytes(badTime, badSeconds)

	tests := []struct {
		name  string
		frame []byte
	}{
		{"string longer than frame", wrap(shortTitle)},
		{"truncated varint", wrap(badRead)},
		{"truncated timestamp", wrap(badTime)},
		{"outer length past end", append(protowire.AppendTag(nil, 1, protowire.BytesType), 0x05, 0x01)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				_, err := parseNotifications(tt.frame)
				assert.Error(t, err)
			})
		})
	}
}
