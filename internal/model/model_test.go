package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleKnown(t *testing.T) {
	for _, r := range []Role{RoleStudent, RoleOwner, RoleAdmin} {
		if !r.Known() {
			t.Errorf("expected %s to be known", r)
		}
	}
	for _, r := range []Role{"", "GUEST", "student"} {
		if r.Known() {
			t.Errorf("expected %q to be unknown", r)
		}
	}
}

func TestUserNumericID(t *testing.T) {
	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"id":42,"email":"a@x.com","role":"OWNER"}`), &u))
	assert.Equal(t, ID("42"), u.ID)
	assert.Equal(t, RoleOwner, u.Role)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"u-1","email":"a@x.com","role":"STUDENT"}`), &u))
	assert.Equal(t, ID("u-1"), u.ID)
}

func TestNotificationDecode(t *testing.T) {
	raw := `[
		{"notificationId":"n1","title":"Booked","message":"m","createdAt":"2025-03-01T10:30:00","read":false,
		 "meta":"{\"bookingId\":17}"},
		{"id":9,"title":"Visit","message":"m","createdAt":"2025-03-01T10:30:00Z","read":true,
		 "meta":{"appointmentId":"ap-3"}},
		{"notificationId":"n3","title":"Plain","message":"m","createdAt":"","read":false,"meta":"not json"}
	]`
	var items []NotificationItem
	require.NoError(t, json.Unmarshal([]byte(raw), &items))
	require.Len(t, items, 3)

	assert.Equal(t, ID("n1"), items[0].ID)
	assert.False(t, items[0].Read)
	id, ok := items[0].Meta.String("bookingId")
	assert.True(t, ok)
	assert.Equal(t, "17", id)
	assert.Equal(t, 10, items[0].CreatedAt.Hour())

	assert.Equal(t, ID("9"), items[1].ID)
	assert.True(t, items[1].Read)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), items[1].CreatedAt)
	apt, ok := items[1].Meta.String("appointmentId")
	assert.True(t, ok)
	assert.Equal(t, "ap-3", apt)

	assert.True(t, items[2].Meta.IsZero())
	assert.True(t, items[2].CreatedAt.IsZero())
}

func TestNotificationEncodeKeepsID(t *testing.T) {
	meta, err := NewMeta(map[string]any{"bookingId": "b-1"})
	require.NoError(t, err)
	in := NotificationItem{ID: "n1", Title: "t", Read: true, Meta: meta}

	b, err := json.Marshal(in)
	require.NoError(t, err)

	var out NotificationItem
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in.ID, out.ID)
	assert.True(t, out.Read)
	v, _ := out.Meta.String("bookingId")
	assert.Equal(t, "b-1", v)
}
