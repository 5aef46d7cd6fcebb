package model

import (
	"encoding/json"
	"strings"
	"time"
)

type NotificationItem struct {
	ID        ID
	Title     string
	Message   string
	CreatedAt time.Time
	Read      bool
	Meta      Meta
}

type notificationWire struct {
	NotificationID ID     `json:"notificationId"`
	ID             ID     `json:"id,omitempty"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	CreatedAt      string `json:"createdAt"`
	Read           bool   `json:"read"`
	Meta           Meta   `json:"meta"`
}

// zone-less layouts are what the backend emits for LocalDateTime columns
var createdAtLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (n *NotificationItem) UnmarshalJSON(b []byte) error {
	var w notificationWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	id := w.NotificationID
	if id == "" {
		id = w.ID
	}
	*n = NotificationItem{
		ID:        id,
		Title:     w.Title,
		Message:   w.Message,
		CreatedAt: parseCreatedAt(w.CreatedAt),
		Read:      w.Read,
		Meta:      w.Meta,
	}
	return nil
}

func (n NotificationItem) MarshalJSON() ([]byte, error) {
	w := notificationWire{
		NotificationID: n.ID,
		Title:          n.Title,
		Message:        n.Message,
		Read:           n.Read,
		Meta:           n.Meta,
	}
	if !n.CreatedAt.IsZero() {
		w.CreatedAt = n.CreatedAt.Format(time.RFC3339Nano)
	}
	return json.Marshal(w)
}

func parseCreatedAt(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
