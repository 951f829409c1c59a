package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// NotificationKind classifies a notification by its message text
type NotificationKind string

const (
	KindStatusUpdate NotificationKind = "Status Update"
	KindNewComment   NotificationKind = "New Comment"
	KindNewIdea      NotificationKind = "New Idea"
)

// Notification is one entry of GET /notifications/user/:id
type Notification struct {
	ID        int     `json:"id" yaml:"id"`
	UserID    int     `json:"user_id" yaml:"user_id"`
	IdeaID    int     `json:"idea_id" yaml:"idea_id"`
	Message   string  `json:"message" yaml:"message"`
	IsRead    IntBool `json:"is_read" yaml:"is_read"`
	CreatedAt string  `json:"created_at" yaml:"created_at"`
}

// Kind derives the notification type from the message
func (n *Notification) Kind() NotificationKind {
	switch {
	case strings.Contains(n.Message, "updated to"):
		return KindStatusUpdate
	case strings.Contains(n.Message, "commented on"):
		return KindNewComment
	default:
		return KindNewIdea
	}
}

// Read reports whether the notification has been marked read
func (n *Notification) Read() bool {
	return bool(n.IsRead)
}

// MarkRead flips the local read flag
func (n *Notification) MarkRead() {
	n.IsRead = true
}

// CreatedTime parses CreatedAt
func (n *Notification) CreatedTime() time.Time {
	return ParseTimestamp(n.CreatedAt)
}

// UnreadIDs returns the ids of unread notifications in list order
func UnreadIDs(notifications []Notification) []int {
	ids := make([]int, 0)
	for i := range notifications {
		if !notifications[i].Read() {
			ids = append(ids, notifications[i].ID)
		}
	}
	return ids
}

// IntBool reads the backend's 0/1 integer flag as well as JSON booleans, and writes 0/1
type IntBool bool

// UnmarshalJSON accepts true/false, 0/1 and "0"/"1"
func (b *IntBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true", "1", `"1"`:
		*b = true
		return nil
	case "false", "0", `"0"`, "null":
		*b = false
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*b = n != 0
	return nil
}

// MarshalJSON writes the flag as 0/1
func (b IntBool) MarshalJSON() ([]byte, error) {
	if b {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}
