// Package notification holds the in-app notification bell and the external
// alert targets (shoutrrr URLs and MQTT).
package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies a notification.
type Type string

const (
	TypeInfo  Type = "info"
	TypeAlert Type = "alert"
)

// Priority of a notification.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityCritical Priority = "critical"
)

// Notification is one bell entry.
type Notification struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Priority  Priority  `json:"priority"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// NewNotification creates an unread notification stamped now.
func NewNotification(t Type, p Priority, title, message string) *Notification {
	return &Notification{
		ID:        uuid.NewString(),
		Type:      t,
		Priority:  p,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}
}
