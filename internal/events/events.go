package events

import (
	"time"

	"portfolio-dashboard/internal/models"
)

// EventType names a published event
type EventType string

const (
	EventNotificationCreated EventType = "notification.created"
)

// BaseEvent represents the common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	// Owner is the backend user id, never the token itself
	Owner   string `json:"owner"`
	Source  string `json:"source"`
	Version string `json:"version"`
}

// NotificationEvent announces a notification seen for the first time
type NotificationEvent struct {
	BaseEvent
	Notification models.Notification `json:"notification"`
}
