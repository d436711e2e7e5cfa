package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"portfolio-dashboard/internal/models"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	eventSource  = "portfolio-dashboard"
	eventVersion = "1.0"
)

// Sink is where encoded events go. *Client satisfies it.
type Sink interface {
	Publish(ctx context.Context, subject string, data []byte, msgID string) error
}

// Recorder receives publish outcomes
type Recorder interface {
	RecordNotificationsPublished(count int, err error)
}

// NotificationPublisher turns notifications into events on
// "<subject>.<owner>.<type>"
type NotificationPublisher struct {
	sink     Sink
	subject  string
	recorder Recorder
	now      func() time.Time
	newID    func() string
}

// NewNotificationPublisher creates a publisher on subject
func NewNotificationPublisher(sink Sink, subject string) *NotificationPublisher {
	return &NotificationPublisher{
		sink:    sink,
		subject: strings.TrimSuffix(subject, "."),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// WithRecorder reports publish outcomes to r
func (p *NotificationPublisher) WithRecorder(r Recorder) *NotificationPublisher {
	p.recorder = r
	return p
}

// Subject returns the subject a notification of owner is published on
func (p *NotificationPublisher) Subject(owner string, n models.Notification) string {
	return fmt.Sprintf("%s.%s.%s", p.subject, owner, n.Type)
}

// PublishNotifications publishes one event per notification. Every
// notification is attempted; failures are aggregated. The JetStream message
// id is derived from owner and notification id so redeliveries are dropped
// by the stream's duplicate window.
func (p *NotificationPublisher) PublishNotifications(ctx context.Context, owner string, notifications []models.Notification) error {
	var (
		result    *multierror.Error
		published int
	)
	for _, n := range notifications {
		event := NotificationEvent{
			BaseEvent: BaseEvent{
				EventID:   p.newID(),
				EventType: EventNotificationCreated,
				Timestamp: p.now().UTC(),
				Owner:     owner,
				Source:    eventSource,
				Version:   eventVersion,
			},
			Notification: n,
		}
		data, err := json.Marshal(event)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("encode %s: %w", n.ID, err))
			continue
		}
		if err := p.sink.Publish(ctx, p.Subject(owner, n), data, owner+":"+n.ID); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		published++
	}

	err := result.ErrorOrNil()
	if p.recorder != nil {
		if published > 0 {
			p.recorder.RecordNotificationsPublished(published, nil)
		}
		if failed := len(notifications) - published; failed > 0 {
			p.recorder.RecordNotificationsPublished(failed, err)
		}
	}
	return err
}

// NopPublisher drops every event, used when NATS is disabled
type NopPublisher struct{}

func (NopPublisher) PublishNotifications(context.Context, string, []models.Notification) error {
	return nil
}
