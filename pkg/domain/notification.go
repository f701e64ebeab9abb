package domain

import (
	"context"
	"time"
)

// NotificationCategory groups notifications for the receiving channel.
type NotificationCategory string

// Categories emitted by the application lifecycle.
const (
	CategoryApplication NotificationCategory = "application"
)

// Notification is a structured message addressed to one user.
type Notification struct {
	ID                string               `json:"id,omitempty"`
	RecipientID       string               `json:"recipient_id"`
	Category          NotificationCategory `json:"category"`
	Title             string               `json:"title"`
	Body              string               `json:"body"`
	RelatedEntityType EntityType           `json:"related_entity_type,omitempty"`
	RelatedEntityID   string               `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
}

// Notifier delivers a single notification. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification) error

// Send calls f(ctx, n).
func (f NotifierFunc) Send(ctx context.Context, n Notification) error {
	return f(ctx, n)
}
