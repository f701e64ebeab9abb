// Package logger provides a notifier that writes each notification as a
// structured log entry.
package logger

import (
	"context"

	"github.com/sirupsen/logrus"

	"volunteercore/pkg/domain"
)

var _ domain.Notifier = (*Notifier)(nil)

// Notifier logs notifications at info level.
type Notifier struct {
	log logrus.FieldLogger
}

// New returns a notifier writing to log.
func New(log logrus.FieldLogger) *Notifier {
	return &Notifier{log: log}
}

// Send logs n.
func (l *Notifier) Send(ctx context.Context, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.log.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"recipient_id":    n.RecipientID,
		"category":        n.Category,
		"related_type":    n.RelatedEntityType,
		"related_id":      n.RelatedEntityID,
		"body":            n.Body,
	}).Info(n.Title)
	return nil
}
