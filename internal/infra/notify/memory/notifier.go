// Package memory provides a notifier that keeps delivered notifications in
// process memory.
package memory

import (
	"context"
	"sync"

	"volunteercore/pkg/domain"
)

var _ domain.Notifier = (*Notifier)(nil)

// Notifier records every notification it is asked to send.
type Notifier struct {
	mu   sync.RWMutex
	sent []domain.Notification
}

// New returns an empty recording notifier.
func New() *Notifier { return &Notifier{} }

// Send records n. It fails only when ctx is already done.
func (m *Notifier) Send(ctx context.Context, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.sent = append(m.sent, n)
	m.mu.Unlock()
	return nil
}

// Sent returns a copy of everything delivered so far, in delivery order.
func (m *Notifier) Sent() []domain.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Notification(nil), m.sent...)
}

// List returns the notifications delivered to recipientID.
func (m *Notifier) List(_ context.Context, recipientID string) ([]domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []domain.Notification{}
	for _, n := range m.sent {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}
