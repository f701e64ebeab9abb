// Package redis delivers notifications through Redis: each notification is
// appended to the recipient's list and published on a shared channel for
// live subscribers.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"volunteercore/pkg/domain"
)

var _ domain.Notifier = (*Notifier)(nil)

const (
	defaultPrefix = "volunteercore"
	// defaultMaxLen caps each recipient list; older entries are trimmed.
	defaultMaxLen = 500
)

// Notifier writes notifications to Redis.
type Notifier struct {
	client redis.UniversalClient
	prefix string
	maxLen int64
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithMaxLen overrides the per-recipient list cap. Values below one disable trimming.
func WithMaxLen(n int64) Option {
	return func(r *Notifier) { r.maxLen = n }
}

// New wraps an existing client.
func New(client redis.UniversalClient, prefix string, opts ...Option) *Notifier {
	if prefix == "" {
		prefix = defaultPrefix
	}
	n := &Notifier{client: client, prefix: prefix, maxLen: defaultMaxLen}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Dial parses a redis:// URL, connects and pings the server.
func Dial(ctx context.Context, rawURL, prefix string, opts ...Option) (*Notifier, error) {
	redisOpts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, prefix, opts...), nil
}

// ListKey returns the list key holding recipientID's notifications.
func (r *Notifier) ListKey(recipientID string) string {
	return r.prefix + ":notifications:" + recipientID
}

// Channel returns the pub/sub channel every notification is published on.
func (r *Notifier) Channel() string {
	return r.prefix + ":notifications"
}

// Send appends n to the recipient list and publishes it in one transaction.
func (r *Notifier) Send(ctx context.Context, n domain.Notification) error {
	if n.RecipientID == "" {
		return fmt.Errorf("redis notifier: notification %s has no recipient", n.ID)
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("redis notifier: encode notification: %w", err)
	}
	key := r.ListKey(n.RecipientID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		if r.maxLen > 0 {
			pipe.LTrim(ctx, key, -r.maxLen, -1)
		}
		pipe.Publish(ctx, r.Channel(), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis notifier: deliver to %s: %w", n.RecipientID, err)
	}
	return nil
}

// List returns the retained notifications for recipientID, oldest first.
func (r *Notifier) List(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	raw, err := r.client.LRange(ctx, r.ListKey(recipientID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis notifier: list %s: %w", recipientID, err)
	}
	out := make([]domain.Notification, 0, len(raw))
	for _, item := range raw {
		var n domain.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			return nil, fmt.Errorf("redis notifier: decode: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

// Close releases the underlying client.
func (r *Notifier) Close() error { return r.client.Close() }
