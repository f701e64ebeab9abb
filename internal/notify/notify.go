// Package notify selects the notification backend used by the lifecycle
// service.
package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"volunteercore/internal/blob"
	"volunteercore/internal/infra/notify/inbox"
	"volunteercore/internal/infra/notify/logger"
	"volunteercore/internal/infra/notify/memory"
	"volunteercore/internal/infra/notify/redis"
	"volunteercore/pkg/domain"
)

// Driver identifies a notification backend.
type Driver string

const (
	DriverMemory Driver = "memory" // recorded in process
	DriverLog    Driver = "log"    // structured log entries
	DriverInbox  Driver = "inbox"  // JSON objects in a blob store
	DriverRedis  Driver = "redis"  // redis list + pub/sub
)

// Config selects and parameterizes a backend. An empty Driver means log.
type Config struct {
	Driver      Driver
	Blob        blob.Config
	InboxPrefix string
	RedisURL    string
	RedisPrefix string
}

// Reader is implemented by backends that retain delivered notifications.
type Reader interface {
	List(ctx context.Context, recipientID string) ([]domain.Notification, error)
}

// Open constructs the backend named by cfg. The returned close function
// releases backend connections and is never nil.
func Open(ctx context.Context, cfg Config, log logrus.FieldLogger) (domain.Notifier, func() error, error) {
	noop := func() error { return nil }
	driver := cfg.Driver
	if driver == "" {
		driver = DriverLog
	}
	switch driver {
	case DriverMemory:
		return memory.New(), noop, nil
	case DriverLog:
		return logger.New(log.WithField("component", "notifier")), noop, nil
	case DriverInbox:
		store, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return nil, noop, fmt.Errorf("open inbox store: %w", err)
		}
		return inbox.New(store, cfg.InboxPrefix), noop, nil
	case DriverRedis:
		n, err := redis.Dial(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, noop, err
		}
		return n, n.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown notifier driver %s", driver)
	}
}

// AsReader returns n as a Reader when the backend retains notifications.
func AsReader(n domain.Notifier) (Reader, bool) {
	r, ok := n.(Reader)
	return r, ok
}
