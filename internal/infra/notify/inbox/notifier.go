// Package inbox archives notifications as JSON objects in a blob store, one
// object per notification under a per-recipient prefix.
package inbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"volunteercore/internal/blob"
	"volunteercore/pkg/domain"
)

var _ domain.Notifier = (*Notifier)(nil)

const (
	defaultPrefix = "inbox"
	contentType   = "application/json"
	// keyTimeLayout sorts lexically in time order.
	keyTimeLayout = "20060102T150405.000000000Z"
)

// Notifier writes to and reads from a blob store.
type Notifier struct {
	store  blob.Store
	prefix string
}

// New returns an inbox over store. An empty prefix means "inbox".
func New(store blob.Store, prefix string) *Notifier {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Notifier{store: store, prefix: prefix}
}

func (i *Notifier) recipientPrefix(recipientID string) string {
	return i.prefix + "/" + url.PathEscape(recipientID) + "/"
}

// Send stores n under the recipient's prefix.
func (i *Notifier) Send(ctx context.Context, n domain.Notification) error {
	if n.RecipientID == "" {
		return fmt.Errorf("inbox: notification %s has no recipient", n.ID)
	}
	if n.ID == "" {
		return fmt.Errorf("inbox: notification for %s has no id", n.RecipientID)
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("inbox: encode notification: %w", err)
	}
	key := i.recipientPrefix(n.RecipientID) + n.CreatedAt.UTC().Format(keyTimeLayout) + "-" + url.PathEscape(n.ID) + ".json"
	_, err = i.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"category":   string(n.Category),
			"related-id": n.RelatedEntityID,
		},
	})
	if err != nil {
		return fmt.Errorf("inbox: store %s: %w", key, err)
	}
	return nil
}

// List returns the archived notifications for recipientID, oldest first.
func (i *Notifier) List(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	infos, err := i.store.List(ctx, i.recipientPrefix(recipientID))
	if err != nil {
		return nil, fmt.Errorf("inbox: list %s: %w", recipientID, err)
	}
	out := make([]domain.Notification, 0, len(infos))
	for _, info := range infos {
		n, err := i.read(ctx, info.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

func (i *Notifier) read(ctx context.Context, key string) (domain.Notification, error) {
	_, rc, err := i.store.Get(ctx, key)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("inbox: read %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("inbox: read %s: %w", key, err)
	}
	var n domain.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return domain.Notification{}, fmt.Errorf("inbox: decode %s: %w", key, err)
	}
	return n, nil
}
