package memory

import (
	"context"
	"testing"

	"volunteercore/pkg/domain"
)

func TestNotifierRecordsAndFilters(t *testing.T) {
	n := New()
	ctx := context.Background()
	for _, r := range []string{"u1", "admin-a", "u1"} {
		if err := n.Send(ctx, domain.Notification{RecipientID: r, Title: "t"}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	if len(n.Sent()) != 3 {
		t.Fatalf("expected 3 recorded notifications")
	}
	got, _ := n.List(ctx, "u1")
	if len(got) != 2 {
		t.Fatalf("expected 2 for u1, got %d", len(got))
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := n.Send(cancelled, domain.Notification{RecipientID: "u1"}); err == nil {
		t.Fatalf("expected cancelled context to fail delivery")
	}
}
