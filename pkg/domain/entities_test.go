package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestProgramIsOpen(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	zero, two := 0, 2
	cases := []struct {
		name    string
		program Program
		want    bool
	}{
		{"approved future start", Program{Status: ProgramStatusApproved, StartsAt: now.Add(time.Hour)}, true},
		{"approved no start date", Program{Status: ProgramStatusApproved}, true},
		{"status case insensitive", Program{Status: "Approved"}, true},
		{"draft", Program{Status: ProgramStatusDraft, StartsAt: now.Add(time.Hour)}, false},
		{"closed", Program{Status: ProgramStatusClosed}, false},
		{"already started", Program{Status: ProgramStatusApproved, StartsAt: now}, false},
		{"no slots left", Program{Status: ProgramStatusApproved, Slots: &zero}, false},
		{"slots left", Program{Status: ProgramStatusApproved, Slots: &two}, true},
	}
	for _, tc := range cases {
		if got := tc.program.IsOpen(now); got != tc.want {
			t.Fatalf("%s: IsOpen = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAdvanceTimestamp(t *testing.T) {
	prev := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	if got := AdvanceTimestamp(prev, prev.Add(time.Second)); !got.Equal(prev.Add(time.Second)) {
		t.Fatalf("later clock should win, got %v", got)
	}
	for _, now := range []time.Time{prev, prev.Add(-time.Minute)} {
		if got := AdvanceTimestamp(prev, now); !got.Equal(prev.Add(time.Microsecond)) {
			t.Fatalf("stalled clock must still advance, got %v", got)
		}
	}
}

func TestErrorHelpers(t *testing.T) {
	nf := fmt.Errorf("load: %w", ErrNotFound{Entity: EntityApplication, ID: "a1"})
	if !IsNotFound(nf) || IsDuplicate(nf) {
		t.Fatalf("IsNotFound misclassified %v", nf)
	}
	if nf.Error() != "load: application a1 not found" {
		t.Fatalf("unexpected message %q", nf.Error())
	}
	dup := fmt.Errorf("create: %w", ErrDuplicate{RequesterID: "u1", ProgramID: "p1"})
	if !IsDuplicate(dup) || IsNotFound(dup) {
		t.Fatalf("IsDuplicate misclassified %v", dup)
	}
	conflict, ok := AsStatusConflict(fmt.Errorf("update: %w", ErrStatusConflict{ID: "a1", Expected: StatusPending, Actual: StatusDeclined}))
	if !ok || conflict.Actual != StatusDeclined {
		t.Fatalf("AsStatusConflict = %+v, %v", conflict, ok)
	}
	if _, ok := AsStatusConflict(errors.New("other")); ok {
		t.Fatalf("plain error is not a conflict")
	}
}

func TestNotifierFunc(t *testing.T) {
	var got Notification
	n := NotifierFunc(func(_ context.Context, n Notification) error {
		got = n
		return nil
	})
	if err := n.Send(context.Background(), Notification{ID: "n1"}); err != nil || got.ID != "n1" {
		t.Fatalf("NotifierFunc did not forward: %+v %v", got, err)
	}
}
