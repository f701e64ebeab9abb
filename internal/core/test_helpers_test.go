package core

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"volunteercore/internal/infra/persistence/memory"
	"volunteercore/pkg/domain"
)

var errBoom = errors.New("boom")

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	fail map[string]error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{fail: make(map[string]error)}
}

func (r *recordingNotifier) Send(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.fail[n.RecipientID]; ok {
		return err
	}
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]Notification(nil), r.sent...)
	sort.Slice(out, func(i, j int) bool { return out[i].RecipientID < out[j].RecipientID })
	return out
}

// fixedClock advances by step on every call so successive writes get distinct timestamps.
type fixedClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

var baseTime = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

// withBaseClock pins the service to baseTime so program open windows in
// seedDirectory hold whatever the wall clock says.
func withBaseClock() ServiceOption {
	return WithClock(&fixedClock{now: baseTime, step: time.Second})
}

// seedDirectory installs u1 (active), u2 (inactive), p1 (open, org1), p2
// (draft, org1), p3 (open, org-empty) and two org1 administrators.
func seedDirectory(t *testing.T, store domain.DirectoryWriter) {
	t.Helper()
	ctx := context.Background()
	slots := 5
	requesters := []Requester{
		{ID: "u1", Name: "Ada Lovelace", Email: "ada@example.org", Active: true},
		{ID: "u2", Name: "Inactive", Active: false},
		{ID: "u3", Name: "Grace Hopper", Email: "grace@example.org", Active: true},
	}
	for _, r := range requesters {
		if err := store.UpsertRequester(ctx, r); err != nil {
			t.Fatalf("seed requester: %v", err)
		}
	}
	programs := []Program{
		{ID: "p1", OrganizationID: "org1", Title: "Food Bank", Status: domain.ProgramStatusApproved, StartsAt: baseTime.Add(30 * 24 * time.Hour), Slots: &slots},
		{ID: "p2", OrganizationID: "org1", Title: "Draft", Status: domain.ProgramStatusDraft},
		{ID: "p3", OrganizationID: "org-empty", Title: "Beach Cleanup", Status: domain.ProgramStatusApproved},
	}
	for _, p := range programs {
		if err := store.UpsertProgram(ctx, p); err != nil {
			t.Fatalf("seed program: %v", err)
		}
	}
	for _, a := range []Administrator{
		{ID: "admin-a", OrganizationID: "org1", Name: "Admin A"},
		{ID: "admin-b", OrganizationID: "org1", Name: "Admin B"},
	} {
		if err := store.UpsertAdministrator(ctx, a); err != nil {
			t.Fatalf("seed admin: %v", err)
		}
	}
}

// failingStore wraps a memory store and injects failures per method.
type failingStore struct {
	*memory.Store
	createErr  error
	updateErr  error
	getErr     error
	adminsErr  error
	updates    int
	findDupErr error
}

func (f *failingStore) Create(ctx context.Context, in domain.NewApplication, now time.Time) (ApplicationView, error) {
	if f.createErr != nil {
		return ApplicationView{}, f.createErr
	}
	return f.Store.Create(ctx, in, now)
}

func (f *failingStore) UpdateStatus(ctx context.Context, id string, expected, next Status, now time.Time) (ApplicationView, error) {
	f.updates++
	if f.updateErr != nil {
		return ApplicationView{}, f.updateErr
	}
	return f.Store.UpdateStatus(ctx, id, expected, next, now)
}

func (f *failingStore) GetByID(ctx context.Context, id string) (ApplicationView, error) {
	if f.getErr != nil {
		return ApplicationView{}, f.getErr
	}
	return f.Store.GetByID(ctx, id)
}

func (f *failingStore) FindByRequesterAndProgram(ctx context.Context, requesterID, programID string) (ApplicationView, error) {
	if f.findDupErr != nil {
		return ApplicationView{}, f.findDupErr
	}
	return f.Store.FindByRequesterAndProgram(ctx, requesterID, programID)
}

func (f *failingStore) FindAdministratorsByOrganization(ctx context.Context, organizationID string) ([]Administrator, error) {
	if f.adminsErr != nil {
		return nil, f.adminsErr
	}
	return f.Store.FindAdministratorsByOrganization(ctx, organizationID)
}

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *memory.Store, *recordingNotifier) {
	t.Helper()
	notifier := newRecordingNotifier()
	opts = append([]ServiceOption{withBaseClock()}, opts...)
	svc, store := NewInMemoryService(notifier, opts...)
	seedDirectory(t, store)
	return svc, store, notifier
}
