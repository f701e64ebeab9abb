package core

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteercore/internal/infra/persistence/memory"
	"volunteercore/internal/infra/persistence/sqlite"
	"volunteercore/pkg/domain"
)

func TestSubmitCreatesPendingAndNotifiesAdministrators(t *testing.T) {
	svc, _, notifier := newTestService(t)
	out, err := svc.Submit(context.Background(), SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: " I like cooking "})
	require.NoError(t, err)

	app := out.Application
	assert.NotEmpty(t, app.ID)
	assert.Equal(t, StatusPending, app.Status)
	assert.Equal(t, "I like cooking", app.Reason)
	assert.True(t, app.CreatedAt.Equal(app.UpdatedAt))
	assert.Equal(t, "Food Bank", app.ProgramTitle)

	assert.Equal(t, EventCreated, out.Notifications.Event)
	assert.Equal(t, []string{"admin-a", "admin-b"}, out.Notifications.Delivered)
	require.Len(t, notifier.Sent(), 2)
}

func TestSubmitDuplicateKeepsFirstRecord(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	first, err := svc.Submit(ctx, SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "first"})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "second"})
	require.Error(t, err)
	assert.Equal(t, KindDuplicateApplication, KindOf(err))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, first.Application.ID, all[0].ID)
	assert.Equal(t, "first", all[0].Reason)
}

func TestSubmitValidation(t *testing.T) {
	svc, store, notifier := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "   "})
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = svc.Submit(ctx, SubmitRequest{RequesterID: "u2", ProgramID: "p1", Reason: "x"})
	assert.Equal(t, KindRequesterNotFound, KindOf(err))

	_, err = svc.Submit(ctx, SubmitRequest{RequesterID: "u1", ProgramID: "p2", Reason: "x"})
	assert.Equal(t, KindProgramNotOpen, KindOf(err))

	all, _ := store.ListAll(ctx)
	assert.Empty(t, all)
	assert.Empty(t, notifier.Sent())
}

func TestSubmitToOrganizationWithoutAdministrators(t *testing.T) {
	svc, _, notifier := newTestService(t)
	out, err := svc.Submit(context.Background(), SubmitRequest{RequesterID: "u1", ProgramID: "p3", Reason: "beach"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Notifications.Attempted)
	assert.NoError(t, out.Notifications.Err())
	assert.Empty(t, notifier.Sent())
}

func TestSubmitNotificationFailureDoesNotFailOperation(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	svc, store, notifier := newTestService(t, WithLogger(logger))
	notifier.fail["admin-b"] = errBoom

	out, err := svc.Submit(context.Background(), SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "x"})
	require.NoError(t, err)
	assert.True(t, IsKind(out.Notifications.Err(), KindNotificationError))
	assert.Equal(t, []string{"admin-a"}, out.Notifications.Delivered)

	_, err = store.GetByID(context.Background(), out.Application.ID)
	require.NoError(t, err, "application must stay committed")

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Data["recipient_id"] == "admin-b" {
			warned = true
		}
	}
	assert.True(t, warned, "expected a warning naming the failed recipient")
}

func TestSubmitStoreFailureIsStoreError(t *testing.T) {
	store := &failingStore{Store: memory.NewStore(), createErr: errBoom}
	seedDirectory(t, store.Store)
	svc := NewService(store, newRecordingNotifier(), withBaseClock())
	_, err := svc.Submit(context.Background(), SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "x"})
	require.Error(t, err)
	assert.Equal(t, KindStoreError, KindOf(err))
	assert.ErrorIs(t, err, errBoom)
}

func TestSubmitRaceOnCreateMapsToDuplicate(t *testing.T) {
	store := &failingStore{Store: memory.NewStore(), createErr: domain.ErrDuplicate{RequesterID: "u1", ProgramID: "p1"}}
	seedDirectory(t, store.Store)
	_, err := NewService(store, newRecordingNotifier(), withBaseClock()).Submit(context.Background(), SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "x"})
	assert.Equal(t, KindDuplicateApplication, KindOf(err))
}

func TestSubmitCancelledContextWritesNothing(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Submit(ctx, SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "x"})
	assert.Equal(t, KindStoreError, KindOf(err))
	all, _ := store.ListAll(context.Background())
	assert.Empty(t, all)
}

func TestChangeStatusUnknownApplicationDoesNotWrite(t *testing.T) {
	store := &failingStore{Store: memory.NewStore()}
	seedDirectory(t, store.Store)
	svc := NewService(store, newRecordingNotifier(), withBaseClock())
	_, err := svc.ChangeStatus(context.Background(), "missing", "approved")
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Zero(t, store.updates)
}

func TestChangeStatusRejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	out, err := svc.Submit(context.Background(), SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "x"})
	require.NoError(t, err)
	_, err = svc.ChangeStatus(context.Background(), out.Application.ID, "archived")
	assert.Equal(t, KindInvalidStatus, KindOf(err))
}

func TestChangeStatusAdvancesUpdatedAt(t *testing.T) {
	frozen := ClockFunc(func() time.Time { return baseTime })
	svc, store := NewInMemoryService(newRecordingNotifier(), WithClock(frozen))
	seedDirectory(t, store)
	ctx := context.Background()
	created, err := svc.Submit(ctx, SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "x"})
	require.NoError(t, err)

	approved, err := svc.ChangeStatus(ctx, created.Application.ID, "Approved")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Application.Status)
	assert.True(t, approved.Application.UpdatedAt.After(created.Application.UpdatedAt),
		"updated_at must move forward even when the clock does not")
	assert.True(t, approved.Application.CreatedAt.Equal(created.Application.CreatedAt))
}

func TestChangeStatusIllegalReportsCurrentAndRequested(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	out, err := svc.Submit(ctx, SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "x"})
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, out.Application.ID, "completed")
	require.Error(t, err)
	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, KindIllegalTransition, le.Kind)
	assert.Equal(t, StatusPending, le.Current)
	assert.Equal(t, StatusCompleted, le.Requested)
}

func TestChangeStatusConflictMapsToIllegalTransition(t *testing.T) {
	store := &failingStore{Store: memory.NewStore()}
	seedDirectory(t, store.Store)
	svc := NewService(store, newRecordingNotifier(), withBaseClock())
	out, err := svc.Submit(context.Background(), SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "x"})
	require.NoError(t, err)
	store.updateErr = domain.ErrStatusConflict{ID: out.Application.ID, Expected: StatusPending, Actual: StatusDeclined}

	_, err = svc.ChangeStatus(context.Background(), out.Application.ID, "approved")
	var le *Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, KindIllegalTransition, le.Kind)
	assert.Equal(t, StatusDeclined, le.Current)
}

// raceApproveAndDecline submits one application and races an approve against
// a decline; exactly one must commit and the other must see the new status.
func raceApproveAndDecline(t *testing.T, svc *Service, round int) {
	t.Helper()
	ctx := context.Background()
	out, err := svc.Submit(ctx, SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "x"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, target := range []string{"approved", "declined"} {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			_, errs[i] = svc.ChangeStatus(ctx, out.Application.ID, target)
		}(i, target)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.Equal(t, KindIllegalTransition, KindOf(err))
	}
	require.Equal(t, 1, successes, "round %d", round)

	final, err := svc.Get(ctx, out.Application.ID)
	require.NoError(t, err)
	assert.Contains(t, []Status{StatusApproved, StatusDeclined}, final.Status)
}

func TestConcurrentApproveAndDecline(t *testing.T) {
	for round := 0; round < 20; round++ {
		svc, _, _ := newTestService(t)
		raceApproveAndDecline(t, svc, round)
	}
}

func TestConcurrentApproveAndDeclineSQLite(t *testing.T) {
	for round := 0; round < 30; round++ {
		store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "race.db"))
		if err != nil {
			t.Skipf("sqlite unavailable: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		seedDirectory(t, store)
		raceApproveAndDecline(t, NewService(store, newRecordingNotifier(), withBaseClock()), round)
	}
}

func TestVolunteerScenario(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()
	out, err := svc.Submit(ctx, SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "I like cooking"})
	require.NoError(t, err)
	id := out.Application.ID

	_, err = svc.ChangeStatus(ctx, id, "approved")
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, id, "approved")
	assert.Equal(t, KindIllegalTransition, KindOf(err))

	completed, err := svc.ChangeStatus(ctx, id, "completed")
	require.NoError(t, err)
	assert.Equal(t, 0, completed.Notifications.Attempted)

	_, err = svc.Withdraw(ctx, id)
	assert.Equal(t, KindIllegalTransition, KindOf(err))

	approvals := 0
	for _, n := range notifier.Sent() {
		if n.RecipientID == "u1" {
			assert.Equal(t, "Application approved", n.Title)
			approvals++
		}
	}
	assert.Equal(t, 1, approvals)

	final, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, final.Status)
}

func TestWithdrawPendingNotifiesRequester(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()
	out, err := svc.Submit(ctx, SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "x"})
	require.NoError(t, err)
	withdrawn, err := svc.Withdraw(ctx, out.Application.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, withdrawn.Application.Status)
	assert.Equal(t, EventCancelled, withdrawn.Notifications.Event)

	var cancelled int
	for _, n := range notifier.Sent() {
		if n.Title == "Application cancelled" {
			cancelled++
		}
	}
	assert.Equal(t, 1, cancelled)
}

func TestListingsThroughService(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	a, err := svc.Submit(ctx, SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "x"})
	require.NoError(t, err)
	b, err := svc.Submit(ctx, SubmitRequest{RequesterID: "u3", ProgramID: "p1", Reason: "y"})
	require.NoError(t, err)
	c, err := svc.Submit(ctx, SubmitRequest{RequesterID: "u1", ProgramID: "p3", Reason: "z"})
	require.NoError(t, err)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, c.Application.ID, all[0].ID)

	byProgram, err := svc.ListByProgram(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, byProgram, 2)
	assert.Equal(t, b.Application.ID, byProgram[0].ID)
	assert.Equal(t, a.Application.ID, byProgram[1].ID)

	byOrg, err := svc.ListByOrganization(ctx, "org-empty")
	require.NoError(t, err)
	require.Len(t, byOrg, 1)

	_, err = svc.Get(ctx, "missing")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestServiceOutcomesDoNotDependOnWallClock(t *testing.T) {
	// p1 opens 30 days after baseTime; far from it the program has started.
	late := ClockFunc(func() time.Time { return baseTime.AddDate(1, 0, 0) })
	svc, store := NewInMemoryService(newRecordingNotifier(), WithClock(late))
	seedDirectory(t, store)
	_, err := svc.Submit(context.Background(), SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "x"})
	assert.Equal(t, KindProgramNotOpen, KindOf(err))

	pinned, pinnedStore, _ := newTestService(t)
	_, err = pinned.Submit(context.Background(), SubmitRequest{RequesterID: "u1", ProgramID: "p1", Reason: "x"})
	require.NoError(t, err)
	all, err := pinnedStore.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].CreatedAt.Equal(baseTime))
}

func TestGetStoreFailure(t *testing.T) {
	store := &failingStore{Store: memory.NewStore(), getErr: errBoom}
	_, err := NewService(store, newRecordingNotifier()).Get(context.Background(), "x")
	assert.Equal(t, KindStoreError, KindOf(err))
}
