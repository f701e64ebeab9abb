package core

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"volunteercore/internal/infra/persistence/memory"
	"volunteercore/pkg/domain"
)

// Store is the subset of the data store the lifecycle service consumes.
type Store interface {
	domain.Directory
	domain.ApplicationRepository
}

// SubmitRequest is the input to Submit.
type SubmitRequest struct {
	RequesterID string
	ProgramID   string
	Reason      string
}

// Outcome is returned by every successful mutation. Notifications reports the
// side effects; a failed dispatch never turns a committed change into an error.
type Outcome struct {
	Application   ApplicationView
	Notifications DispatchReport
}

// Service orchestrates eligibility, persistence and notification for volunteer
// applications. It keeps no state between calls.
type Service struct {
	store      Store
	checker    *EligibilityChecker
	dispatcher *Dispatcher
	clock      Clock
	logger     logrus.FieldLogger
	metrics    MetricsRecorder
	tracer     Tracer
}

// NewService constructs a service backed by the supplied store and notifier.
func NewService(store Store, notifier Notifier, opts ...ServiceOption) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	dispatcher := NewDispatcher(store, notifier, o.dispatchConcurrency)
	dispatcher.nowFn = o.clock.Now
	dispatcher.logger = o.logger
	return &Service{
		store:      store,
		checker:    NewEligibilityChecker(store, store),
		dispatcher: dispatcher,
		clock:      o.clock,
		logger:     o.logger,
		metrics:    o.metrics,
		tracer:     o.tracer,
	}
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(notifier Notifier, opts ...ServiceOption) (*Service, *memory.Store) {
	store := memory.NewStore()
	return NewService(store, notifier, opts...), store
}

// Submit validates eligibility, creates a pending application and notifies the
// program's administrators.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (Outcome, error) {
	var out Outcome
	err := s.run(ctx, "submit", func(ctx context.Context) error {
		req.RequesterID = strings.TrimSpace(req.RequesterID)
		req.ProgramID = strings.TrimSpace(req.ProgramID)
		now := s.clock.Now()
		if _, err := s.checker.Check(ctx, EligibilityRequest(req), now); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return storeError("submission aborted before write", err)
		}
		created, err := s.store.Create(context.WithoutCancel(ctx), domain.NewApplication{
			RequesterID: req.RequesterID,
			ProgramID:   req.ProgramID,
			Reason:      strings.TrimSpace(req.Reason),
		}, now)
		if err != nil {
			if domain.IsDuplicate(err) {
				return &Error{Kind: KindDuplicateApplication, Message: err.Error(), Err: err}
			}
			return storeError("failed to create application", err)
		}
		out.Application = created
		s.logger.WithFields(logrus.Fields{
			"application_id": created.ID,
			"requester_id":   created.RequesterID,
			"program_id":     created.ProgramID,
		}).Info("application submitted")
		out.Notifications = s.dispatcher.ApplicationCreated(ctx, created)
		s.recordDispatch(created.ID, out.Notifications)
		return nil
	})
	return out, err
}

// ChangeStatus moves an application to requested when the policy allows it
// and notifies the requester.
func (s *Service) ChangeStatus(ctx context.Context, id string, requested string) (Outcome, error) {
	return s.transition(ctx, "change_status", id, requested)
}

// Withdraw cancels an application on behalf of its requester. It applies the
// same policy as ChangeStatus(id, cancelled).
func (s *Service) Withdraw(ctx context.Context, id string) (Outcome, error) {
	return s.transition(ctx, "withdraw", id, string(StatusCancelled))
}

func (s *Service) transition(ctx context.Context, op, id, requested string) (Outcome, error) {
	var out Outcome
	err := s.run(ctx, op, func(ctx context.Context) error {
		current, err := s.store.GetByID(ctx, id)
		if err != nil {
			if domain.IsNotFound(err) {
				return notFoundError(id, err)
			}
			return storeError("failed to load application", err)
		}
		next, ok := ParseStatus(requested)
		if !ok {
			return invalidStatusError(requested)
		}
		if !IsLegalTransition(current.Status, next) {
			return illegalTransitionError(id, current.Status, next)
		}
		if err := ctx.Err(); err != nil {
			return storeError("transition aborted before write", err)
		}
		updated, err := s.store.UpdateStatus(context.WithoutCancel(ctx), id, current.Status, next, s.clock.Now())
		if err != nil {
			if conflict, ok := domain.AsStatusConflict(err); ok {
				return illegalTransitionError(id, conflict.Actual, next)
			}
			if domain.IsNotFound(err) {
				return notFoundError(id, err)
			}
			return storeError("failed to update application", err)
		}
		out.Application = updated
		if lm, ok := s.metrics.(LifecycleMetrics); ok {
			lm.ObserveTransition(current.Status, updated.Status)
		}
		s.logger.WithFields(logrus.Fields{
			"application_id": id,
			"from":           current.Status,
			"to":             updated.Status,
		}).Info("application status changed")
		out.Notifications = s.dispatcher.StatusChanged(ctx, updated)
		s.recordDispatch(id, out.Notifications)
		return nil
	})
	return out, err
}

// Get returns the current projection of one application.
func (s *Service) Get(ctx context.Context, id string) (ApplicationView, error) {
	var app ApplicationView
	err := s.run(ctx, "get", func(ctx context.Context) error {
		var err error
		app, err = s.store.GetByID(ctx, id)
		if err != nil {
			if domain.IsNotFound(err) {
				return notFoundError(id, err)
			}
			return storeError("failed to load application", err)
		}
		return nil
	})
	return app, err
}

// ListAll returns every application, most recent first.
func (s *Service) ListAll(ctx context.Context) ([]ApplicationView, error) {
	return s.list(ctx, "list_all", s.store.ListAll)
}

// ListByOrganization returns the applications to programs owned by organizationID.
func (s *Service) ListByOrganization(ctx context.Context, organizationID string) ([]ApplicationView, error) {
	return s.list(ctx, "list_by_organization", func(ctx context.Context) ([]ApplicationView, error) {
		return s.store.ListByOrganization(ctx, organizationID)
	})
}

// ListByProgram returns the applications to programID.
func (s *Service) ListByProgram(ctx context.Context, programID string) ([]ApplicationView, error) {
	return s.list(ctx, "list_by_program", func(ctx context.Context) ([]ApplicationView, error) {
		return s.store.ListByProgram(ctx, programID)
	})
}

func (s *Service) list(ctx context.Context, op string, fn func(context.Context) ([]ApplicationView, error)) ([]ApplicationView, error) {
	var apps []ApplicationView
	err := s.run(ctx, op, func(ctx context.Context) error {
		var err error
		apps, err = fn(ctx)
		if err != nil {
			return storeError("failed to list applications", err)
		}
		return nil
	})
	return apps, err
}

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, time.Since(started))
	if err != nil {
		s.logger.WithField("operation", op).WithField("kind", KindOf(err)).Debug(err.Error())
	}
	return err
}

func (s *Service) recordDispatch(applicationID string, report DispatchReport) {
	if lm, ok := s.metrics.(LifecycleMetrics); ok && report.Event != "" {
		lm.ObserveDispatch(report.Event, len(report.Delivered), len(report.Failures))
	}
	if err := report.Err(); err != nil {
		s.logger.WithFields(logrus.Fields{
			"application_id": applicationID,
			"event":          report.Event,
		}).WithError(err).Warn("notification dispatch incomplete")
	}
}
