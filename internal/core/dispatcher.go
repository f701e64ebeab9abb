package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"volunteercore/pkg/domain"
)

// Event names a lifecycle occurrence that may produce notifications.
type Event string

// Lifecycle events.
const (
	EventCreated   Event = "application.created"
	EventApproved  Event = "application.approved"
	EventDeclined  Event = "application.declined"
	EventCancelled Event = "application.cancelled"
	EventCompleted Event = "application.completed"
)

const defaultDispatchConcurrency = 4

// DeliveryFailure records one recipient that could not be notified.
type DeliveryFailure struct {
	RecipientID string
	Err         error
}

// DispatchReport summarises one dispatch. A report with failures never implies
// the triggering state change was rolled back.
type DispatchReport struct {
	Event     Event
	Attempted int
	Delivered []string
	Failures  []DeliveryFailure
	// LookupErr is set when the recipient set itself could not be resolved.
	LookupErr error
}

// Err returns a KindNotificationError describing every failure, or nil.
func (r DispatchReport) Err() error {
	if r.LookupErr == nil && len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures)+1)
	if r.LookupErr != nil {
		errs = append(errs, fmt.Errorf("resolve recipients: %w", r.LookupErr))
	}
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("recipient %s: %w", f.RecipientID, f.Err))
	}
	return &Error{
		Kind:    KindNotificationError,
		Message: fmt.Sprintf("%s: %d of %d notifications failed", r.Event, len(r.Failures), r.Attempted),
		Err:     errors.Join(errs...),
	}
}

// Dispatcher turns lifecycle events into notifications.
type Dispatcher struct {
	directory   domain.Directory
	notifier    Notifier
	concurrency int
	nowFn       func() time.Time
	logger      logrus.FieldLogger
}

// NewDispatcher constructs a dispatcher. concurrency bounds parallel sends per
// event; values below one fall back to the default.
func NewDispatcher(directory domain.Directory, notifier Notifier, concurrency int) *Dispatcher {
	if concurrency < 1 {
		concurrency = defaultDispatchConcurrency
	}
	return &Dispatcher{
		directory:   directory,
		notifier:    notifier,
		concurrency: concurrency,
		nowFn:       func() time.Time { return time.Now().UTC() },
		logger:      discardLogger(),
	}
}

// ApplicationCreated notifies every administrator of the program's
// organization. An organization without administrators is a no-op.
func (d *Dispatcher) ApplicationCreated(ctx context.Context, app ApplicationView) DispatchReport {
	report := DispatchReport{Event: EventCreated}
	admins, err := d.directory.FindAdministratorsByOrganization(ctx, app.OrganizationID)
	if err != nil {
		report.LookupErr = err
		return report
	}
	if len(admins) == 0 {
		return report
	}
	requester := app.RequesterName
	if requester == "" {
		requester = app.RequesterID
	}
	batch := make([]Notification, 0, len(admins))
	for _, admin := range admins {
		batch = append(batch, d.compose(app, admin.ID,
			"New volunteer application",
			fmt.Sprintf("%s applied to volunteer for %s.", requester, programLabel(app)),
		))
	}
	return d.send(ctx, report, batch)
}

// StatusChanged notifies the requester about a committed transition into
// app.Status. Completion has no notification.
func (d *Dispatcher) StatusChanged(ctx context.Context, app ApplicationView) DispatchReport {
	var (
		event       Event
		title, body string
	)
	switch app.Status {
	case StatusApproved:
		event = EventApproved
		title = "Application approved"
		body = fmt.Sprintf("Your application to volunteer for %s has been approved.", programLabel(app))
	case StatusDeclined:
		event = EventDeclined
		title = "Application reviewed"
		body = fmt.Sprintf("Your application to volunteer for %s has been reviewed. Thank you for your interest.", programLabel(app))
	case StatusCancelled:
		event = EventCancelled
		title = "Application cancelled"
		body = fmt.Sprintf("Your application to volunteer for %s has been cancelled.", programLabel(app))
	case StatusCompleted:
		return DispatchReport{Event: EventCompleted}
	default:
		return DispatchReport{}
	}
	report := DispatchReport{Event: event}
	return d.send(ctx, report, []Notification{d.compose(app, app.RequesterID, title, body)})
}

func (d *Dispatcher) compose(app ApplicationView, recipientID, title, body string) Notification {
	return Notification{
		ID:                uuid.NewString(),
		RecipientID:       recipientID,
		Category:          domain.CategoryApplication,
		Title:             title,
		Body:              body,
		RelatedEntityType: EntityApplication,
		RelatedEntityID:   app.ID,
		CreatedAt:         d.nowFn(),
	}
}

// send delivers every notification independently; one failure never prevents
// the remaining recipients from being attempted.
func (d *Dispatcher) send(ctx context.Context, report DispatchReport, batch []Notification) DispatchReport {
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(d.concurrency)
	report.Attempted = len(batch)
	for _, n := range batch {
		g.Go(func() error {
			err := d.notifier.Send(ctx, n)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures = append(report.Failures, DeliveryFailure{RecipientID: n.RecipientID, Err: err})
				d.logger.WithFields(logrus.Fields{
					"event":          report.Event,
					"recipient_id":   n.RecipientID,
					"application_id": n.RelatedEntityID,
				}).WithError(err).Warn("notification delivery failed")
				return nil
			}
			report.Delivered = append(report.Delivered, n.RecipientID)
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(report.Delivered)
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].RecipientID < report.Failures[j].RecipientID })
	return report
}

func programLabel(app ApplicationView) string {
	if app.ProgramTitle != "" {
		return app.ProgramTitle
	}
	return "program " + app.ProgramID
}
