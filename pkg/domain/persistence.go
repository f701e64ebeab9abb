package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Directory exposes the externally owned records the lifecycle reads before
// creating applications or routing notifications.
type Directory interface {
	// FindActiveRequester returns ErrNotFound when the requester is unknown or inactive.
	FindActiveRequester(ctx context.Context, id string) (Requester, error)
	// FindOpenProgram returns ErrNotFound when the program is unknown or not open at now.
	FindOpenProgram(ctx context.Context, id string, now time.Time) (Program, error)
	FindAdministratorsByOrganization(ctx context.Context, organizationID string) ([]Administrator, error)
}

// ApplicationRepository is the sole reader and writer of application rows.
// List projections are ordered by CreatedAt descending.
type ApplicationRepository interface {
	Create(ctx context.Context, app NewApplication, now time.Time) (ApplicationView, error)
	GetByID(ctx context.Context, id string) (ApplicationView, error)
	FindByRequesterAndProgram(ctx context.Context, requesterID, programID string) (ApplicationView, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]ApplicationView, error)
	ListByProgram(ctx context.Context, programID string) ([]ApplicationView, error)
	ListAll(ctx context.Context) ([]ApplicationView, error)
	// UpdateStatus writes next only if the row is still in expected. It returns
	// ErrNotFound when the row is gone and ErrStatusConflict when another
	// writer moved it first.
	UpdateStatus(ctx context.Context, id string, expected, next Status, now time.Time) (ApplicationView, error)
}

// DirectoryWriter seeds directory records. The lifecycle never calls it.
type DirectoryWriter interface {
	UpsertRequester(ctx context.Context, r Requester) error
	UpsertProgram(ctx context.Context, p Program) error
	UpsertAdministrator(ctx context.Context, a Administrator) error
}

// PersistentStore is the full data store contract implemented by durable backends.
type PersistentStore interface {
	Directory
	ApplicationRepository
	DirectoryWriter
	Close() error
}

// ErrNotFound is returned when a record does not exist (or, for directory
// lookups, does not satisfy the lookup predicate).
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrDuplicate is returned by Create when the requester already applied to the program.
type ErrDuplicate struct {
	RequesterID string
	ProgramID   string
}

func (e ErrDuplicate) Error() string {
	return fmt.Sprintf("requester %s already applied to program %s", e.RequesterID, e.ProgramID)
}

// ErrStatusConflict is returned by UpdateStatus when the stored status no
// longer matches the status the caller validated against.
type ErrStatusConflict struct {
	ID       string
	Expected Status
	Actual   Status
}

func (e ErrStatusConflict) Error() string {
	return fmt.Sprintf("application %s is %s, expected %s", e.ID, e.Actual, e.Expected)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// IsDuplicate reports whether err wraps ErrDuplicate.
func IsDuplicate(err error) bool {
	var dup ErrDuplicate
	return errors.As(err, &dup)
}

// AsStatusConflict extracts an ErrStatusConflict from err.
func AsStatusConflict(err error) (ErrStatusConflict, bool) {
	var conflict ErrStatusConflict
	ok := errors.As(err, &conflict)
	return conflict, ok
}
