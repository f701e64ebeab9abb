// Package domain defines the persistent entities, value types, and collaborator
// contracts used by the volunteer application lifecycle.
package domain

import (
	"strings"
	"time"
)

// EntityType identifies the type of record referenced by errors and notifications.
type EntityType string

// Supported entity type identifiers.
const (
	// EntityApplication identifies a volunteer application record.
	EntityApplication EntityType = "application"
	// EntityRequester identifies the person applying to a program.
	EntityRequester EntityType = "requester"
	// EntityProgram identifies a community program accepting volunteers.
	EntityProgram EntityType = "program"
	// EntityOrganization identifies the organization that owns programs.
	EntityOrganization EntityType = "organization"
)

// Status enumerates the application lifecycle states.
type Status string

// Canonical application statuses. Any other literal is unknown.
const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ProgramStatus describes the editorial state of a program as owned by the
// surrounding content system.
type ProgramStatus string

// Program statuses observed by the open-for-applications predicate.
const (
	ProgramStatusDraft    ProgramStatus = "draft"
	ProgramStatusApproved ProgramStatus = "approved"
	ProgramStatusClosed   ProgramStatus = "closed"
)

// Base carries the identity and audit timestamps shared by persisted records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Application is a single volunteer's request to join one program.
type Application struct {
	Base
	RequesterID string `json:"requester_id"`
	ProgramID   string `json:"program_id"`
	Reason      string `json:"reason"`
	Status      Status `json:"status"`
}

// ApplicationView is the read projection of an application joined with the
// requester and program fields needed for display and notification copy.
type ApplicationView struct {
	Application
	RequesterName  string `json:"requester_name"`
	RequesterEmail string `json:"requester_email"`
	ProgramTitle   string `json:"program_title"`
	OrganizationID string `json:"organization_id"`
}

// NewApplication captures the caller supplied fields for a new application.
type NewApplication struct {
	RequesterID string
	ProgramID   string
	Reason      string
}

// Requester is a person who may apply to programs.
type Requester struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Email  string `json:"email" yaml:"email"`
	Active bool   `json:"active" yaml:"active"`
}

// Program is a community program owned by an organization.
type Program struct {
	ID             string        `json:"id" yaml:"id"`
	OrganizationID string        `json:"organization_id" yaml:"organization_id"`
	Title          string        `json:"title" yaml:"title"`
	Status         ProgramStatus `json:"status" yaml:"status"`
	StartsAt       time.Time     `json:"starts_at" yaml:"starts_at"`

	// Slots is nil when the program does not cap participation.
	Slots *int `json:"slots,omitempty" yaml:"slots,omitempty"`
}

// IsOpen reports whether the program accepts new applications at now: it must
// be approved, not yet started, and have at least one open slot.
func (p Program) IsOpen(now time.Time) bool {
	if ProgramStatus(strings.ToLower(string(p.Status))) != ProgramStatusApproved {
		return false
	}
	if !p.StartsAt.IsZero() && !now.Before(p.StartsAt) {
		return false
	}
	if p.Slots != nil && *p.Slots <= 0 {
		return false
	}
	return true
}

// Administrator manages applications for one organization.
type Administrator struct {
	ID             string `json:"id" yaml:"id"`
	OrganizationID string `json:"organization_id" yaml:"organization_id"`
	Name           string `json:"name" yaml:"name"`
	Email          string `json:"email" yaml:"email"`
}

// AdvanceTimestamp returns now when it is after prev, otherwise prev plus one
// microsecond, so successive mutations always move UpdatedAt forward.
func AdvanceTimestamp(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Microsecond)
}
