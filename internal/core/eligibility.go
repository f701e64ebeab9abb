package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"volunteercore/pkg/domain"
)

// EligibilityRequest carries the fields checked before an application is created.
type EligibilityRequest struct {
	RequesterID string
	ProgramID   string
	Reason      string
}

// Eligibility is the successful outcome of a check, holding the resolved records.
type Eligibility struct {
	Requester Requester
	Program   Program
}

// EligibilityChecker decides whether a new application may be created.
type EligibilityChecker struct {
	directory    domain.Directory
	applications domain.ApplicationRepository
}

// NewEligibilityChecker constructs a checker over the supplied collaborators.
func NewEligibilityChecker(directory domain.Directory, applications domain.ApplicationRepository) *EligibilityChecker {
	return &EligibilityChecker{directory: directory, applications: applications}
}

// Check runs the requester, duplicate and program checks in order and stops at
// the first failure.
func (c *EligibilityChecker) Check(ctx context.Context, req EligibilityRequest, now time.Time) (Eligibility, error) {
	switch {
	case strings.TrimSpace(req.RequesterID) == "":
		return Eligibility{}, invalidInputError("requester_id", "requester_id must not be empty")
	case strings.TrimSpace(req.ProgramID) == "":
		return Eligibility{}, invalidInputError("program_id", "program_id must not be empty")
	case strings.TrimSpace(req.Reason) == "":
		return Eligibility{}, invalidInputError("reason", "reason must not be empty")
	}

	requester, err := c.directory.FindActiveRequester(ctx, req.RequesterID)
	if err != nil {
		if domain.IsNotFound(err) {
			return Eligibility{}, &Error{
				Kind:    KindRequesterNotFound,
				Message: fmt.Sprintf("requester %s not found or inactive", req.RequesterID),
				Field:   "requester_id",
				Err:     err,
			}
		}
		return Eligibility{}, storeError("failed to load requester", err)
	}

	existing, err := c.applications.FindByRequesterAndProgram(ctx, req.RequesterID, req.ProgramID)
	switch {
	case err == nil:
		return Eligibility{}, &Error{
			Kind:          KindDuplicateApplication,
			Message:       fmt.Sprintf("requester %s already applied to program %s", req.RequesterID, req.ProgramID),
			ApplicationID: existing.ID,
			Current:       existing.Status,
		}
	case !domain.IsNotFound(err):
		return Eligibility{}, storeError("failed to check existing applications", err)
	}

	program, err := c.directory.FindOpenProgram(ctx, req.ProgramID, now)
	if err != nil {
		if domain.IsNotFound(err) {
			return Eligibility{}, &Error{
				Kind:    KindProgramNotOpen,
				Message: fmt.Sprintf("program %s is not open for applications", req.ProgramID),
				Field:   "program_id",
				Err:     err,
			}
		}
		return Eligibility{}, storeError("failed to load program", err)
	}

	return Eligibility{Requester: requester, Program: program}, nil
}
