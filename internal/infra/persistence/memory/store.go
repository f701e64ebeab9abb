// Package memory provides an in-memory implementation of the application
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"volunteercore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Application aliases domain.Application for in-memory persistence operations.
	Application = domain.Application
	// ApplicationView aliases domain.ApplicationView.
	ApplicationView = domain.ApplicationView
	// Requester aliases domain.Requester.
	Requester = domain.Requester
	// Program aliases domain.Program.
	Program = domain.Program
	// Administrator aliases domain.Administrator.
	Administrator = domain.Administrator
)

type memoryState struct {
	requesters     map[string]Requester
	programs       map[string]Program
	administrators map[string]Administrator
	applications   map[string]Application
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Requesters     map[string]Requester     `json:"requesters"`
	Programs       map[string]Program       `json:"programs"`
	Administrators map[string]Administrator `json:"administrators"`
	Applications   map[string]Application   `json:"applications"`
}

func newMemoryState() memoryState {
	return memoryState{
		requesters:     make(map[string]Requester),
		programs:       make(map[string]Program),
		administrators: make(map[string]Administrator),
		applications:   make(map[string]Application),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Requesters:     make(map[string]Requester, len(state.requesters)),
		Programs:       make(map[string]Program, len(state.programs)),
		Administrators: make(map[string]Administrator, len(state.administrators)),
		Applications:   make(map[string]Application, len(state.applications)),
	}
	for k, v := range state.requesters {
		s.Requesters[k] = v
	}
	for k, v := range state.programs {
		s.Programs[k] = cloneProgram(v)
	}
	for k, v := range state.administrators {
		s.Administrators[k] = v
	}
	for k, v := range state.applications {
		s.Applications[k] = v
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Requesters {
		state.requesters[k] = v
	}
	for k, v := range s.Programs {
		state.programs[k] = cloneProgram(v)
	}
	for k, v := range s.Administrators {
		state.administrators[k] = v
	}
	for k, v := range s.Applications {
		state.applications[k] = v
	}
	return state
}

func cloneProgram(p Program) Program {
	cp := p
	if p.Slots != nil {
		slots := *p.Slots
		cp.Slots = &slots
	}
	return cp
}

// Store provides a mutex-guarded in-memory store for applications and the
// directory records they reference.
type Store struct {
	mu    sync.RWMutex
	state memoryState
	idFn  func() string
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state: newMemoryState(),
		idFn:  uuid.NewString,
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// Create stores a new pending application.
func (s *Store) Create(_ context.Context, in domain.NewApplication, now time.Time) (ApplicationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.state.applications {
		if existing.RequesterID == in.RequesterID && existing.ProgramID == in.ProgramID {
			return ApplicationView{}, domain.ErrDuplicate{RequesterID: in.RequesterID, ProgramID: in.ProgramID}
		}
	}
	app := Application{
		Base:        domain.Base{ID: s.idFn(), CreatedAt: now, UpdatedAt: now},
		RequesterID: in.RequesterID,
		ProgramID:   in.ProgramID,
		Reason:      in.Reason,
		Status:      domain.StatusPending,
	}
	s.state.applications[app.ID] = app
	return s.view(app), nil
}

// GetByID returns a single application projection.
func (s *Store) GetByID(_ context.Context, id string) (ApplicationView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.state.applications[id]
	if !ok {
		return ApplicationView{}, domain.ErrNotFound{Entity: domain.EntityApplication, ID: id}
	}
	return s.view(app), nil
}

// FindByRequesterAndProgram returns the application for the pair, if any.
func (s *Store) FindByRequesterAndProgram(_ context.Context, requesterID, programID string) (ApplicationView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, app := range s.state.applications {
		if app.RequesterID == requesterID && app.ProgramID == programID {
			return s.view(app), nil
		}
	}
	return ApplicationView{}, domain.ErrNotFound{Entity: domain.EntityApplication, ID: requesterID + "/" + programID}
}

// ListAll returns every application, most recent first.
func (s *Store) ListAll(_ context.Context) ([]ApplicationView, error) {
	return s.filter(func(Application) bool { return true }), nil
}

// ListByProgram returns the applications for one program.
func (s *Store) ListByProgram(_ context.Context, programID string) ([]ApplicationView, error) {
	return s.filter(func(app Application) bool { return app.ProgramID == programID }), nil
}

// ListByOrganization returns the applications for programs owned by organizationID.
func (s *Store) ListByOrganization(_ context.Context, organizationID string) ([]ApplicationView, error) {
	s.mu.RLock()
	owned := make(map[string]struct{})
	for id, p := range s.state.programs {
		if p.OrganizationID == organizationID {
			owned[id] = struct{}{}
		}
	}
	s.mu.RUnlock()
	return s.filter(func(app Application) bool {
		_, ok := owned[app.ProgramID]
		return ok
	}), nil
}

// UpdateStatus applies next when the application is still in expected.
func (s *Store) UpdateStatus(_ context.Context, id string, expected, next domain.Status, now time.Time) (ApplicationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.state.applications[id]
	if !ok {
		return ApplicationView{}, domain.ErrNotFound{Entity: domain.EntityApplication, ID: id}
	}
	if app.Status != expected {
		return ApplicationView{}, domain.ErrStatusConflict{ID: id, Expected: expected, Actual: app.Status}
	}
	app.Status = next
	app.UpdatedAt = domain.AdvanceTimestamp(app.UpdatedAt, now)
	s.state.applications[id] = app
	return s.view(app), nil
}

// FindActiveRequester returns the requester when it exists and is active.
func (s *Store) FindActiveRequester(_ context.Context, id string) (Requester, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.requesters[id]
	if !ok || !r.Active {
		return Requester{}, domain.ErrNotFound{Entity: domain.EntityRequester, ID: id}
	}
	return r, nil
}

// FindOpenProgram returns the program when it accepts applications at now.
func (s *Store) FindOpenProgram(_ context.Context, id string, now time.Time) (Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.programs[id]
	if !ok || !p.IsOpen(now) {
		return Program{}, domain.ErrNotFound{Entity: domain.EntityProgram, ID: id}
	}
	return cloneProgram(p), nil
}

// FindAdministratorsByOrganization lists administrators ordered by ID.
func (s *Store) FindAdministratorsByOrganization(_ context.Context, organizationID string) ([]Administrator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Administrator
	for _, a := range s.state.administrators {
		if a.OrganizationID == organizationID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpsertRequester inserts or replaces a requester.
func (s *Store) UpsertRequester(_ context.Context, r Requester) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.requesters[r.ID] = r
	return nil
}

// UpsertProgram inserts or replaces a program.
func (s *Store) UpsertProgram(_ context.Context, p Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.programs[p.ID] = cloneProgram(p)
	return nil
}

// UpsertAdministrator inserts or replaces an administrator.
func (s *Store) UpsertAdministrator(_ context.Context, a Administrator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.administrators[a.ID] = a
	return nil
}

func (s *Store) filter(keep func(Application) bool) []ApplicationView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ApplicationView, 0, len(s.state.applications))
	for _, app := range s.state.applications {
		if keep(app) {
			out = append(out, s.view(app))
		}
	}
	SortNewestFirst(out)
	return out
}

// view joins an application with its display fields. Callers hold s.mu.
func (s *Store) view(app Application) ApplicationView {
	v := ApplicationView{Application: app}
	if r, ok := s.state.requesters[app.RequesterID]; ok {
		v.RequesterName = r.Name
		v.RequesterEmail = r.Email
	}
	if p, ok := s.state.programs[app.ProgramID]; ok {
		v.ProgramTitle = p.Title
		v.OrganizationID = p.OrganizationID
	}
	return v
}

// SortNewestFirst orders views by CreatedAt descending, breaking ties by ID.
func SortNewestFirst(views []ApplicationView) {
	sort.SliceStable(views, func(i, j int) bool {
		if !views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].CreatedAt.After(views[j].CreatedAt)
		}
		return views[i].ID < views[j].ID
	})
}
