// Package postgres provides a relational Postgres store. Status transitions are
// conditional updates keyed on the previously observed status so concurrent
// writers cannot both commit mutually exclusive transitions.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"volunteercore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/volunteercore?sslmode=disable"

	uniqueViolation = "23505"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists applications and directory records in Postgres tables.
type Store struct {
	db   *sql.DB
	idFn func() string
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to
// defaultDSN) and applies the schema.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ApplySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

// New wraps an already opened database whose schema is in place.
func New(db *sql.DB) *Store {
	return &Store{db: db, idFn: uuid.NewString}
}

// SchemaSQL is the DDL applied by ApplySchema.
//
//go:embed schema.sql
var SchemaSQL string

var schema = splitStatements(SchemaSQL)

// splitStatements drops comment lines and splits on statement terminators.
func splitStatements(ddl string) []string {
	var b strings.Builder
	for _, line := range strings.Split(ddl, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	var out []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// ApplySchema creates the tables and indexes used by the store.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

const viewColumns = `a.id, a.requester_id, a.program_id, a.reason, a.status, a.created_at, a.updated_at,
	COALESCE(r.name, ''), COALESCE(r.email, ''), COALESCE(p.title, ''), COALESCE(p.organization_id, '')`

const viewJoins = `LEFT JOIN requesters r ON r.id = a.requester_id
	LEFT JOIN programs p ON p.id = a.program_id`

const orderNewestFirst = `ORDER BY a.created_at DESC, a.id ASC`

type scanner interface {
	Scan(dest ...any) error
}

func scanView(row scanner) (domain.ApplicationView, error) {
	var v domain.ApplicationView
	var status string
	if err := row.Scan(&v.ID, &v.RequesterID, &v.ProgramID, &v.Reason, &status, &v.CreatedAt, &v.UpdatedAt,
		&v.RequesterName, &v.RequesterEmail, &v.ProgramTitle, &v.OrganizationID); err != nil {
		return domain.ApplicationView{}, err
	}
	v.Status = domain.Status(strings.ToLower(strings.TrimSpace(status)))
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return v, nil
}

// Create inserts a pending application. The unique constraint on
// (requester_id, program_id) backs up the eligibility duplicate check.
func (s *Store) Create(ctx context.Context, in domain.NewApplication, now time.Time) (domain.ApplicationView, error) {
	row := s.db.QueryRowContext(ctx, `WITH a AS (
		INSERT INTO applications (id, requester_id, program_id, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING *
	)
	SELECT `+viewColumns+` FROM a `+viewJoins,
		s.idFn(), in.RequesterID, in.ProgramID, in.Reason, string(domain.StatusPending), now)
	view, err := scanView(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ApplicationView{}, domain.ErrDuplicate{RequesterID: in.RequesterID, ProgramID: in.ProgramID}
		}
		return domain.ApplicationView{}, fmt.Errorf("insert application: %w", err)
	}
	return view, nil
}

// GetByID loads one application projection.
func (s *Store) GetByID(ctx context.Context, id string) (domain.ApplicationView, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+viewColumns+` FROM applications a `+viewJoins+` WHERE a.id = $1`, id)
	view, err := scanView(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ApplicationView{}, domain.ErrNotFound{Entity: domain.EntityApplication, ID: id}
		}
		return domain.ApplicationView{}, fmt.Errorf("load application: %w", err)
	}
	return view, nil
}

// FindByRequesterAndProgram loads the application for the pair, if any.
func (s *Store) FindByRequesterAndProgram(ctx context.Context, requesterID, programID string) (domain.ApplicationView, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+viewColumns+` FROM applications a `+viewJoins+`
		WHERE a.requester_id = $1 AND a.program_id = $2`, requesterID, programID)
	view, err := scanView(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ApplicationView{}, domain.ErrNotFound{Entity: domain.EntityApplication, ID: requesterID + "/" + programID}
		}
		return domain.ApplicationView{}, fmt.Errorf("load application: %w", err)
	}
	return view, nil
}

// ListAll returns every application, most recent first.
func (s *Store) ListAll(ctx context.Context) ([]domain.ApplicationView, error) {
	return s.list(ctx, `SELECT `+viewColumns+` FROM applications a `+viewJoins+` `+orderNewestFirst)
}

// ListByProgram returns the applications for one program.
func (s *Store) ListByProgram(ctx context.Context, programID string) ([]domain.ApplicationView, error) {
	return s.list(ctx, `SELECT `+viewColumns+` FROM applications a `+viewJoins+`
		WHERE a.program_id = $1 `+orderNewestFirst, programID)
}

// ListByOrganization returns the applications for programs owned by organizationID.
func (s *Store) ListByOrganization(ctx context.Context, organizationID string) ([]domain.ApplicationView, error) {
	return s.list(ctx, `SELECT `+viewColumns+` FROM applications a `+viewJoins+`
		WHERE p.organization_id = $1 `+orderNewestFirst, organizationID)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]domain.ApplicationView, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer func() { _ = rows.Close() }()
	items := []domain.ApplicationView{}
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return items, nil
}

// UpdateStatus writes next only while the row is still in expected. The new
// updated_at is forced strictly past the stored value.
func (s *Store) UpdateStatus(ctx context.Context, id string, expected, next domain.Status, now time.Time) (domain.ApplicationView, error) {
	row := s.db.QueryRowContext(ctx, `WITH a AS (
		UPDATE applications
		SET status = $1, updated_at = GREATEST($2::timestamptz, updated_at + interval '1 microsecond')
		WHERE id = $3 AND status = $4
		RETURNING *
	)
	SELECT `+viewColumns+` FROM a `+viewJoins,
		string(next), now, id, string(expected))
	view, err := scanView(row)
	if err == nil {
		return view, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.ApplicationView{}, fmt.Errorf("update application: %w", err)
	}
	var actual string
	if err := s.db.QueryRowContext(ctx, `SELECT status FROM applications WHERE id = $1`, id).Scan(&actual); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ApplicationView{}, domain.ErrNotFound{Entity: domain.EntityApplication, ID: id}
		}
		return domain.ApplicationView{}, fmt.Errorf("load application status: %w", err)
	}
	return domain.ApplicationView{}, domain.ErrStatusConflict{ID: id, Expected: expected, Actual: domain.Status(actual)}
}

// FindActiveRequester loads an active requester.
func (s *Store) FindActiveRequester(ctx context.Context, id string) (domain.Requester, error) {
	var r domain.Requester
	err := s.db.QueryRowContext(ctx, `SELECT id, name, email, active FROM requesters WHERE id = $1 AND active`, id).
		Scan(&r.ID, &r.Name, &r.Email, &r.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Requester{}, domain.ErrNotFound{Entity: domain.EntityRequester, ID: id}
		}
		return domain.Requester{}, fmt.Errorf("load requester: %w", err)
	}
	return r, nil
}

// FindOpenProgram loads a program and applies the open predicate at now.
func (s *Store) FindOpenProgram(ctx context.Context, id string, now time.Time) (domain.Program, error) {
	var (
		p        domain.Program
		status   string
		startsAt sql.NullTime
		slots    sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, organization_id, title, status, starts_at, slots FROM programs WHERE id = $1`, id).
		Scan(&p.ID, &p.OrganizationID, &p.Title, &status, &startsAt, &slots)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Program{}, domain.ErrNotFound{Entity: domain.EntityProgram, ID: id}
		}
		return domain.Program{}, fmt.Errorf("load program: %w", err)
	}
	p.Status = domain.ProgramStatus(status)
	if startsAt.Valid {
		p.StartsAt = startsAt.Time.UTC()
	}
	if slots.Valid {
		n := int(slots.Int64)
		p.Slots = &n
	}
	if !p.IsOpen(now) {
		return domain.Program{}, domain.ErrNotFound{Entity: domain.EntityProgram, ID: id}
	}
	return p, nil
}

// FindAdministratorsByOrganization lists administrators ordered by ID.
func (s *Store) FindAdministratorsByOrganization(ctx context.Context, organizationID string) ([]domain.Administrator, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, organization_id, name, email FROM administrators
		WHERE organization_id = $1 ORDER BY id`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list administrators: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Administrator
	for rows.Next() {
		var a domain.Administrator
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.Name, &a.Email); err != nil {
			return nil, fmt.Errorf("scan administrator: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate administrators: %w", err)
	}
	return out, nil
}

// UpsertRequester inserts or replaces a requester.
func (s *Store) UpsertRequester(ctx context.Context, r domain.Requester) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO requesters (id, name, email, active) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, active = EXCLUDED.active`,
		r.ID, r.Name, r.Email, r.Active)
	if err != nil {
		return fmt.Errorf("upsert requester %s: %w", r.ID, err)
	}
	return nil
}

// UpsertProgram inserts or replaces a program.
func (s *Store) UpsertProgram(ctx context.Context, p domain.Program) error {
	var startsAt sql.NullTime
	if !p.StartsAt.IsZero() {
		startsAt = sql.NullTime{Time: p.StartsAt, Valid: true}
	}
	var slots sql.NullInt64
	if p.Slots != nil {
		slots = sql.NullInt64{Int64: int64(*p.Slots), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO programs (id, organization_id, title, status, starts_at, slots)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET organization_id = EXCLUDED.organization_id, title = EXCLUDED.title,
			status = EXCLUDED.status, starts_at = EXCLUDED.starts_at, slots = EXCLUDED.slots`,
		p.ID, p.OrganizationID, p.Title, string(p.Status), startsAt, slots)
	if err != nil {
		return fmt.Errorf("upsert program %s: %w", p.ID, err)
	}
	return nil
}

// UpsertAdministrator inserts or replaces an administrator.
func (s *Store) UpsertAdministrator(ctx context.Context, a domain.Administrator) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO administrators (id, organization_id, name, email) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET organization_id = EXCLUDED.organization_id, name = EXCLUDED.name, email = EXCLUDED.email`,
		a.ID, a.OrganizationID, a.Name, a.Email)
	if err != nil {
		return fmt.Errorf("upsert administrator %s: %w", a.ID, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
