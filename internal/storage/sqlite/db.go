// Package sqlite is the durable grievance store. Writers are serialised by
// SQLite itself: every write transaction starts with BEGIN IMMEDIATE and
// waits on the busy timeout instead of failing with SQLITE_BUSY.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sevaflow/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS grievances (
	id                INTEGER PRIMARY KEY,
	ref_id            TEXT NOT NULL UNIQUE,
	reporter_id       TEXT NOT NULL DEFAULT '',
	reporter_name     TEXT NOT NULL DEFAULT '',
	raw_text          TEXT NOT NULL,
	issue_type        TEXT NOT NULL,
	location          TEXT NOT NULL,
	unit              TEXT NOT NULL,
	urgency           TEXT NOT NULL,
	summary           TEXT NOT NULL DEFAULT '',
	confidence        REAL NOT NULL,
	classifier_source TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL,
	estimated_hours   INTEGER NOT NULL,
	created_at        DATETIME NOT NULL,
	updated_at        DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_grievances_status ON grievances(status);
CREATE INDEX IF NOT EXISTS idx_grievances_unit ON grievances(unit);
CREATE INDEX IF NOT EXISTS idx_grievances_reporter ON grievances(reporter_id);
CREATE INDEX IF NOT EXISTS idx_grievances_created_at ON grievances(created_at);

CREATE TABLE IF NOT EXISTS audit_entries (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ref_id      TEXT NOT NULL REFERENCES grievances(ref_id),
	old_status  TEXT NOT NULL,
	new_status  TEXT NOT NULL,
	changed_at  DATETIME NOT NULL,
	note        TEXT NOT NULL DEFAULT '',
	actor       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_ref ON audit_entries(ref_id);
`

const grievanceColumns = `id, ref_id, reporter_id, reporter_name, raw_text, issue_type, location, unit, urgency,
	summary, confidence, classifier_source, status, estimated_hours, created_at, updated_at`

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// One connection keeps write ordering identical to commit ordering.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateGrievance allocates the next reference id, inserts g with status
// submitted and writes the first audit entry, all in one transaction.
// The ID, RefID and Status fields of g are ignored.
func (s *Store) CreateGrievance(ctx context.Context, g domain.Grievance, note string, at time.Time) (domain.Grievance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Grievance{}, err
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM grievances`).Scan(&next); err != nil {
		return domain.Grievance{}, fmt.Errorf("allocating reference id: %w", err)
	}

	at = at.UTC()
	g.ID = next
	g.RefID = domain.FormatRefID(next)
	g.Status = domain.StatusSubmitted
	g.CreatedAt = at
	g.UpdatedAt = at

	_, err = tx.ExecContext(ctx,
		`INSERT INTO grievances (`+grievanceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.RefID, g.ReporterID, g.ReporterName, g.RawText, g.IssueType, g.Location, g.Unit,
		string(g.Urgency), g.Summary, g.Confidence, g.ClassifierSource, string(g.Status),
		g.EstimatedHours, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return domain.Grievance{}, fmt.Errorf("inserting grievance: %w", err)
	}

	if err := insertAudit(ctx, tx, g.RefID, domain.StatusNew, domain.StatusSubmitted, at, note, ""); err != nil {
		return domain.Grievance{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Grievance{}, err
	}
	return g, nil
}

// TransitionStatus sets the status of refID and appends the matching audit
// entry. An unknown refID returns domain.ErrNotFound and writes nothing.
func (s *Store) TransitionStatus(ctx context.Context, refID string, status domain.Status, note, actor string, at time.Time) (domain.Grievance, error) {
	g, _, err := s.transition(ctx, refID, status, note, actor, at, false)
	return g, err
}

// TransitionIfOpen is TransitionStatus for callers that decided on an
// earlier read. The current status is re-checked inside the write
// transaction; when the grievance is no longer open nothing is written and
// applied is false.
func (s *Store) TransitionIfOpen(ctx context.Context, refID string, status domain.Status, note, actor string, at time.Time) (domain.Grievance, bool, error) {
	return s.transition(ctx, refID, status, note, actor, at, true)
}

func (s *Store) transition(ctx context.Context, refID string, status domain.Status, note, actor string, at time.Time, onlyOpen bool) (domain.Grievance, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Grievance{}, false, err
	}
	defer tx.Rollback()

	g, err := scanGrievance(tx.QueryRowContext(ctx,
		`SELECT `+grievanceColumns+` FROM grievances WHERE ref_id = ?`, refID))
	if err != nil {
		return domain.Grievance{}, false, err
	}
	if onlyOpen && !g.Status.Open() {
		return g, false, nil
	}

	at = at.UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE grievances SET status = ?, updated_at = ? WHERE ref_id = ?`,
		string(status), at, refID,
	); err != nil {
		return domain.Grievance{}, false, fmt.Errorf("updating status: %w", err)
	}
	if err := insertAudit(ctx, tx, refID, g.Status, status, at, note, actor); err != nil {
		return domain.Grievance{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Grievance{}, false, err
	}

	g.Status = status
	g.UpdatedAt = at
	return g, true, nil
}

func insertAudit(ctx context.Context, tx *sql.Tx, refID string, from, to domain.Status, at time.Time, note, actor string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO audit_entries (ref_id, old_status, new_status, changed_at, note, actor)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		refID, string(from), string(to), at, note, actor,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

func (s *Store) GetGrievance(ctx context.Context, refID string) (domain.Grievance, error) {
	return scanGrievance(s.db.QueryRowContext(ctx,
		`SELECT `+grievanceColumns+` FROM grievances WHERE ref_id = ?`, refID))
}

// History returns the audit entries for refID in write order. Unknown ids
// yield an empty slice.
func (s *Store) History(ctx context.Context, refID string) ([]domain.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ref_id, old_status, new_status, changed_at, note, actor
		 FROM audit_entries WHERE ref_id = ? ORDER BY id`,
		refID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.AuditEntry{}
	for rows.Next() {
		var e domain.AuditEntry
		var oldStatus, newStatus string
		if err := rows.Scan(&e.ID, &e.RefID, &oldStatus, &newStatus, &e.ChangedAt, &e.Note, &e.Actor); err != nil {
			return nil, err
		}
		e.OldStatus = domain.Status(oldStatus)
		e.NewStatus = domain.Status(newStatus)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListGrievances returns one page of matching grievances, newest first,
// and the total number of matches.
func (s *Store) ListGrievances(ctx context.Context, f domain.Filter) ([]domain.Grievance, int, error) {
	f = f.Normalize()

	var where []string
	var args []any
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Unit != "" {
		where = append(where, "unit = ?")
		args = append(args, f.Unit)
	}
	if f.Urgency != "" {
		where = append(where, "urgency = ?")
		args = append(args, string(f.Urgency))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM grievances`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+grievanceColumns+` FROM grievances`+clause+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, f.PageSize, f.Offset())...,
	)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectGrievances(rows)
	return items, total, err
}

// GrievancesByReporter returns the reporter's most recent grievances.
func (s *Store) GrievancesByReporter(ctx context.Context, reporterID string, limit int) ([]domain.Grievance, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+grievanceColumns+` FROM grievances WHERE reporter_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		reporterID, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectGrievances(rows)
}

// OpenGrievances returns every grievance still waiting on its department,
// oldest first.
func (s *Store) OpenGrievances(ctx context.Context) ([]domain.Grievance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+grievanceColumns+` FROM grievances WHERE status IN (?, ?, ?) ORDER BY id`,
		string(domain.StatusSubmitted), string(domain.StatusAssigned), string(domain.StatusInProgress),
	)
	if err != nil {
		return nil, err
	}
	return collectGrievances(rows)
}

func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	st := domain.Stats{
		ByUnit:    map[string]int{},
		ByUrgency: map[domain.Urgency]int{},
	}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status IN ('submitted', 'assigned') THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = 'in_progress' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status IN ('resolved', 'closed') THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = 'escalated' THEN 1 ELSE 0 END), 0)
		 FROM grievances`,
	).Scan(&st.Total, &st.Pending, &st.InProgress, &st.Resolved, &st.Escalated)
	if err != nil {
		return st, err
	}

	if err := s.countBy(ctx, "unit", func(k string, n int) { st.ByUnit[k] = n }); err != nil {
		return st, err
	}
	err = s.countBy(ctx, "urgency", func(k string, n int) { st.ByUrgency[domain.Urgency(k)] = n })
	return st, err
}

func (s *Store) countBy(ctx context.Context, column string, set func(string, int)) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM grievances GROUP BY `+column)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		set(key, n)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrievance(row rowScanner) (domain.Grievance, error) {
	var g domain.Grievance
	var urgency, status string
	err := row.Scan(
		&g.ID, &g.RefID, &g.ReporterID, &g.ReporterName, &g.RawText, &g.IssueType, &g.Location,
		&g.Unit, &urgency, &g.Summary, &g.Confidence, &g.ClassifierSource, &status,
		&g.EstimatedHours, &g.CreatedAt, &g.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Grievance{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Grievance{}, err
	}
	g.Urgency = domain.Urgency(urgency)
	g.Status = domain.Status(status)
	return g, nil
}

func collectGrievances(rows *sql.Rows) ([]domain.Grievance, error) {
	defer rows.Close()
	items := []domain.Grievance{}
	for rows.Next() {
		g, err := scanGrievance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, rows.Err()
}
