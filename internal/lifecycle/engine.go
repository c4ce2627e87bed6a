// Package lifecycle owns grievance status. It is the only writer of a
// grievance's status and updated-at timestamp, and every change it makes
// is paired with an audit entry.
package lifecycle

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"sevaflow/internal/domain"
)

// RegisteredNote is written on every grievance's first audit entry.
const RegisteredNote = "Grievance registered"

// Store is the persistence the engine needs. internal/storage/sqlite
// provides it.
type Store interface {
	CreateGrievance(ctx context.Context, g domain.Grievance, note string, at time.Time) (domain.Grievance, error)
	TransitionStatus(ctx context.Context, refID string, status domain.Status, note, actor string, at time.Time) (domain.Grievance, error)
	TransitionIfOpen(ctx context.Context, refID string, status domain.Status, note, actor string, at time.Time) (domain.Grievance, bool, error)
	GetGrievance(ctx context.Context, refID string) (domain.Grievance, error)
	History(ctx context.Context, refID string) ([]domain.AuditEntry, error)
}

type Engine struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// WithClock replaces the engine's time source; tests use it to pin timestamps.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Create stores a new grievance from a classification and its routing
// decision. The reference id is assigned by the store.
func (e *Engine) Create(ctx context.Context, text string, reporter domain.Reporter, c domain.Classification, d domain.RoutingDecision) (domain.Grievance, error) {
	g := domain.Grievance{
		ReporterID:       reporter.ID,
		ReporterName:     reporter.Name,
		RawText:          text,
		IssueType:        c.IssueType,
		Location:         c.Location,
		Unit:             d.Unit,
		Urgency:          c.Urgency,
		Summary:          c.Summary,
		Confidence:       c.Confidence,
		ClassifierSource: c.Source,
		EstimatedHours:   d.DeadlineHours,
	}
	created, err := e.store.CreateGrievance(ctx, g, RegisteredNote, e.now())
	if err != nil {
		return domain.Grievance{}, fmt.Errorf("creating grievance: %w", err)
	}
	log.Printf("lifecycle created ref=%s unit=%q urgency=%s hours=%d source=%s",
		created.RefID, created.Unit, created.Urgency, created.EstimatedHours, created.ClassifierSource)
	return created, nil
}

// Transition moves refID to status. Every transition between stored
// statuses is allowed, including a no-op to the current status; each one
// is audited.
func (e *Engine) Transition(ctx context.Context, refID string, status domain.Status, note, actor string) (domain.Grievance, error) {
	if !status.Valid() {
		return domain.Grievance{}, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, string(status))
	}
	refID = domain.NormalizeRefID(refID)
	g, err := e.store.TransitionStatus(ctx, refID, status, strings.TrimSpace(note), strings.TrimSpace(actor), e.now())
	if err != nil {
		return domain.Grievance{}, fmt.Errorf("transition %s: %w", refID, err)
	}
	log.Printf("lifecycle transition ref=%s status=%s actor=%q", refID, status, actor)
	return g, nil
}

// EscalateIfOpen moves refID to escalated only if it is still submitted,
// assigned or in progress when the write happens. applied reports whether
// anything changed.
func (e *Engine) EscalateIfOpen(ctx context.Context, refID, note, actor string) (domain.Grievance, bool, error) {
	refID = domain.NormalizeRefID(refID)
	g, applied, err := e.store.TransitionIfOpen(ctx, refID, domain.StatusEscalated, strings.TrimSpace(note), strings.TrimSpace(actor), e.now())
	if err != nil {
		return domain.Grievance{}, false, fmt.Errorf("escalate %s: %w", refID, err)
	}
	if !applied {
		log.Printf("lifecycle escalation skipped ref=%s status=%s", refID, g.Status)
		return g, false, nil
	}
	log.Printf("lifecycle transition ref=%s status=%s actor=%q", refID, domain.StatusEscalated, actor)
	return g, true, nil
}

func (e *Engine) Get(ctx context.Context, refID string) (domain.Grievance, error) {
	refID = domain.NormalizeRefID(refID)
	g, err := e.store.GetGrievance(ctx, refID)
	if err != nil {
		return domain.Grievance{}, fmt.Errorf("get %s: %w", refID, err)
	}
	return g, nil
}

// History returns the audit trail oldest first; unknown ids give an empty slice.
func (e *Engine) History(ctx context.Context, refID string) ([]domain.AuditEntry, error) {
	return e.store.History(ctx, domain.NormalizeRefID(refID))
}
