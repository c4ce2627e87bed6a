// Package intake is the entry point used by the bot and the CLI: it runs
// classification, routing and creation for new grievances and fronts the
// lifecycle and query operations.
package intake

import (
	"context"
	"fmt"
	"log"
	"strings"

	"sevaflow/internal/catalog"
	"sevaflow/internal/domain"
)

type Classifier interface {
	Classify(ctx context.Context, text string) domain.Classification
}

type Router interface {
	Route(c domain.Classification) domain.RoutingDecision
	Explain(c domain.Classification) string
}

type Lifecycle interface {
	Create(ctx context.Context, text string, reporter domain.Reporter, c domain.Classification, d domain.RoutingDecision) (domain.Grievance, error)
	Transition(ctx context.Context, refID string, status domain.Status, note, actor string) (domain.Grievance, error)
	EscalateIfOpen(ctx context.Context, refID, note, actor string) (domain.Grievance, bool, error)
	Get(ctx context.Context, refID string) (domain.Grievance, error)
	History(ctx context.Context, refID string) ([]domain.AuditEntry, error)
}

// Queries are the read-only lookups served straight from the store.
type Queries interface {
	ListGrievances(ctx context.Context, f domain.Filter) ([]domain.Grievance, int, error)
	GrievancesByReporter(ctx context.Context, reporterID string, limit int) ([]domain.Grievance, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// Recorder receives pipeline events. internal/metrics implements it.
type Recorder interface {
	Registered(unit string, urgency domain.Urgency)
	Transitioned(status domain.Status)
	Substituted()
}

type Department struct {
	Name              string
	BaseDeadlineHours int
	Contact           string
}

type Service struct {
	classifier Classifier
	router     Router
	lifecycle  Lifecycle
	queries    Queries
	catalog    *catalog.Catalog
	recorder   Recorder
}

func NewService(cat *catalog.Catalog, classifier Classifier, router Router, lifecycle Lifecycle, queries Queries) *Service {
	return &Service{
		classifier: classifier,
		router:     router,
		lifecycle:  lifecycle,
		queries:    queries,
		catalog:    cat,
	}
}

func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// Register classifies, routes and stores a new grievance. Classification
// problems never fail a registration; storage errors are returned as-is
// and not retried. The text is stored exactly as received.
func (s *Service) Register(ctx context.Context, text string, reporter domain.Reporter) (domain.Grievance, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.Grievance{}, domain.ErrEmptyGrievance
	}

	classification := s.classifier.Classify(ctx, trimmed)
	decision := s.router.Route(classification)
	if decision.Substituted {
		log.Printf("intake unit substituted requested=%q assigned=%q", decision.RequestedUnit, decision.Unit)
		if s.recorder != nil {
			s.recorder.Substituted()
		}
	}

	g, err := s.lifecycle.Create(ctx, text, reporter, classification, decision)
	if err != nil {
		return domain.Grievance{}, fmt.Errorf("register grievance: %w", err)
	}
	if s.recorder != nil {
		s.recorder.Registered(g.Unit, g.Urgency)
	}
	log.Printf("intake registered ref=%s reporter=%s unit=%q deadline_hours=%d confidence=%.2f",
		g.RefID, reporter.ID, g.Unit, g.EstimatedHours, g.Confidence)
	return g, nil
}

func (s *Service) Transition(ctx context.Context, refID string, status domain.Status, note, actor string) (domain.Grievance, error) {
	g, err := s.lifecycle.Transition(ctx, refID, status, note, actor)
	if err != nil {
		return domain.Grievance{}, err
	}
	if s.recorder != nil {
		s.recorder.Transitioned(status)
	}
	return g, nil
}

// EscalateIfOpen escalates refID unless it left the open statuses since
// the caller last looked.
func (s *Service) EscalateIfOpen(ctx context.Context, refID, note, actor string) (domain.Grievance, bool, error) {
	g, applied, err := s.lifecycle.EscalateIfOpen(ctx, refID, note, actor)
	if err != nil || !applied {
		return g, applied, err
	}
	if s.recorder != nil {
		s.recorder.Transitioned(domain.StatusEscalated)
	}
	return g, true, nil
}

func (s *Service) Get(ctx context.Context, refID string) (domain.Grievance, error) {
	return s.lifecycle.Get(ctx, refID)
}

func (s *Service) History(ctx context.Context, refID string) ([]domain.AuditEntry, error) {
	return s.lifecycle.History(ctx, refID)
}

// List returns a page of grievances, newest first, and the total match count.
// Unit filters are matched case-insensitively against the catalog.
func (s *Service) List(ctx context.Context, f domain.Filter) ([]domain.Grievance, int, error) {
	if f.Unit != "" {
		if name, ok := s.catalog.Canonical(f.Unit); ok {
			f.Unit = name
		}
	}
	return s.queries.ListGrievances(ctx, f.Normalize())
}

func (s *Service) ByReporter(ctx context.Context, reporterID string, limit int) ([]domain.Grievance, error) {
	return s.queries.GrievancesByReporter(ctx, reporterID, limit)
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	return s.queries.Stats(ctx)
}

func (s *Service) Departments() []Department {
	depts := s.catalog.Departments()
	out := make([]Department, 0, len(depts))
	for _, d := range depts {
		out = append(out, Department{Name: d.Name, BaseDeadlineHours: d.SLAHours, Contact: d.Contact})
	}
	return out
}

// Explain classifies text without storing anything and describes the
// routing decision it would get.
func (s *Service) Explain(ctx context.Context, text string) (domain.Classification, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Classification{}, "", domain.ErrEmptyGrievance
	}
	c := s.classifier.Classify(ctx, text)
	return c, s.router.Explain(c), nil
}
