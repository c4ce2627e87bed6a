package lifecycle

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"sevaflow/internal/domain"
	"sevaflow/internal/storage/sqlite"
)

func newTestEngine(t *testing.T) (*Engine, *time.Time) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "lifecycle-test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	now := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	e := New(store).WithClock(func() time.Time { return now })
	return e, &now
}

func createSample(t *testing.T, e *Engine) domain.Grievance {
	t.Helper()
	g, err := e.Create(context.Background(), "Pothole on Ring Road", domain.Reporter{ID: "U1", Name: "Asha"},
		domain.Classification{IssueType: "Pothole on road", Location: "Ring Road", Unit: "PWD", Urgency: domain.UrgencyHigh, Confidence: 0.9, Source: "ollama"},
		domain.RoutingDecision{Unit: "PWD", DeadlineHours: 48})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return g
}

func TestCreateSnapshotsClassification(t *testing.T) {
	e, now := newTestEngine(t)
	g := createSample(t, e)

	if g.RefID != "SF-0001" || g.Status != domain.StatusSubmitted {
		t.Fatalf("unexpected grievance %+v", g)
	}
	if g.Unit != "PWD" || g.EstimatedHours != 48 || g.ClassifierSource != "ollama" || g.ReporterName != "Asha" {
		t.Fatalf("classification not snapshotted: %+v", g)
	}
	if !g.CreatedAt.Equal(*now) {
		t.Fatalf("expected created_at %v, got %v", *now, g.CreatedAt)
	}
}

func TestRegisterAssignResolveHistory(t *testing.T) {
	e, now := newTestEngine(t)
	ctx := context.Background()
	g := createSample(t, e)

	*now = now.Add(time.Hour)
	if _, err := e.Transition(ctx, g.RefID, domain.StatusAssigned, "sent to ward office", "officer-7"); err != nil {
		t.Fatalf("Transition assigned: %v", err)
	}
	*now = now.Add(time.Hour)
	resolved, err := e.Transition(ctx, "sf-0001", domain.StatusResolved, "", "officer-7")
	if err != nil {
		t.Fatalf("Transition resolved: %v", err)
	}
	if !resolved.UpdatedAt.Equal(*now) {
		t.Fatalf("updated_at not bumped: %v", resolved.UpdatedAt)
	}

	history, err := e.History(ctx, g.RefID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	want := []domain.AuditEntry{
		{RefID: "SF-0001", OldStatus: domain.StatusNew, NewStatus: domain.StatusSubmitted, Note: RegisteredNote},
		{RefID: "SF-0001", OldStatus: domain.StatusSubmitted, NewStatus: domain.StatusAssigned, Note: "sent to ward office", Actor: "officer-7"},
		{RefID: "SF-0001", OldStatus: domain.StatusAssigned, NewStatus: domain.StatusResolved, Actor: "officer-7"},
	}
	ignore := cmpopts.IgnoreFields(domain.AuditEntry{}, "ID", "ChangedAt")
	if diff := cmp.Diff(want, history, ignore); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	for i := 1; i < len(history); i++ {
		if history[i].ChangedAt.Before(history[i-1].ChangedAt) {
			t.Fatalf("history out of order at %d", i)
		}
	}
}

func TestTransitionUnknownRef(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Transition(ctx, "SF-9999", domain.StatusResolved, "", "")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	history, err := e.History(ctx, "SF-9999")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected no audit entries, got %d", len(history))
	}
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	e, _ := newTestEngine(t)
	g := createSample(t, e)

	for _, st := range []domain.Status{"", domain.StatusNew, "reopened"} {
		_, err := e.Transition(context.Background(), g.RefID, st, "", "")
		if !errors.Is(err, domain.ErrInvalidStatus) {
			t.Fatalf("status %q: expected ErrInvalidStatus, got %v", st, err)
		}
		if errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("status %q: validation error must not look like not-found", st)
		}
	}
	history, _ := e.History(context.Background(), g.RefID)
	if len(history) != 1 {
		t.Fatalf("rejected transitions must not be audited, got %d entries", len(history))
	}
}

func TestEveryStatusPairIsAllowed(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	g := createSample(t, e)

	count := 1
	for _, from := range domain.Statuses {
		for _, to := range domain.Statuses {
			if _, err := e.Transition(ctx, g.RefID, from, "", ""); err != nil {
				t.Fatalf("to %s: %v", from, err)
			}
			if _, err := e.Transition(ctx, g.RefID, to, "", ""); err != nil {
				t.Fatalf("%s -> %s: %v", from, to, err)
			}
			count += 2
		}
	}
	history, err := e.History(ctx, g.RefID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != count {
		t.Fatalf("expected %d entries, got %d", count, len(history))
	}
	for i := 0; i+1 < len(history); i++ {
		if history[i].NewStatus != history[i+1].OldStatus {
			t.Fatalf("chain broken at %d", i)
		}
	}
}

func TestGetNotFound(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.Get(context.Background(), "SF-0042"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
