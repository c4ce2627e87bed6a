package escalation

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sevaflow/internal/domain"
	"sevaflow/internal/lifecycle"
	"sevaflow/internal/storage/sqlite"
)

type recordingNotifier struct {
	mu    sync.Mutex
	refs  []string
	notes []string
}

func (n *recordingNotifier) StatusChanged(ctx context.Context, g domain.Grievance, note string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refs = append(n.refs, g.RefID)
	n.notes = append(n.notes, note)
}

func TestSweepEscalatesOverdueOpenGrievances(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "escalation-test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	clock := created
	engine := lifecycle.New(store).WithClock(func() time.Time { return clock })
	ctx := context.Background()

	mk := func(hours int) domain.Grievance {
		g, err := engine.Create(ctx, "text", domain.Reporter{ID: "U1"},
			domain.Classification{IssueType: "x", Location: domain.LocationNotSpecified, Unit: "PWD", Urgency: domain.UrgencyMedium},
			domain.RoutingDecision{Unit: "PWD", DeadlineHours: hours})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		return g
	}
	short := mk(6)     // overdue at +24h
	long := mk(48)     // not yet due
	resolved := mk(12) // overdue but closed out
	if _, err := engine.Transition(ctx, resolved.RefID, domain.StatusResolved, "", ""); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	clock = created.Add(24 * time.Hour)
	notifier := &recordingNotifier{}
	var swept []int
	sweeper := NewSweeper(store, engine).
		WithNotifier(notifier).
		WithClock(func() time.Time { return clock }).
		OnSweep(func(n int) { swept = append(swept, n) })

	n, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 escalation, got %d", n)
	}
	if len(notifier.refs) != 1 || notifier.refs[0] != short.RefID {
		t.Fatalf("unexpected notifications %v", notifier.refs)
	}
	if notifier.notes[0] != "Resolution window of 6 hours exceeded by 18h0m0s" {
		t.Fatalf("unexpected note %q", notifier.notes[0])
	}

	history, err := engine.History(ctx, short.RefID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	last := history[len(history)-1]
	if last.NewStatus != domain.StatusEscalated || last.Actor != Actor {
		t.Fatalf("unexpected last audit entry %+v", last)
	}

	got, _ := engine.Get(ctx, long.RefID)
	if got.Status != domain.StatusSubmitted {
		t.Fatalf("grievance within its window must stay open, got %s", got.Status)
	}

	// Escalated grievances are no longer open, so a second run is a no-op.
	n, err = sweeper.Sweep(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected idempotent second sweep, got %d (%v)", n, err)
	}
	if len(swept) != 2 || swept[0] != 1 || swept[1] != 0 {
		t.Fatalf("unexpected sweep callbacks %v", swept)
	}
}

type staticOpen []domain.Grievance

func (s staticOpen) OpenGrievances(ctx context.Context) ([]domain.Grievance, error) {
	return s, nil
}

type flakyEscalator struct {
	failRef string
	applied []string
}

func (f *flakyEscalator) EscalateIfOpen(ctx context.Context, refID, note, actor string) (domain.Grievance, bool, error) {
	if refID == f.failRef {
		return domain.Grievance{}, false, errors.New("database is locked")
	}
	f.applied = append(f.applied, refID)
	return domain.Grievance{RefID: refID, Status: domain.StatusEscalated}, true, nil
}

func TestSweepContinuesPastFailures(t *testing.T) {
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	open := staticOpen{
		{RefID: "SF-0001", Status: domain.StatusSubmitted, EstimatedHours: 6, CreatedAt: created},
		{RefID: "SF-0002", Status: domain.StatusAssigned, EstimatedHours: 6, CreatedAt: created},
		{RefID: "SF-0003", Status: domain.StatusInProgress, EstimatedHours: 6, CreatedAt: created},
	}
	trans := &flakyEscalator{failRef: "SF-0002"}
	sweeper := NewSweeper(open, trans).WithClock(func() time.Time { return created.Add(7 * time.Hour) })

	n, err := sweeper.Sweep(context.Background())
	if err == nil {
		t.Fatal("expected joined error")
	}
	if n != 2 || len(trans.applied) != 2 {
		t.Fatalf("expected 2 escalations, got %d (%v)", n, trans.applied)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	sweeper := NewSweeper(staticOpen{}, &flakyEscalator{})
	if err := sweeper.Start(context.Background(), "every tuesday", time.UTC); err == nil {
		t.Fatal("expected schedule parse error")
	}
	if err := sweeper.Start(context.Background(), "", time.UTC); err != nil {
		t.Fatalf("empty schedule should disable the sweep, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sweeper.Start(ctx, "*/5 * * * *", time.UTC); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

// resolvingLister hands out the open list, then lets a manager resolve the
// first grievance before the sweep gets to write.
type resolvingLister struct {
	store  *sqlite.Store
	engine *lifecycle.Engine
}

func (r resolvingLister) OpenGrievances(ctx context.Context) ([]domain.Grievance, error) {
	open, err := r.store.OpenGrievances(ctx)
	if err != nil || len(open) == 0 {
		return open, err
	}
	if _, err := r.engine.Transition(ctx, open[0].RefID, domain.StatusResolved, "fixed", "U0MANAGER1"); err != nil {
		return nil, err
	}
	return open, nil
}

func TestSweepLeavesGrievanceResolvedAfterListing(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "escalation-race.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	clock := created
	engine := lifecycle.New(store).WithClock(func() time.Time { return clock })
	ctx := context.Background()

	g, err := engine.Create(ctx, "text", domain.Reporter{ID: "U1"},
		domain.Classification{IssueType: "x", Location: domain.LocationNotSpecified, Unit: "PWD", Urgency: domain.UrgencyMedium},
		domain.RoutingDecision{Unit: "PWD", DeadlineHours: 6})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	clock = created.Add(24 * time.Hour)
	notifier := &recordingNotifier{}
	sweeper := NewSweeper(resolvingLister{store: store, engine: engine}, engine).
		WithNotifier(notifier).
		WithClock(func() time.Time { return clock })

	n, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no escalations, got %d", n)
	}
	if len(notifier.refs) != 0 {
		t.Fatalf("reporter must not be told about an escalation: %v", notifier.refs)
	}

	got, err := engine.Get(ctx, g.RefID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.StatusResolved {
		t.Fatalf("expected resolved to stick, got %s", got.Status)
	}
	history, _ := engine.History(ctx, g.RefID)
	if last := history[len(history)-1]; last.NewStatus != domain.StatusResolved {
		t.Fatalf("unexpected last audit entry %+v", last)
	}
}
