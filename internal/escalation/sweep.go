// Package escalation moves grievances that have outlived their resolution
// window to the escalated status on a cron schedule.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"sevaflow/internal/domain"
)

// Actor is recorded on audit entries written by the sweep.
const Actor = "sla-monitor"

type OpenLister interface {
	OpenGrievances(ctx context.Context) ([]domain.Grievance, error)
}

// Escalator re-checks that a grievance is still open inside the write, so a
// grievance resolved after OpenGrievances returned is left alone.
type Escalator interface {
	EscalateIfOpen(ctx context.Context, refID, note, actor string) (domain.Grievance, bool, error)
}

// Notifier is told about each escalation, e.g. to message the reporter.
type Notifier interface {
	StatusChanged(ctx context.Context, g domain.Grievance, note string)
}

type Sweeper struct {
	open     OpenLister
	esc      Escalator
	notifier Notifier
	onSweep  func(escalated int)
	now      func() time.Time
}

func NewSweeper(open OpenLister, esc Escalator) *Sweeper {
	return &Sweeper{open: open, esc: esc, now: time.Now}
}

func (s *Sweeper) WithNotifier(n Notifier) *Sweeper {
	s.notifier = n
	return s
}

// OnSweep registers a callback receiving the escalation count of every run.
func (s *Sweeper) OnSweep(fn func(escalated int)) *Sweeper {
	s.onSweep = fn
	return s
}

func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Sweep escalates every open grievance whose deadline has passed. A failure
// on one grievance does not stop the others; all failures are returned joined.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	open, err := s.open.OpenGrievances(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing open grievances: %w", err)
	}

	now := s.now()
	escalated := 0
	var errs []error
	for _, g := range open {
		if !g.Overdue(now) {
			continue
		}
		overdue := now.Sub(g.DueAt()).Round(time.Minute)
		note := fmt.Sprintf("Resolution window of %d hours exceeded by %s", g.EstimatedHours, overdue)
		updated, applied, err := s.esc.EscalateIfOpen(ctx, g.RefID, note, Actor)
		if err != nil {
			log.Printf("escalation failed ref=%s err=%v", g.RefID, err)
			errs = append(errs, err)
			continue
		}
		if !applied {
			log.Printf("escalation skipped ref=%s status=%s", g.RefID, updated.Status)
			continue
		}
		escalated++
		log.Printf("escalation applied ref=%s unit=%q due=%s", g.RefID, g.Unit, g.DueAt().Format(time.RFC3339))
		if s.notifier != nil {
			s.notifier.StatusChanged(ctx, updated, note)
		}
	}
	if s.onSweep != nil {
		s.onSweep(escalated)
	}
	return escalated, errors.Join(errs...)
}

// Start runs Sweep on the given 5-field cron schedule until ctx is done.
// An empty schedule disables the sweep.
// Examples: "*/30 * * * *" (every half hour), "0 8 * * *" (daily 8am).
func (s *Sweeper) Start(ctx context.Context, schedule string, loc *time.Location) error {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		log.Println("SLA escalation disabled (escalation_schedule not set)")
		return nil
	}
	if loc == nil {
		loc = time.Local
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid escalation_schedule '%s': %w", schedule, err)
	}
	log.Printf("SLA escalation scheduled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now().In(loc)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next SLA sweep at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Second))

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			n, err := s.Sweep(ctx)
			if err != nil {
				log.Printf("SLA sweep error: %v", err)
			}
			log.Printf("SLA sweep complete escalated=%d", n)
		}
	}()
	return nil
}
