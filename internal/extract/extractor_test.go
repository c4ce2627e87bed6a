package extract

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"sevaflow/internal/catalog"
	"sevaflow/internal/domain"
	"sevaflow/internal/integrations/llm"
)

type fakeBackend struct {
	name  string
	reply string
	err   error
	delay time.Duration
	calls int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) ClassifyRaw(ctx context.Context, prompt llm.Prompt) (string, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.reply, f.err
}

type countingRecorder struct {
	mu         sync.Mutex
	failures   map[string]int
	classified map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{failures: map[string]int{}, classified: map[string]int{}}
}

func (r *countingRecorder) BackendFailure(backend string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[backend]++
}

func (r *countingRecorder) Classified(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classified[source]++
}

func TestClassifyWithoutBackendsUsesRules(t *testing.T) {
	e := New(catalog.Default(), nil)
	got := e.Classify(context.Background(), "Streetlight near Laxmi Nagar metro gate broken for 3 days")

	if got.Unit != "MCD Electrical" {
		t.Fatalf("expected MCD Electrical, got %q", got.Unit)
	}
	if got.Urgency != domain.UrgencyMedium {
		t.Fatalf("expected medium urgency, got %q", got.Urgency)
	}
	if !strings.Contains(got.Location, "Laxmi Nagar metro gate") {
		t.Fatalf("expected location to contain Laxmi Nagar metro gate, got %q", got.Location)
	}
	if got.Confidence != DefaultFallbackConfidence {
		t.Fatalf("expected fallback confidence, got %v", got.Confidence)
	}
	if got.Source != domain.SourceRules {
		t.Fatalf("expected rules source, got %q", got.Source)
	}
	if got.IssueType != "Streetlight issue" {
		t.Fatalf("unexpected issue type %q", got.IssueType)
	}
}

func TestClassifyUsesFirstWorkingBackend(t *testing.T) {
	broken := &fakeBackend{name: "ollama", err: errors.New("connection refused")}
	garbled := &fakeBackend{name: "openai", reply: "I think this is about water"}
	good := &fakeBackend{name: "anthropic", reply: "```json\n{\"issue_type\":\"Water supply issue\",\"location\":\"Rohini Sector 7\",\"responsible_department\":\"delhi jal board\",\"priority\":\"HIGH\",\"confidence\":0.92,\"summary\":\"No water for two days.\"}\n```"}
	never := &fakeBackend{name: "spare", reply: "{}"}
	rec := newCountingRecorder()

	e := New(catalog.Default(), []llm.Backend{broken, garbled, good, never}, WithRecorder(rec))
	got := e.Classify(context.Background(), "No water in Rohini Sector 7 for two days")

	if got.Source != "anthropic" {
		t.Fatalf("expected anthropic source, got %q", got.Source)
	}
	if got.Unit != "Delhi Jal Board" {
		t.Fatalf("expected canonical unit, got %q", got.Unit)
	}
	if got.Urgency != domain.UrgencyHigh || got.Confidence != 0.92 {
		t.Fatalf("unexpected urgency/confidence %s/%v", got.Urgency, got.Confidence)
	}
	if never.calls != 0 {
		t.Fatalf("backend after a success should not be called")
	}
	if rec.failures["ollama"] != 1 || rec.failures["openai"] != 1 || rec.classified["anthropic"] != 1 {
		t.Fatalf("unexpected recorder counts failures=%v classified=%v", rec.failures, rec.classified)
	}
}

func TestClassifyTreatsNullReplyAsFailure(t *testing.T) {
	rec := newCountingRecorder()
	e := New(catalog.Default(), []llm.Backend{&fakeBackend{name: "ollama", reply: "null"}}, WithRecorder(rec))
	got := e.Classify(context.Background(), "Streetlight near Laxmi Nagar metro gate broken for 3 days")

	if got.Source != domain.SourceRules || got.Unit != "MCD Electrical" {
		t.Fatalf("expected rule fallback to MCD Electrical, got %+v", got)
	}
	if got.Confidence != DefaultFallbackConfidence {
		t.Fatalf("expected fallback confidence, got %v", got.Confidence)
	}
	if rec.failures["ollama"] != 1 {
		t.Fatalf("null reply should count as a backend failure, got %v", rec.failures)
	}
}

func TestClassifyFallsBackWhenAllBackendsFail(t *testing.T) {
	rec := newCountingRecorder()
	backends := []llm.Backend{
		&fakeBackend{name: "ollama", reply: `{"priority":"critical"}`},
		&fakeBackend{name: "openai", reply: `{"confidence":1.7}`},
	}
	e := New(catalog.Default(), backends, WithRecorder(rec), WithFallbackConfidence(0.4))
	got := e.Classify(context.Background(), "Garbage not collected, urgent")

	if got.Source != domain.SourceRules || got.Confidence != 0.4 {
		t.Fatalf("expected rule fallback with 0.4 confidence, got %+v", got)
	}
	if got.Unit != "MCD Sanitation" || got.Urgency != domain.UrgencyHigh {
		t.Fatalf("unexpected rule result %+v", got)
	}
	if rec.classified[domain.SourceRules] != 1 {
		t.Fatalf("expected fallback to be recorded, got %v", rec.classified)
	}
}

func TestClassifyTimeoutCountsAsFailure(t *testing.T) {
	slow := &fakeBackend{name: "ollama", reply: `{"priority":"low"}`, delay: time.Second}
	e := New(catalog.Default(), []llm.Backend{slow}, WithTimeout(20*time.Millisecond))

	start := time.Now()
	got := e.Classify(context.Background(), "Suggestion to add benches in the park")
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("classification took %s, timeout not enforced", elapsed)
	}
	if got.Source != domain.SourceRules {
		t.Fatalf("expected fallback after timeout, got %q", got.Source)
	}
	if got.Urgency != domain.UrgencyLow || got.Unit != "DDA" {
		t.Fatalf("unexpected fallback result %+v", got)
	}
}

func TestClassifyPropertiesHoldForArbitraryText(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"ok",
		"!!!!",
		strings.Repeat("pothole ", 200),
		"पानी नहीं आ रहा है",
		"URGENT fire at Chandni Chowk Market",
	}
	e := New(catalog.Default(), []llm.Backend{&fakeBackend{name: "ollama", err: errors.New("down")}})
	for _, in := range inputs {
		got := e.Classify(context.Background(), in)
		if _, ok := domain.ParseUrgency(string(got.Urgency)); !ok {
			t.Fatalf("input %q: urgency %q not enumerated", in, got.Urgency)
		}
		if got.Confidence < 0 || got.Confidence > 1 {
			t.Fatalf("input %q: confidence %v out of range", in, got.Confidence)
		}
		if got.Unit == "" || got.Location == "" || got.IssueType == "" {
			t.Fatalf("input %q: empty field in %+v", in, got)
		}
	}
}

func TestSystemPromptListsConfiguredUnits(t *testing.T) {
	cat, err := catalog.New([]catalog.Department{
		{Name: "Roads", Keywords: []string{"pothole"}, SLAHours: 24},
		{Name: "Other", SLAHours: 48},
	}, "Other", catalog.UrgencyKeywords{}, nil)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	prompt := buildSystemPrompt(cat)
	for _, want := range []string{"- Roads (pothole)", "- Other (anything else)", `use "Other"`} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "MCD Electrical") {
		t.Fatalf("prompt should only list configured units")
	}
}
