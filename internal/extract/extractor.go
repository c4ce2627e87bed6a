// Package extract turns free grievance text into a classification. Model
// backends are tried in order; when every one of them fails the keyword
// rules take over, so Classify never fails.
package extract

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"sevaflow/internal/catalog"
	"sevaflow/internal/domain"
	"sevaflow/internal/integrations/llm"
)

const defaultBackendTimeout = 30 * time.Second

// Recorder receives extraction outcomes. internal/metrics implements it.
type Recorder interface {
	BackendFailure(backend string)
	Classified(source string)
}

type Extractor struct {
	backends           []llm.Backend
	catalog            *catalog.Catalog
	timeout            time.Duration
	fallbackConfidence float64
	recorder           Recorder
	prompt             string
}

type Option func(*Extractor)

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithFallbackConfidence(c float64) Option {
	return func(e *Extractor) {
		if c >= 0 && c < domain.DefaultModelConfidence {
			e.fallbackConfidence = c
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Extractor) {
		e.recorder = r
	}
}

func New(cat *catalog.Catalog, backends []llm.Backend, opts ...Option) *Extractor {
	e := &Extractor{
		backends:           append([]llm.Backend(nil), backends...),
		catalog:            cat,
		timeout:            defaultBackendTimeout,
		fallbackConfidence: DefaultFallbackConfidence,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.prompt = buildSystemPrompt(cat)
	return e
}

// Classify returns a classification for text. Backend errors, timeouts and
// unusable output are logged and skipped.
func (e *Extractor) Classify(ctx context.Context, text string) domain.Classification {
	requestID := uuid.NewString()
	prompt := llm.Prompt{System: e.prompt, User: buildUserPrompt(text)}

	for _, backend := range e.backends {
		start := time.Now()
		result, err := e.tryBackend(ctx, backend, prompt)
		if err != nil {
			log.Printf("extract backend failed request_id=%s backend=%s transient=%t elapsed_ms=%d err=%v",
				requestID, backend.Name(), llm.IsTransient(err), time.Since(start).Milliseconds(), err)
			if e.recorder != nil {
				e.recorder.BackendFailure(backend.Name())
			}
			continue
		}
		log.Printf("extract classified request_id=%s source=%s unit=%q urgency=%s confidence=%.2f",
			requestID, result.Source, result.Unit, result.Urgency, result.Confidence)
		e.record(result.Source)
		return result
	}

	result := ClassifyByRules(e.catalog, text, e.fallbackConfidence)
	if len(e.backends) > 0 {
		log.Printf("extract fallback request_id=%s backends=%d unit=%q urgency=%s",
			requestID, len(e.backends), result.Unit, result.Urgency)
	}
	e.record(result.Source)
	return result
}

func (e *Extractor) tryBackend(ctx context.Context, backend llm.Backend, prompt llm.Prompt) (domain.Classification, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := backend.ClassifyRaw(callCtx, prompt)
	if err != nil {
		return domain.Classification{}, err
	}
	result, err := parseModelResponse(raw, e.catalog)
	if err != nil {
		return domain.Classification{}, err
	}
	result.Source = backend.Name()
	return result, nil
}

func (e *Extractor) record(source string) {
	if e.recorder != nil {
		e.recorder.Classified(source)
	}
}
