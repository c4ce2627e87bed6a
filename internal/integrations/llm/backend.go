// Package llm holds the classification backends. Each backend turns a
// prompt into raw model text; parsing and validation live with the caller.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sevaflow/internal/config"
	"sevaflow/internal/httpx"
)

type Prompt struct {
	System string
	User   string
}

// Backend is a single model endpoint that can classify a grievance.
type Backend interface {
	Name() string
	ClassifyRaw(ctx context.Context, prompt Prompt) (string, error)
}

type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

// TransientError marks failures that could succeed on a later request
// (timeouts, rate limits, 5xx).
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

func NewTransientError(err error) error {
	return &TransientError{err: err}
}

func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// classifyHTTPError maps a non-200 response onto a transient or permanent error.
func classifyHTTPError(backend string, statusCode int, body []byte) error {
	bodyStr := strings.TrimSpace(string(body))
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}
	err := fmt.Errorf("%s API error (status %d): %s", backend, statusCode, bodyStr)
	if statusCode == http.StatusTooManyRequests || statusCode >= 500 {
		return NewTransientError(err)
	}
	return err
}

// FromConfig builds the configured backends in priority order.
func FromConfig(cfg config.Config) ([]Backend, error) {
	client := httpx.ExternalHTTPClient()
	var backends []Backend
	for _, name := range cfg.ClassifierBackends {
		switch name {
		case "ollama":
			backends = append(backends, NewOllamaBackend(cfg.OllamaURL, cfg.OllamaModel, client))
		case "openai":
			backends = append(backends, NewOpenAIBackend(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, client))
		case "anthropic":
			backends = append(backends, NewAnthropicBackend(cfg.AnthropicAPIKey, cfg.AnthropicModel, client))
		default:
			return nil, fmt.Errorf("unknown classifier backend %q", name)
		}
	}
	return backends, nil
}

func elapsedMillis(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
