package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const maxResponseSize = 1 << 20

// OllamaBackend talks to a local Ollama server through its native /api/chat endpoint.
type OllamaBackend struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaBackend(baseURL, model string, client *http.Client) *OllamaBackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &OllamaBackend{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  client,
	}
}

func (o *OllamaBackend) Name() string { return "ollama" }

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []chatMessage   `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaModelOpts `json:"options"`
}

type ollamaModelOpts struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int64  `json:"prompt_eval_count"`
	EvalCount       int64  `json:"eval_count"`
	Error           string `json:"error"`
}

func (o *OllamaBackend) ClassifyRaw(ctx context.Context, prompt Prompt) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Options: ollamaModelOpts{Temperature: 0.1, NumPredict: 500},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return "", NewTransientError(fmt.Errorf("Ollama request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", NewTransientError(fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyHTTPError("Ollama", resp.StatusCode, respBody)
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parsing Ollama response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("Ollama error: %s", parsed.Error)
	}
	usage := Usage{InputTokens: parsed.PromptEvalCount, OutputTokens: parsed.EvalCount}
	log.Printf("llm ollama response model=%s size=%d tokens_in=%d tokens_out=%d elapsed_ms=%d",
		o.model, len(parsed.Message.Content), usage.InputTokens, usage.OutputTokens, elapsedMillis(start))
	return parsed.Message.Content, nil
}
