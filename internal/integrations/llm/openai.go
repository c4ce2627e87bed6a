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

// OpenAIBackend speaks the OpenAI chat-completions protocol, which also
// covers vLLM, OpenRouter and Ollama's /v1 shim.
type OpenAIBackend struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewOpenAIBackend(baseURL, apiKey, model string, client *http.Client) *OpenAIBackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAIBackend{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  client,
	}
}

func (o *OpenAIBackend) Name() string { return "openai" }

type openAIRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAIBackend) ClassifyRaw(ctx context.Context, prompt Prompt) (string, error) {
	bodyBytes, err := json.Marshal(openAIRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Temperature: 0.1,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return "", NewTransientError(fmt.Errorf("OpenAI API error: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", NewTransientError(fmt.Errorf("reading response: %w", err))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", classifyHTTPError("OpenAI", resp.StatusCode, respBody)
		}
		return "", fmt.Errorf("parsing OpenAI response: %w", err)
	}
	if parsed.Error != nil {
		if resp.StatusCode != http.StatusOK {
			return "", classifyHTTPError("OpenAI", resp.StatusCode, []byte(parsed.Error.Message))
		}
		return "", fmt.Errorf("OpenAI API error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyHTTPError("OpenAI", resp.StatusCode, respBody)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}

	usage := Usage{}
	if parsed.Usage != nil {
		usage.InputTokens = parsed.Usage.PromptTokens
		usage.OutputTokens = parsed.Usage.CompletionTokens
	}
	log.Printf("llm openai response model=%s size=%d tokens_in=%d tokens_out=%d elapsed_ms=%d",
		o.model, len(parsed.Choices[0].Message.Content), usage.InputTokens, usage.OutputTokens, elapsedMillis(start))
	return parsed.Choices[0].Message.Content, nil
}
