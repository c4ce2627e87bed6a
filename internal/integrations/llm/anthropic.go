package llm

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicBackend is the hosted-API backend, called through the official SDK.
type AnthropicBackend struct {
	client anthropic.Client
	model  string
}

func NewAnthropicBackend(apiKey, model string, httpClient *http.Client, opts ...option.RequestOption) *AnthropicBackend {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// The extractor falls back on failure, so the SDK should not retry on its own.
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		base = append(base, option.WithHTTPClient(httpClient))
	}
	return &AnthropicBackend{
		client: anthropic.NewClient(append(base, opts...)...),
		model:  model,
	}
}

func (a *AnthropicBackend) Name() string { return "anthropic" }

func (a *AnthropicBackend) ClassifyRaw(ctx context.Context, prompt Prompt) (string, error) {
	start := time.Now()
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: prompt.System, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
	})
	if err != nil {
		return "", NewTransientError(fmt.Errorf("Anthropic API error: %w", err))
	}
	usage := Usage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response model=%s size=%d tokens_in=%d tokens_out=%d elapsed_ms=%d",
				a.model, len(block.Text), usage.InputTokens, usage.OutputTokens, elapsedMillis(start))
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Anthropic response")
}
