// Package reasoning talks to the external reasoning service: a prompt and
// optional attachments in, a JSON-shaped text answer out.
package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-reconciler/internal/metrics"
	"github.com/dvloznov/ledger-reconciler/internal/ratelimit"
	"google.golang.org/genai"
)

// DefaultModelName is the model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// ErrEmptyResponse is returned when the service answers with no text.
var ErrEmptyResponse = errors.New("empty response from reasoning service")

// Attachment is an inline document passed alongside the prompt.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Client generates a JSON answer for a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string, attachments []Attachment) (string, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, prompt string, attachments []Attachment) (string, error)

// Generate implements Client.
func (f ClientFunc) Generate(ctx context.Context, prompt string, attachments []Attachment) (string, error) {
	return f(ctx, prompt, attachments)
}

// GeminiClient calls a Gemini model in JSON response mode.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a client for the Gemini API. An empty apiKey lets
// the SDK read GOOGLE_API_KEY / GEMINI_API_KEY from the environment.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClient: create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Model returns the model identifier.
func (c *GeminiClient) Model() string {
	return c.model
}

// Generate implements Client.
func (c *GeminiClient) Generate(ctx context.Context, prompt string, attachments []Attachment) (string, error) {
	parts := []*genai.Part{{Text: prompt}}
	for _, a := range attachments {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: a.MIMEType, Data: a.Data},
		})
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Throttled waits on a shared limiter before every call and counts results
// per stage.
type Throttled struct {
	next    Client
	limiter *ratelimit.Limiter
	stage   string
}

// NewThrottled wraps next. stage labels the call metrics.
func NewThrottled(next Client, limiter *ratelimit.Limiter, stage string) *Throttled {
	return &Throttled{next: next, limiter: limiter, stage: stage}
}

// Generate implements Client.
func (t *Throttled) Generate(ctx context.Context, prompt string, attachments []Attachment) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		metrics.ReasoningCalls.WithLabelValues(t.stage, "throttled").Inc()
		return "", err
	}
	out, err := t.next.Generate(ctx, prompt, attachments)
	switch {
	case errors.Is(err, ErrEmptyResponse):
		metrics.ReasoningCalls.WithLabelValues(t.stage, "empty").Inc()
	case err != nil:
		metrics.ReasoningCalls.WithLabelValues(t.stage, "error").Inc()
	default:
		metrics.ReasoningCalls.WithLabelValues(t.stage, "ok").Inc()
	}
	return out, err
}
