// Package llm generates the weekly report narration from pre-aggregated
// statistics. It performs no computation on issue data itself; callers
// hand it finished numbers and get opaque narrative text back.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/campusfix/campusfix/internal/stats"
)

var (
	// ErrUnauthenticated is returned when no caller identity is provided.
	ErrUnauthenticated = errors.New("login required")

	// ErrNoStats is returned when the stats payload is missing.
	ErrNoStats = errors.New("stats missing")

	// ErrNoCredential is returned when no API key is configured.
	ErrNoCredential = errors.New("text-generation API key missing")
)

// Client wraps the Anthropic API for report narration.
type Client struct {
	api    *anthropic.Client
	model  anthropic.Model
	hasKey bool
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:    &client,
		model:  anthropic.Model(model),
		hasKey: apiKey != "",
	}
}

// buildPrompt constructs the narration prompt around the stats JSON.
func buildPrompt(statsJSON []byte) string {
	var sb strings.Builder
	sb.WriteString(`You are writing a weekly operations report for a residential campus issue management system.

CRITICAL RULES:
- Use ONLY the numbers provided in the JSON.
- Do NOT invent or estimate any numbers.
- Do NOT add new metrics.

Write:
1) Key Insights (3 bullets)
2) Hotspots explanation (short)
3) SLA improvement plan (3 bullets)
4) Action Recommendations (3 bullets)

Stats JSON:
`)
	sb.Write(statsJSON)
	return sb.String()
}

// Narrate sends the aggregated stats to the model and returns narrative
// text. Preconditions are checked before any network call: the caller must
// be authenticated, the stats must be present, and a credential must be
// configured. A precise numeric summary always remains available to the
// caller regardless of how this call fails.
func (c *Client) Narrate(ctx context.Context, callerID string, weekly *stats.Weekly) (string, error) {
	if callerID == "" {
		return "", ErrUnauthenticated
	}
	if weekly == nil {
		return "", ErrNoStats
	}
	if !c.hasKey {
		return "", ErrNoCredential
	}

	statsJSON, err := json.Marshal(weekly)
	if err != nil {
		return "", fmt.Errorf("marshal stats: %w", err)
	}

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 2048,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(statsJSON))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	// Extract text from response
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}

	return strings.TrimSpace(text), nil
}
