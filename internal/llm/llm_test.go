package llm

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusfix/campusfix/internal/stats"
)

func sampleStats() *stats.Weekly {
	return &stats.Weekly{
		Total:       12,
		ByCategory:  map[string]int{"water": 7, "wifi": 5},
		ByUrgency:   map[string]int{"high": 3, "medium": 9},
		ByLocation:  map[string]int{"Hostel A": 8, "Hostel B": 4},
		SLABreaches: 2,
		Hotspots:    []stats.Hotspot{{Location: "Hostel A", Count: 8}},
		Resolved7d:  6,
		GeneratedAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestNarratePreconditions(t *testing.T) {
	c := NewClient("", "claude-haiku-4-5-20251001")

	// Unauthenticated caller is rejected before anything else.
	_, err := c.Narrate(context.Background(), "", sampleStats())
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Missing stats.
	_, err = c.Narrate(context.Background(), "admin-1", nil)
	assert.ErrorIs(t, err, ErrNoStats)

	// Missing credential. No network call happens for any of these.
	_, err = c.Narrate(context.Background(), "admin-1", sampleStats())
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestBuildPrompt(t *testing.T) {
	statsJSON, err := json.Marshal(sampleStats())
	require.NoError(t, err)

	prompt := buildPrompt(statsJSON)

	// The prompt pins the model to the provided numbers and asks for the
	// four report sections.
	assert.Contains(t, prompt, "Use ONLY the numbers provided in the JSON.")
	assert.Contains(t, prompt, "Key Insights (3 bullets)")
	assert.Contains(t, prompt, "Hotspots explanation (short)")
	assert.Contains(t, prompt, "SLA improvement plan (3 bullets)")
	assert.Contains(t, prompt, "Action Recommendations (3 bullets)")
	assert.True(t, strings.HasSuffix(prompt, string(statsJSON)))
	assert.Contains(t, prompt, `"sla_breaches":2`)
}
