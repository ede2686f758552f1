package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusfix/campusfix/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Hello World", "hello world"},
		{"  Tap   LEAKING!!! ", "tap leaking"},
		{"Wi-Fi down in Hostel-A", "wi fi down in hostel a"},
		{"room#12 (2nd floor)", "room 12 2nd floor"},
		{"", ""},
		{"!!!", ""},
		{"a\tb\nc", "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.in))
		})
	}
}

func TestClassifyCategory(t *testing.T) {
	tests := []struct {
		title    string
		desc     string
		expected models.IssueCategory
	}{
		{"Tap leaking in bathroom", "", models.CategoryWater},
		{"Fan not working", "", models.CategoryElectricity},
		{"WiFi very slow", "router keeps restarting", models.CategoryWifi},
		{"Food quality bad in mess", "", models.CategoryMess},
		{"Broken chair in common room", "", models.CategoryMaintenance},
		{"Sewage smell in corridor", "", models.CategoryWater},
		{"No water on third floor", "", models.CategoryWater},
		{"Strange noise at night", "", models.CategoryOther},

		// Priority tie-break: water beats electricity.
		{"Water entering the electric socket area", "", models.CategoryWater},
		// Electricity beats wifi.
		{"Power socket near the wifi router is loose", "", models.CategoryElectricity},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got := Classify(tt.title, tt.desc)
			assert.Equal(t, tt.expected, got.Category)
		})
	}
}

func TestClassifyHazardOverride(t *testing.T) {
	// "short circuit" wins regardless of other category keywords present.
	got := Classify("Water dripping onto a short circuit in the kitchen", "")
	assert.Equal(t, models.CategoryElectricity, got.Category)
	assert.Equal(t, models.UrgencyHigh, got.Urgency)
	assert.Equal(t, "Electrical hazard detected", got.Reason)

	got = Classify("Bathroom flooded overnight", "")
	assert.Equal(t, models.CategoryWater, got.Category)
	assert.Equal(t, models.UrgencyHigh, got.Urgency)
	assert.Equal(t, "Flooding/overflow detected", got.Reason)

	// Hazard match must be contiguous after normalization.
	got = Classify("Short-circuit in room 12", "")
	assert.Equal(t, models.CategoryElectricity, got.Category)
	assert.Equal(t, models.UrgencyHigh, got.Urgency)
}

func TestClassifyUrgency(t *testing.T) {
	tests := []struct {
		title    string
		expected models.IssueUrgency
	}{
		{"Tap leaking", models.UrgencyMedium},
		{"Tap leaking, fix immediately", models.UrgencyHigh},
		{"No water in hostel block", models.UrgencyHigh},
		// "sewage" both selects water and escalates it.
		{"Sewage smell in corridor", models.UrgencyHigh},
		{"No power on second floor", models.UrgencyHigh},
		{"Slight leak from tap, whenever convenient", models.UrgencyLow},

		// Downgrade is applied last and overrides escalation.
		{"Urgent: minor leak under sink", models.UrgencyLow},
		// "not urgent" escalates on "urgent" then downgrades.
		{"Tap dripping, not urgent", models.UrgencyLow},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got := Classify(tt.title, "")
			assert.Equal(t, tt.expected, got.Urgency)
		})
	}
}

func TestClassifyEmptyInput(t *testing.T) {
	got := Classify("", "")
	assert.Equal(t, models.CategoryOther, got.Category)
	assert.Equal(t, models.UrgencyMedium, got.Urgency)
	assert.Equal(t, ReasonRuleBased, got.Reason)
}

func TestClassifyDeterministic(t *testing.T) {
	first := Classify("Sparking socket near room 12", "burning smell too")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify("Sparking socket near room 12", "burning smell too"))
	}
}

func TestScoreUrgency(t *testing.T) {
	assert.Equal(t, 3, ScoreUrgency(models.UrgencyHigh))
	assert.Equal(t, 2, ScoreUrgency(models.UrgencyMedium))
	assert.Equal(t, 1, ScoreUrgency(models.UrgencyLow))
	assert.Equal(t, 1, ScoreUrgency(models.IssueUrgency("bogus")))
}
