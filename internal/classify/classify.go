// Package classify maps free-text issue reports to a category and urgency
// using ordered keyword rule tables. Rules are plain containment tests on
// the normalized text, so multi-word phrases must appear contiguously.
package classify

import (
	"strings"

	"github.com/campusfix/campusfix/internal/models"
)

// Result is the classifier's verdict for one report.
type Result struct {
	Category models.IssueCategory
	Urgency  models.IssueUrgency
	Reason   string
}

// ReasonRuleBased is the default audit reason when no hazard override fired.
const ReasonRuleBased = "Rule-based classification"

// hazardRule short-circuits classification entirely when matched.
type hazardRule struct {
	category models.IssueCategory
	reason   string
	keywords []string
}

// Hazard overrides are checked before everything else; first match wins.
var hazardRules = []hazardRule{
	{
		category: models.CategoryElectricity,
		reason:   "Electrical hazard detected",
		keywords: []string{
			"short circuit", "sparking", "sparks", "spark",
			"burning smell", "shock", "fire",
		},
	},
	{
		category: models.CategoryWater,
		reason:   "Flooding/overflow detected",
		keywords: []string{
			"overflowing", "overflow", "flooding", "flooded", "flood",
			"burst pipe",
		},
	},
}

// categoryRule assigns a category when any keyword matches.
type categoryRule struct {
	category models.IssueCategory
	keywords []string
}

// Category rules are tested in priority order; the ordering is a deliberate
// tie-break (text with both water and electric keywords is water).
var categoryRules = []categoryRule{
	{models.CategoryWater, []string{
		"water", "no water", "leakage", "leaking", "leak", "tap", "pipe",
		"drain", "drainage", "sewage", "flush", "geyser", "bathroom",
		"toilet",
	}},
	{models.CategoryElectricity, []string{
		"electricity", "electric", "power", "socket", "switchboard",
		"switch", "fan", "light", "bulb", "tube", "wiring", "voltage",
		"charging point",
	}},
	{models.CategoryWifi, []string{
		"wifi", "wi fi", "internet", "network", "router", "lan",
		"broadband", "signal", "connectivity",
	}},
	{models.CategoryMess, []string{
		"mess", "food", "meal", "canteen", "kitchen", "dining", "menu",
		"hygiene",
	}},
	{models.CategoryMaintenance, []string{
		"door", "window", "furniture", "chair", "table", "bed", "wall",
		"paint", "ceiling", "lock", "lift", "elevator", "repair",
		"broken", "cleaning",
	}},
}

// Generic urgency escalators apply to every category.
var highUrgencyKeywords = []string{
	"urgent", "immediately", "asap", "danger", "hazard", "emergency",
}

// Category-specific escalator combinations.
var categoryHighKeywords = map[models.IssueCategory][]string{
	models.CategoryWater:       {"no water", "sewage", "contaminated"},
	models.CategoryElectricity: {"no power", "power cut", "blackout"},
	models.CategoryWifi:        {"no internet", "completely down", "exam"},
	models.CategoryMess:        {"food poisoning", "stale", "insect", "worm"},
	models.CategoryMaintenance: {"ceiling falling", "glass broken", "unsafe"},
}

// Mitigating keywords downgrade urgency. Evaluated after escalation, so a
// downgrade overrides it (last rule applied wins).
var lowUrgencyKeywords = []string{
	"minor", "small", "slight", "whenever", "no rush", "not urgent",
}

// Classify maps an issue's title and description to a category, urgency,
// and human-readable reason. It is pure: same input, same output.
func Classify(title, description string) Result {
	text := Normalize(title + " " + description)

	// Tier 0: hazard overrides bypass all later rules.
	for _, rule := range hazardRules {
		if containsAny(text, rule.keywords) {
			return Result{
				Category: rule.category,
				Urgency:  models.UrgencyHigh,
				Reason:   rule.reason,
			}
		}
	}

	// Tier 1: first matching category wins; none matched means "other".
	category := models.CategoryOther
	for _, rule := range categoryRules {
		if containsAny(text, rule.keywords) {
			category = rule.category
			break
		}
	}

	// Tier 2: start at medium, escalate, then let mitigators downgrade.
	urgency := models.UrgencyMedium
	if containsAny(text, highUrgencyKeywords) || containsAny(text, categoryHighKeywords[category]) {
		urgency = models.UrgencyHigh
	}
	if containsAny(text, lowUrgencyKeywords) {
		urgency = models.UrgencyLow
	}

	return Result{Category: category, Urgency: urgency, Reason: ReasonRuleBased}
}

// ScoreUrgency converts an urgency to its numeric ordering score.
// Unrecognized values score 1.
func ScoreUrgency(u models.IssueUrgency) int {
	switch u {
	case models.UrgencyHigh:
		return 3
	case models.UrgencyMedium:
		return 2
	default:
		return 1
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
