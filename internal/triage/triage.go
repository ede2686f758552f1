// Package triage orders and filters issues for the admin queue. The sort
// composes SLA flag, urgency score, and recency into a total order: most
// overdue and most urgent first.
package triage

import (
	"sort"
	"time"

	"github.com/campusfix/campusfix/internal/classify"
	"github.com/campusfix/campusfix/internal/models"
	"github.com/campusfix/campusfix/internal/sla"
)

// All disables a filter dimension.
const All = "all"

// Unassigned selects issues with no assigned staff role.
const Unassigned = "unassigned"

// Filter is the compound predicate applied to the queue. Every populated
// dimension must match (strict conjunction).
type Filter struct {
	Status   string // status value or "all"
	Category string // category value or "all"
	Urgency  string // urgency value or "all"

	// Assignee is a staff role, "unassigned", or "all".
	Assignee string

	// OnlyUnassigned additionally restricts to unassigned issues
	// regardless of Assignee.
	OnlyUnassigned bool

	// ShowDeleted includes soft-deleted issues.
	ShowDeleted bool
}

// Matches reports whether the issue passes every filter dimension.
func Matches(issue *models.Issue, f Filter) bool {
	if issue.IsDeleted && !f.ShowDeleted {
		return false
	}
	if !matchesDim(f.Status, string(issue.Status)) {
		return false
	}
	if !matchesDim(f.Category, string(issue.Category)) {
		return false
	}
	if !matchesDim(f.Urgency, string(issue.Urgency)) {
		return false
	}
	switch f.Assignee {
	case "", All:
	case Unassigned:
		if issue.Assigned() {
			return false
		}
	default:
		if string(issue.AssignedTo) != f.Assignee {
			return false
		}
	}
	if f.OnlyUnassigned && issue.Assigned() {
		return false
	}
	return true
}

func matchesDim(want, have string) bool {
	return want == "" || want == All || want == have
}

// Sort orders issues in place: SLA flag rank ascending (overdue first),
// then urgency score descending, then creation time descending.
func Sort(issues []*models.Issue, now time.Time) {
	sort.SliceStable(issues, func(i, j int) bool {
		fi, fj := sla.Evaluate(issues[i], now), sla.Evaluate(issues[j], now)
		if fi != fj {
			return fi < fj
		}
		si, sj := urgencyScore(issues[i]), urgencyScore(issues[j])
		if si != sj {
			return si > sj
		}
		return issues[i].CreatedAt.After(issues[j].CreatedAt)
	})
}

// Apply filters and sorts a snapshot for display.
func Apply(issues []*models.Issue, f Filter, now time.Time) []*models.Issue {
	var out []*models.Issue
	for _, issue := range issues {
		if Matches(issue, f) {
			out = append(out, issue)
		}
	}
	Sort(out, now)
	return out
}

// urgencyScore prefers the denormalized score, falling back to mapping the
// urgency value for rows written before the score existed.
func urgencyScore(issue *models.Issue) int {
	if issue.UrgencyScore > 0 {
		return issue.UrgencyScore
	}
	return classify.ScoreUrgency(issue.Urgency)
}
