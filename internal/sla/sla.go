// Package sla computes attention flags and countdown displays from an
// issue's status history. Everything here is pure: flags are evaluated
// lazily at read time against the caller's clock, never by a timer.
package sla

import (
	"fmt"
	"time"

	"github.com/campusfix/campusfix/internal/models"
)

// Fixed per-status deadlines: open must reach assigned within 24h of
// creation; assigned work must resolve within 48h of assignment.
const (
	AssignDeadline  = 24 * time.Hour
	ResolveDeadline = 48 * time.Hour
)

// Flag is the coarse triage label. Lower values sort first.
type Flag int

const (
	FlagOverdue Flag = iota
	FlagDelayed
	FlagOnTime
)

func (f Flag) String() string {
	switch f {
	case FlagOverdue:
		return "overdue"
	case FlagDelayed:
		return "delayed"
	default:
		return "on-time"
	}
}

// Evaluate returns the coarse attention flag for an issue at the given
// time. Missing timestamps degrade to on-time, never to an error.
func Evaluate(issue *models.Issue, now time.Time) Flag {
	switch issue.Status {
	case models.IssueStatusOpen:
		if len(issue.StatusHistory) == 0 {
			return FlagOnTime
		}
		openedAt := issue.StatusHistory[0].At
		if now.Sub(openedAt) > AssignDeadline {
			return FlagDelayed
		}
	case models.IssueStatusAssigned:
		assignedAt, ok := issue.HistoryAt(models.IssueStatusAssigned)
		if !ok {
			return FlagOnTime
		}
		if now.Sub(assignedAt) > ResolveDeadline {
			return FlagOverdue
		}
	}
	return FlagOnTime
}

// Tier is the color bucket for the precise display.
type Tier int

const (
	TierRemaining Tier = iota
	TierBreached
	TierComplete
)

// Display is the precise countdown/overdue rendering for one issue.
type Display struct {
	Label string
	Tier  Tier
}

// DisplayFor computes the precise deadline display. Resolved issues show
// "complete"; otherwise the label counts down to (or past) the deadline
// for the issue's current stage.
func DisplayFor(issue *models.Issue, now time.Time) Display {
	if issue.Status == models.IssueStatusResolved {
		return Display{Label: "complete", Tier: TierComplete}
	}

	var deadline time.Time
	if issue.Status == models.IssueStatusOpen {
		deadline = issue.CreatedAt.Add(AssignDeadline)
	} else {
		// assigned or in_progress: 48h from the assigned history entry,
		// falling back to creation if the entry is missing.
		start, ok := issue.HistoryAt(models.IssueStatusAssigned)
		if !ok {
			start = issue.CreatedAt
		}
		deadline = start.Add(ResolveDeadline)
	}

	remaining := deadline.Sub(now)
	if remaining >= 0 {
		return Display{
			Label: FormatDuration(remaining) + " remaining",
			Tier:  TierRemaining,
		}
	}
	return Display{
		Label: "breached by " + FormatDuration(-remaining),
		Tier:  TierBreached,
	}
}

// FormatDuration renders a duration as hours and minutes, omitting the
// hour component when zero.
func FormatDuration(d time.Duration) string {
	total := int(d.Minutes())
	hours := total / 60
	minutes := total % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
