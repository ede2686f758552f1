package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/campusfix/campusfix/internal/models"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func openIssue(openedAt time.Time) *models.Issue {
	return &models.Issue{
		Status: models.IssueStatusOpen,
		StatusHistory: []models.StatusEntry{
			{Status: models.IssueStatusOpen, At: openedAt},
		},
		CreatedAt: openedAt,
	}
}

func assignedIssue(openedAt, assignedAt time.Time) *models.Issue {
	return &models.Issue{
		Status:     models.IssueStatusAssigned,
		AssignedTo: models.RolePlumber,
		StatusHistory: []models.StatusEntry{
			{Status: models.IssueStatusOpen, At: openedAt},
			{Status: models.IssueStatusAssigned, At: assignedAt},
		},
		CreatedAt: openedAt,
	}
}

func TestEvaluateOpenBoundary(t *testing.T) {
	// 23h59m since opened: still on time.
	issue := openIssue(now.Add(-(23*time.Hour + 59*time.Minute)))
	assert.Equal(t, FlagOnTime, Evaluate(issue, now))

	// 24h01m: delayed.
	issue = openIssue(now.Add(-(24*time.Hour + 1*time.Minute)))
	assert.Equal(t, FlagDelayed, Evaluate(issue, now))
}

func TestEvaluateAssignedBoundary(t *testing.T) {
	opened := now.Add(-72 * time.Hour)

	issue := assignedIssue(opened, now.Add(-47*time.Hour))
	assert.Equal(t, FlagOnTime, Evaluate(issue, now))

	issue = assignedIssue(opened, now.Add(-49*time.Hour))
	assert.Equal(t, FlagOverdue, Evaluate(issue, now))
}

func TestEvaluateInProgressAndResolvedOnTime(t *testing.T) {
	opened := now.Add(-200 * time.Hour)
	issue := assignedIssue(opened, opened)
	issue.Status = models.IssueStatusInProgress
	assert.Equal(t, FlagOnTime, Evaluate(issue, now))

	issue.Status = models.IssueStatusResolved
	assert.Equal(t, FlagOnTime, Evaluate(issue, now))
}

func TestEvaluateMissingHistoryDegrades(t *testing.T) {
	issue := &models.Issue{Status: models.IssueStatusOpen}
	assert.Equal(t, FlagOnTime, Evaluate(issue, now))

	issue = &models.Issue{Status: models.IssueStatusAssigned}
	assert.Equal(t, FlagOnTime, Evaluate(issue, now))
}

func TestFlagOrdering(t *testing.T) {
	// Overdue sorts before delayed, delayed before on-time.
	assert.Less(t, int(FlagOverdue), int(FlagDelayed))
	assert.Less(t, int(FlagDelayed), int(FlagOnTime))
}

func TestFlagString(t *testing.T) {
	assert.Equal(t, "overdue", FlagOverdue.String())
	assert.Equal(t, "delayed", FlagDelayed.String())
	assert.Equal(t, "on-time", FlagOnTime.String())
}

func TestDisplayOpenRemaining(t *testing.T) {
	issue := openIssue(now.Add(-20 * time.Hour))
	d := DisplayFor(issue, now)
	assert.Equal(t, "4h 0m remaining", d.Label)
	assert.Equal(t, TierRemaining, d.Tier)
}

func TestDisplayOpenBreached(t *testing.T) {
	issue := openIssue(now.Add(-(26*time.Hour + 30*time.Minute)))
	d := DisplayFor(issue, now)
	assert.Equal(t, "breached by 2h 30m", d.Label)
	assert.Equal(t, TierBreached, d.Tier)
}

func TestDisplayAssignedUsesAssignedEntry(t *testing.T) {
	opened := now.Add(-100 * time.Hour)
	issue := assignedIssue(opened, now.Add(-40*time.Hour))
	d := DisplayFor(issue, now)
	assert.Equal(t, "8h 0m remaining", d.Label)
	assert.Equal(t, TierRemaining, d.Tier)
}

func TestDisplayAssignedFallbackToCreatedAt(t *testing.T) {
	// No assigned history entry: deadline counts from creation.
	issue := &models.Issue{
		Status:    models.IssueStatusAssigned,
		CreatedAt: now.Add(-47 * time.Hour),
	}
	d := DisplayFor(issue, now)
	assert.Equal(t, "1h 0m remaining", d.Label)
}

func TestDisplayResolved(t *testing.T) {
	issue := openIssue(now.Add(-300 * time.Hour))
	issue.Status = models.IssueStatusResolved
	d := DisplayFor(issue, now)
	assert.Equal(t, "complete", d.Label)
	assert.Equal(t, TierComplete, d.Tier)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{45 * time.Minute, "45m"},
		{0, "0m"},
		{time.Hour, "1h 0m"},
		{3*time.Hour + 20*time.Minute, "3h 20m"},
		{25 * time.Hour, "25h 0m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatDuration(tt.d))
	}
}
