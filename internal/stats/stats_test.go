package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusfix/campusfix/internal/models"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func issue(cat models.IssueCategory, urg models.IssueUrgency, loc string, status models.IssueStatus, age time.Duration) *models.Issue {
	createdAt := now.Add(-age)
	i := &models.Issue{
		Category:  cat,
		Urgency:   urg,
		Location:  loc,
		Status:    status,
		CreatedAt: createdAt,
		StatusHistory: []models.StatusEntry{
			{Status: models.IssueStatusOpen, At: createdAt},
		},
	}
	if status == models.IssueStatusResolved {
		i.StatusHistory = append(i.StatusHistory,
			models.StatusEntry{Status: models.IssueStatusAssigned, At: createdAt},
			models.StatusEntry{Status: models.IssueStatusResolved, At: createdAt.Add(time.Hour)})
	}
	return i
}

func TestComputeCounts(t *testing.T) {
	issues := []*models.Issue{
		issue(models.CategoryWater, models.UrgencyHigh, "Hostel A", models.IssueStatusOpen, time.Hour),
		issue(models.CategoryWater, models.UrgencyMedium, "Hostel A", models.IssueStatusOpen, 2*time.Hour),
		issue(models.CategoryWifi, models.UrgencyLow, "Hostel B", models.IssueStatusOpen, time.Hour),
	}

	w := Compute(issues, now)
	assert.Equal(t, 3, w.Total)
	assert.Equal(t, 2, w.ByCategory["water"])
	assert.Equal(t, 1, w.ByCategory["wifi"])
	assert.Equal(t, 1, w.ByUrgency["high"])
	assert.Equal(t, 2, w.ByLocation["Hostel A"])
	assert.Equal(t, 3, w.ByStatus["open"])
}

func TestComputeExcludesDeleted(t *testing.T) {
	deleted := issue(models.CategoryWater, models.UrgencyHigh, "Hostel A", models.IssueStatusResolved, time.Hour)
	deleted.IsDeleted = true

	w := Compute([]*models.Issue{deleted}, now)
	assert.Zero(t, w.Total)
	assert.Empty(t, w.ByCategory)
}

func TestComputeSLABreaches(t *testing.T) {
	issues := []*models.Issue{
		issue(models.CategoryWater, models.UrgencyHigh, "Hostel A", models.IssueStatusOpen, time.Hour),     // on-time
		issue(models.CategoryWater, models.UrgencyHigh, "Hostel A", models.IssueStatusOpen, 30*time.Hour), // delayed
	}

	w := Compute(issues, now)
	assert.Equal(t, 1, w.SLABreaches)
}

func TestComputeResolvedWindow(t *testing.T) {
	recent := issue(models.CategoryMess, models.UrgencyMedium, "Mess Hall", models.IssueStatusResolved, 2*24*time.Hour)
	ancient := issue(models.CategoryMess, models.UrgencyMedium, "Mess Hall", models.IssueStatusResolved, 20*24*time.Hour)

	w := Compute([]*models.Issue{recent, ancient}, now)
	assert.Equal(t, 1, w.Resolved7d)
}

func TestTopLocations(t *testing.T) {
	issues := []*models.Issue{
		issue(models.CategoryWater, models.UrgencyLow, "Hostel A", models.IssueStatusOpen, time.Hour),
		issue(models.CategoryWater, models.UrgencyLow, "Hostel A", models.IssueStatusOpen, time.Hour),
		issue(models.CategoryWater, models.UrgencyLow, "Hostel A", models.IssueStatusOpen, time.Hour),
		issue(models.CategoryWater, models.UrgencyLow, "Hostel B", models.IssueStatusOpen, time.Hour),
		issue(models.CategoryWater, models.UrgencyLow, "Hostel B", models.IssueStatusOpen, time.Hour),
		issue(models.CategoryWater, models.UrgencyLow, "Mess Hall", models.IssueStatusOpen, time.Hour),
		issue(models.CategoryWater, models.UrgencyLow, "Library", models.IssueStatusOpen, time.Hour),
	}

	w := Compute(issues, now)
	require.Len(t, w.Hotspots, 3)
	assert.Equal(t, Hotspot{Location: "Hostel A", Count: 3}, w.Hotspots[0])
	assert.Equal(t, Hotspot{Location: "Hostel B", Count: 2}, w.Hotspots[1])
	// Tie between Mess Hall and Library broken by name.
	assert.Equal(t, Hotspot{Location: "Library", Count: 1}, w.Hotspots[2])
}
