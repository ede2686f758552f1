package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusfix/campusfix/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateIssue_AssignsIDAndSeedsHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	issue := &models.Issue{
		Title:        "Tap leaking",
		Description:  "Won't close fully",
		Category:     models.CategoryWater,
		Urgency:      models.UrgencyMedium,
		UrgencyScore: 2,
		Location:     "Hostel A",
		Status:       models.IssueStatusOpen,
		CreatedBy:    "student-1",
		AutoReason:   "Rule-based classification",
	}
	require.NoError(t, s.CreateIssue(ctx, issue))
	assert.NotEmpty(t, issue.ID)
	assert.False(t, issue.CreatedAt.IsZero())

	got, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, issue.Title, got.Title)
	assert.Equal(t, models.CategoryWater, got.Category)
	assert.Equal(t, 2, got.UrgencyScore)
	assert.Equal(t, "student-1", got.CreatedBy)
	assert.False(t, got.IsDeleted)
	require.Len(t, got.StatusHistory, 1)
	assert.Equal(t, models.IssueStatusOpen, got.StatusHistory[0].Status)
}

func TestGetIssue_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetIssue(context.Background(), "NOPE")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListIssues_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed := []*models.Issue{
		{Title: "Tap leaking", Category: models.CategoryWater, Urgency: models.UrgencyMedium,
			Location: "Hostel A", Status: models.IssueStatusOpen, CreatedBy: "student-1"},
		{Title: "Wifi down", Category: models.CategoryWifi, Urgency: models.UrgencyHigh,
			Location: "Hostel B", Status: models.IssueStatusOpen, CreatedBy: "student-2"},
		{Title: "Fan fixed", Category: models.CategoryElectricity, Urgency: models.UrgencyLow,
			Location: "Hostel A", Status: models.IssueStatusResolved, CreatedBy: "student-1"},
	}
	for _, issue := range seed {
		require.NoError(t, s.CreateIssue(ctx, issue))
	}

	tests := []struct {
		name   string
		filter IssueFilter
		want   int
	}{
		{"no filter", IssueFilter{}, 3},
		{"by status", IssueFilter{Status: models.IssueStatusOpen}, 2},
		{"by category", IssueFilter{Category: models.CategoryWifi}, 1},
		{"by urgency", IssueFilter{Urgency: models.UrgencyHigh}, 1},
		{"by location", IssueFilter{Location: "Hostel A"}, 2},
		{"by creator", IssueFilter{CreatedBy: "student-1"}, 2},
		{"compound", IssueFilter{Location: "Hostel A", Status: models.IssueStatusOpen}, 1},
		{"limit", IssueFilter{Limit: 2}, 2},
		{"no match", IssueFilter{Category: models.CategoryMess}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues, err := s.ListIssues(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, issues, tt.want)
		})
	}
}

func TestListIssues_ExcludesDeletedByDefault(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	live := &models.Issue{Title: "Live", Status: models.IssueStatusOpen}
	require.NoError(t, s.CreateIssue(ctx, live))

	now := time.Now().UTC()
	gone := &models.Issue{
		Title:     "Gone",
		Status:    models.IssueStatusResolved,
		IsDeleted: true,
		DeletedAt: &now,
		DeletedBy: "admin-1",
	}
	require.NoError(t, s.CreateIssue(ctx, gone))

	issues, err := s.ListIssues(ctx, IssueFilter{})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Live", issues[0].Title)

	issues, err = s.ListIssues(ctx, IssueFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, issues, 2)
}

func TestListIssues_CreatedAfter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	issue := &models.Issue{Title: "Recent", Status: models.IssueStatusOpen}
	require.NoError(t, s.CreateIssue(ctx, issue))

	issues, err := s.ListIssues(ctx, IssueFilter{CreatedAfter: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.Len(t, issues, 1)

	issues, err = s.ListIssues(ctx, IssueFilter{CreatedAfter: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestListIssues_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &models.Issue{Title: "First", Status: models.IssueStatusOpen}
	require.NoError(t, s.CreateIssue(ctx, first))
	time.Sleep(10 * time.Millisecond)
	second := &models.Issue{Title: "Second", Status: models.IssueStatusOpen}
	require.NoError(t, s.CreateIssue(ctx, second))

	issues, err := s.ListIssues(ctx, IssueFilter{})
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "Second", issues[0].Title)
	assert.Equal(t, "First", issues[1].Title)
}

func TestUpdateIssue_OverwritesScalars(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	issue := &models.Issue{Title: "Before", Status: models.IssueStatusOpen}
	require.NoError(t, s.CreateIssue(ctx, issue))

	issue.Title = "After"
	issue.Location = "Block C"
	require.NoError(t, s.UpdateIssue(ctx, issue))

	got, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Title)
	assert.Equal(t, "Block C", got.Location)
	// History is untouched by scalar updates.
	assert.Len(t, got.StatusHistory, 1)
}

func TestUpdateIssue_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateIssue(context.Background(), &models.Issue{ID: "MISSING", Title: "x"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestTransitionIssue_UpdatesAndAppendsAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	issue := &models.Issue{Title: "Tap leaking", Status: models.IssueStatusOpen}
	require.NoError(t, s.CreateIssue(ctx, issue))

	at := time.Now().UTC()
	issue.Status = models.IssueStatusAssigned
	issue.AssignedTo = models.RolePlumber
	issue.AssignedAt = &at
	entry := models.StatusEntry{Status: models.IssueStatusAssigned, At: at, Note: "Assigned to plumber"}
	require.NoError(t, s.TransitionIssue(ctx, issue, entry))

	got, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusAssigned, got.Status)
	assert.Equal(t, models.RolePlumber, got.AssignedTo)
	require.Len(t, got.StatusHistory, 2)
	assert.Equal(t, models.IssueStatusAssigned, got.StatusHistory[1].Status)
	assert.Equal(t, "Assigned to plumber", got.StatusHistory[1].Note)
}

func TestTransitionIssue_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.TransitionIssue(context.Background(), &models.Issue{ID: "MISSING"},
		models.StatusEntry{Status: models.IssueStatusAssigned, At: time.Now()})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)

	// Running again must be a no-op.
	require.NoError(t, s.Migrate(context.Background()))
}
