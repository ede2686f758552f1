package store

import (
	"context"
	"time"

	"github.com/campusfix/campusfix/internal/models"
)

// IssueFilter specifies filters for listing issues. Zero values mean
// "no constraint". Deleted issues are excluded unless IncludeDeleted is set.
type IssueFilter struct {
	Status         models.IssueStatus
	Category       models.IssueCategory
	Urgency        models.IssueUrgency
	Location       string
	CreatedBy      string
	AssignedTo     models.StaffRole
	CreatedAfter   time.Time
	IncludeDeleted bool
	Limit          int
}

// Store defines the persistence interface for campusfix. It stands in for
// the document store: single-issue updates are atomic, timestamps are
// assigned on write, and concurrent writers are last-writer-wins.
type Store interface {
	// CreateIssue persists a new issue, assigning its ID and timestamps.
	// An initial "open" history entry is written if none is present.
	CreateIssue(ctx context.Context, issue *models.Issue) error

	GetIssue(ctx context.Context, id string) (*models.Issue, error)

	// ListIssues returns issues newest-first with status history loaded.
	ListIssues(ctx context.Context, filter IssueFilter) ([]*models.Issue, error)

	// UpdateIssue overwrites the issue's scalar fields (last writer wins).
	// Status history is only ever written through CreateIssue and
	// TransitionIssue.
	UpdateIssue(ctx context.Context, issue *models.Issue) error

	// TransitionIssue atomically updates the issue's fields and appends one
	// status history entry in the same transaction.
	TransitionIssue(ctx context.Context, issue *models.Issue, entry models.StatusEntry) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
