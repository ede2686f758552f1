// Package lifecycle enforces the issue state machine:
// open -> assigned -> in_progress -> resolved, with soft delete reachable
// only from resolved. Every transition appends to the status history; no
// entry is ever edited or removed.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campusfix/campusfix/internal/models"
	"github.com/campusfix/campusfix/internal/store"
)

var (
	ErrAlreadyAssigned   = errors.New("issue is already assigned")
	ErrNotOpen           = errors.New("issue is not open")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotResolved       = errors.New("issue is not resolved")
	ErrAlreadyDeleted    = errors.New("issue is already deleted")
	ErrInvalidStaffRole  = errors.New("unknown staff role")
)

// validAdvances lists the permitted forward transitions. Assignment is
// mandatory: open never advances directly, and nothing moves backward.
var validAdvances = map[models.IssueStatus][]models.IssueStatus{
	models.IssueStatusAssigned:   {models.IssueStatusInProgress, models.IssueStatusResolved},
	models.IssueStatusInProgress: {models.IssueStatusResolved},
}

// CanAdvance reports whether the transition from -> to is permitted.
func CanAdvance(from, to models.IssueStatus) bool {
	for _, next := range validAdvances[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AvailableActions returns the statuses an issue can advance to from its
// current state. The UI offers only these; invalid requests are simply
// never presented as actions.
func AvailableActions(issue *models.Issue) []models.IssueStatus {
	if issue.IsDeleted {
		return nil
	}
	return validAdvances[issue.Status]
}

// Assign assigns an open, unassigned issue to a staff role and advances it
// to assigned in one atomic store write.
func Assign(ctx context.Context, s store.Store, issue *models.Issue, role models.StaffRole, adminID string, now time.Time) error {
	if !models.ValidStaffRole(role) {
		return fmt.Errorf("%w: %s", ErrInvalidStaffRole, role)
	}
	if issue.Assigned() {
		return ErrAlreadyAssigned
	}
	if issue.Status != models.IssueStatusOpen {
		return fmt.Errorf("%w: status is %s", ErrNotOpen, issue.Status)
	}

	at := now.UTC()
	entry := models.StatusEntry{
		Status: models.IssueStatusAssigned,
		At:     at,
		Note:   "Assigned to " + string(role),
	}

	updated := *issue
	updated.AssignedTo = role
	updated.AssignedAt = &at
	updated.AssignedBy = adminID
	updated.Status = models.IssueStatusAssigned
	updated.StatusHistory = appendHistory(issue.StatusHistory, entry)

	return commit(ctx, s, issue, &updated, entry)
}

// Advance moves an issue forward to next, appending a history entry.
func Advance(ctx context.Context, s store.Store, issue *models.Issue, next models.IssueStatus, now time.Time) error {
	if !CanAdvance(issue.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, issue.Status, next)
	}

	entry := models.StatusEntry{Status: next, At: now.UTC()}

	updated := *issue
	updated.Status = next
	updated.StatusHistory = appendHistory(issue.StatusHistory, entry)

	return commit(ctx, s, issue, &updated, entry)
}

// SoftDelete hides a resolved issue from default views. The record is
// never physically removed, and the deletion is recorded in the history.
// Callers must obtain explicit confirmation from the acting admin first.
func SoftDelete(ctx context.Context, s store.Store, issue *models.Issue, adminID string, now time.Time) error {
	if issue.IsDeleted {
		return ErrAlreadyDeleted
	}
	if issue.Status != models.IssueStatusResolved {
		return fmt.Errorf("%w: status is %s", ErrNotResolved, issue.Status)
	}

	at := now.UTC()
	entry := models.StatusEntry{
		Status: models.IssueStatusDeleted,
		At:     at,
		Note:   "Deleted by admin",
	}

	updated := *issue
	updated.IsDeleted = true
	updated.DeletedAt = &at
	updated.DeletedBy = adminID
	updated.StatusHistory = appendHistory(issue.StatusHistory, entry)

	return commit(ctx, s, issue, &updated, entry)
}

// appendHistory copies before appending so a failed write never leaves the
// caller's slice aliased to the new entry.
func appendHistory(history []models.StatusEntry, entry models.StatusEntry) []models.StatusEntry {
	return append(append([]models.StatusEntry(nil), history...), entry)
}

// commit persists the updated issue and copies it back to the caller only on
// success. A failed write leaves the caller's issue exactly as it was read.
func commit(ctx context.Context, s store.Store, issue, updated *models.Issue, entry models.StatusEntry) error {
	if err := s.TransitionIssue(ctx, updated, entry); err != nil {
		return err
	}
	*issue = *updated
	return nil
}
