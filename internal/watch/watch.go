// Package watch provides a push-style subscription over the store: a poll
// loop that emits whole-collection snapshots, so consumers can treat the
// display as a pure reducer over each incoming snapshot. SLA flags are not
// stored; each snapshot only forces recomputation at render time.
package watch

import (
	"context"
	"time"

	"github.com/campusfix/campusfix/internal/models"
	"github.com/campusfix/campusfix/internal/store"
)

// DefaultInterval is the poll interval when the caller passes zero.
const DefaultInterval = 5 * time.Second

// Snapshot is one full query result delivered to the subscriber.
type Snapshot struct {
	Issues []*models.Issue
	At     time.Time
	Err    error // non-nil when the underlying query failed; the stream continues
}

// Subscribe starts polling the store with the given filter and delivers a
// snapshot immediately, then one per interval. The returned cancel func
// stops the stream and closes the channel; cancelling ctx does the same.
func Subscribe(ctx context.Context, s store.Store, filter store.IssueFilter, interval time.Duration) (<-chan Snapshot, func()) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan Snapshot, 1)

	go func() {
		defer close(ch)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		emit := func() bool {
			issues, err := s.ListIssues(ctx, filter)
			snap := Snapshot{Issues: issues, At: time.Now().UTC(), Err: err}
			select {
			case ch <- snap:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !emit() {
					return
				}
			}
		}
	}()

	return ch, cancel
}
