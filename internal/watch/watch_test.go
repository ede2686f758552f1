package watch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusfix/campusfix/internal/models"
	"github.com/campusfix/campusfix/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSubscribeInitialSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	issue := &models.Issue{
		Title:    "Tap leaking",
		Category: models.CategoryWater,
		Status:   models.IssueStatusOpen,
	}
	require.NoError(t, s.CreateIssue(ctx, issue))

	ch, cancel := Subscribe(ctx, s, store.IssueFilter{}, time.Minute)
	defer cancel()

	select {
	case snap := <-ch:
		require.NoError(t, snap.Err)
		require.Len(t, snap.Issues, 1)
		assert.Equal(t, issue.ID, snap.Issues[0].ID)
		assert.False(t, snap.At.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("no initial snapshot delivered")
	}
}

func TestSubscribeSeesNewIssues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ch, cancel := Subscribe(ctx, s, store.IssueFilter{}, 20*time.Millisecond)
	defer cancel()

	// First snapshot is empty.
	snap := <-ch
	require.NoError(t, snap.Err)
	assert.Empty(t, snap.Issues)

	require.NoError(t, s.CreateIssue(ctx, &models.Issue{
		Title:  "Fan not working",
		Status: models.IssueStatusOpen,
	}))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap := <-ch:
			require.NoError(t, snap.Err)
			if len(snap.Issues) == 1 {
				return
			}
		case <-deadline:
			t.Fatal("snapshot never reflected the new issue")
		}
	}
}

func TestSubscribeCancelClosesStream(t *testing.T) {
	s := newTestStore(t)

	ch, cancel := Subscribe(context.Background(), s, store.IssueFilter{}, 10*time.Millisecond)
	<-ch
	cancel()

	// The channel drains and closes shortly after cancellation.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}

func TestSubscribeErrorKeepsStreamOpen(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	ch, cancel := Subscribe(context.Background(), s, store.IssueFilter{}, 10*time.Millisecond)
	defer cancel()

	snap := <-ch
	assert.Error(t, snap.Err)

	// The stream keeps delivering despite the error.
	select {
	case snap, ok := <-ch:
		require.True(t, ok)
		assert.Error(t, snap.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("stream stalled after error")
	}
}
