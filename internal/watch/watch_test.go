// File: internal/watch/watch_test.go
package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/codewarden/warden-cli/internal/watch"
)

func TestDebouncerCollapsesBursts(t *testing.T) {
	// -- Setup --
	d := watch.NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	// -- Execution --
	for i := 0; i < 5; i++ {
		d.Touch()
		time.Sleep(2 * time.Millisecond)
	}

	// -- Assertions --
	select {
	case <-d.C():
	case <-time.After(time.Second):
		t.Fatal("debouncer never fired")
	}
	select {
	case <-d.C():
		t.Fatal("burst must produce a single tick")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcherRunsAfterChange(t *testing.T) {
	// -- Setup --
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("v1"), 0o644))

	var runs atomic.Int64
	ran := make(chan struct{}, 8)
	runner := func(ctx context.Context) error {
		runs.Add(1)
		ran <- struct{}{}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- watch.New(root, 30*time.Millisecond, zaptest.NewLogger(t)).Watch(ctx, runner)
	}()

	// Give the watcher time to register before mutating the tree.
	time.Sleep(100 * time.Millisecond)

	// -- Execution --
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("v2"), 0o644))

	// -- Assertions --
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher never triggered a run")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.GreaterOrEqual(t, runs.Load(), int64(1))
}

func TestFollowFeedRunsOnEvents(t *testing.T) {
	// -- Setup --
	dir := t.TempDir()
	feedPath := filepath.Join(dir, "changes.jsonl")
	require.NoError(t, os.WriteFile(feedPath, nil, 0o644))

	ran := make(chan struct{}, 8)
	runner := func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	debounce := watch.NewDebouncer(30 * time.Millisecond)
	defer debounce.Stop()

	done := make(chan error, 1)
	go func() {
		done <- watch.FollowFeed(ctx, feedPath, debounce, runner, zaptest.NewLogger(t))
	}()

	time.Sleep(100 * time.Millisecond)

	// -- Execution --
	f, err := os.OpenFile(feedPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"path":"src/app.js","op":"write"}` + "\n" + "not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// -- Assertions --
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("feed follower never triggered a run")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestFollowFeedRequiresExistingFeed(t *testing.T) {
	debounce := watch.NewDebouncer(time.Millisecond)
	defer debounce.Stop()

	err := watch.FollowFeed(context.Background(),
		filepath.Join(t.TempDir(), "missing.jsonl"), debounce,
		func(ctx context.Context) error { return nil }, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tailing change feed")
}
