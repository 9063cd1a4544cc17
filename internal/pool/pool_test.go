// File: internal/pool/pool_test.go
package pool_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/codewarden/warden-cli/internal/pool"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMapPreservesInputOrder(t *testing.T) {
	// -- Setup --
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	// Later items finish first, so completion order is reversed.
	op := func(ctx context.Context, n int) (string, error) {
		time.Sleep(time.Duration(len(items)-n) * time.Millisecond / 10)
		return fmt.Sprintf("item-%d", n), nil
	}

	// -- Execution --
	results := pool.Map(context.Background(), items, 8, op)

	// -- Assertions --
	require.Len(t, results, len(items))
	want := make([]string, len(items))
	got := make([]string, len(items))
	for i, r := range results {
		require.NoError(t, r.Err)
		want[i] = fmt.Sprintf("item-%d", i)
		got[i] = r.Value
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("output order diverged from input order (-want +got):\n%s", diff)
	}
}

func TestMapRespectsConcurrencyBound(t *testing.T) {
	// -- Setup --
	const limit = 3
	var inFlight, peak atomic.Int64

	op := func(ctx context.Context, n int) (int, error) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return n, nil
	}

	// -- Execution --
	pool.Map(context.Background(), make([]int, 40), limit, op)

	// -- Assertions --
	assert.LessOrEqual(t, peak.Load(), int64(limit),
		"no more than maxConcurrency operations may be in flight")
	assert.Greater(t, peak.Load(), int64(1), "work should actually overlap")
}

func TestMapToleratesPartialFailure(t *testing.T) {
	// -- Setup --
	boom := errors.New("boom")
	op := func(ctx context.Context, n int) (int, error) {
		if n%3 == 0 {
			return 0, boom
		}
		return n * 10, nil
	}
	items := []int{0, 1, 2, 3, 4, 5}

	// -- Execution --
	results := pool.Map(context.Background(), items, 2, op)

	// -- Assertions --
	require.Len(t, results, len(items))
	for i, r := range results {
		if i%3 == 0 {
			assert.ErrorIs(t, r.Err, boom, "slot %d must carry its own error", i)
		} else {
			require.NoError(t, r.Err)
			assert.Equal(t, i*10, r.Value, "failures must not disturb sibling slots")
		}
	}
}

func TestMapEdgeCases(t *testing.T) {
	op := func(ctx context.Context, n int) (int, error) { return n, nil }

	assert.Empty(t, pool.Map(context.Background(), nil, 4, op))

	// A non-positive bound degrades to serial execution rather than failing.
	results := pool.Map(context.Background(), []int{7, 8}, 0, op)
	require.Len(t, results, 2)
	assert.Equal(t, 7, results[0].Value)
	assert.Equal(t, 8, results[1].Value)

	// A bound larger than the item count is fine.
	results = pool.Map(context.Background(), []int{1}, 64, op)
	require.Len(t, results, 1)
}

func TestMapBatchesRunsInWaves(t *testing.T) {
	// -- Setup --
	const batchSize = 4
	var inFlight, peak atomic.Int64
	var mu sync.Mutex
	var order []int

	op := func(ctx context.Context, n int) (int, error) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		mu.Lock()
		order = append(order, n)
		mu.Unlock()
		inFlight.Add(-1)
		return n, nil
	}
	items := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	// -- Execution --
	results := pool.MapBatches(context.Background(), items, batchSize, op)

	// -- Assertions --
	require.Len(t, results, len(items))
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, i, r.Value)
	}
	assert.LessOrEqual(t, peak.Load(), int64(batchSize))

	// Waves are strictly ordered: everything from wave 0 completes before
	// anything from wave 1 starts.
	wave := func(n int) int { return n / batchSize }
	seenWave := 0
	for _, n := range order {
		require.GreaterOrEqual(t, wave(n), seenWave, "item %d ran before its wave", n)
		seenWave = wave(n)
	}
}

func TestMapBatchesPartialFailure(t *testing.T) {
	boom := errors.New("boom")
	op := func(ctx context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	}

	results := pool.MapBatches(context.Background(), []int{0, 1, 2, 3, 4}, 2, op)

	require.Len(t, results, 5)
	assert.ErrorIs(t, results[2].Err, boom)
	assert.Equal(t, 4, results[4].Value, "later waves still run after a failure")
}
