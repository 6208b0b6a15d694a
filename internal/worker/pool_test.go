package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleWorkerRunsInOrder(t *testing.T) {
	pool := NewPool(0)
	assert.Equal(t, 1, pool.Size())

	var order []int
	err := pool.Run(context.Background(), 5, func(_ context.Context, i int) error {
		order = append(order, i)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestPoolRunsEveryTask(t *testing.T) {
	pool := NewPool(8)
	seen := make([]int32, 1000)

	err := pool.Run(context.Background(), len(seen), func(_ context.Context, i int) error {
		atomic.AddInt32(&seen[i], 1)
		return nil
	})
	require.NoError(t, err)
	for i, n := range seen {
		assert.Equal(t, int32(1), n, "task %d", i)
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(3)
	var running, peak atomic.Int32

	err := pool.Run(context.Background(), 200, func(_ context.Context, _ int) error {
		cur := running.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		running.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestPoolStopsOnError(t *testing.T) {
	boom := errors.New("boom")

	for _, size := range []int{1, 4} {
		pool := NewPool(size)
		err := pool.Run(context.Background(), 100, func(_ context.Context, i int) error {
			if i == 10 {
				return boom
			}
			return nil
		})
		assert.ErrorIs(t, err, boom, "size %d", size)
	}
}

func TestPoolHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	err := NewPool(1).Run(ctx, 10, func(_ context.Context, _ int) error {
		calls.Add(1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), calls.Load())
}
