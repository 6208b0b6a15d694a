package redisclient

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveStockScript(t *testing.T) {
	t.Skip("Integration test - requires redis")

	client, err := NewClient("localhost:6379", "", 15, "datagen-test")
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.InitInventory(ctx, map[string]int{"P": 5}))

	var wg sync.WaitGroup
	var successes atomic.Int32
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reserved, found, err := client.ReserveStock(ctx, "P", 2)
			assert.NoError(t, err)
			assert.True(t, found)
			if reserved {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	available, found, err := client.GetAvailable(ctx, "P")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, available)
	assert.Equal(t, int32(2), successes.Load())

	_, found, err = client.ReserveStock(ctx, "unknown", 1)
	assert.NoError(t, err)
	assert.False(t, found)
}
