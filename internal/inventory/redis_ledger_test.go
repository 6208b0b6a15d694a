package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ecommerce-datagen/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStockStore mimics the Lua script semantics with a mutex
type fakeStockStore struct {
	mu    sync.Mutex
	stock map[string]int
	err   error
}

func (f *fakeStockStore) ReserveStock(_ context.Context, productID string, quantity int) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, false, f.err
	}
	available, ok := f.stock[productID]
	if !ok {
		return false, false, nil
	}
	if available < quantity {
		return false, true, nil
	}
	f.stock[productID] = available - quantity
	return true, true, nil
}

func (f *fakeStockStore) ReleaseStock(_ context.Context, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.stock[productID] += quantity
	return nil
}

func (f *fakeStockStore) InitInventory(_ context.Context, stock map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock = make(map[string]int, len(stock))
	for k, v := range stock {
		f.stock[k] = v
	}
	return nil
}

func (f *fakeStockStore) GetAvailable(_ context.Context, productID string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.stock[productID]
	return v, ok, nil
}

func (f *fakeStockStore) GetAvailableMany(_ context.Context, productIDs []string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(productIDs))
	for _, id := range productIDs {
		if v, ok := f.stock[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func TestRedisLedger(t *testing.T) {
	ctx := context.Background()
	store := &fakeStockStore{}
	l, err := NewRedisLedger(ctx, store, []models.Product{
		{ID: "p1", Stock: 4, Active: true, Price: 12.5, CategoryID: "cat_001"},
		{ID: "p2", Stock: 0, Active: false, Price: 3},
	})
	require.NoError(t, err)

	ok, err := l.Reserve(ctx, "p1", 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Reserve(ctx, "p1", 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Reserve(ctx, "nope", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = l.Reserve(ctx, "p1", -2)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	ok, err = l.Reserve(ctx, "p1", 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, l.Release(ctx, "p1", 1))
	assert.Error(t, l.Release(ctx, "nope", 1))

	snap, found, err := l.Lookup(ctx, "p1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, Snapshot{ProductID: "p1", CategoryID: "cat_001", Stock: 1, Active: true, Price: 12.5}, snap)

	snap, _, _ = l.Lookup(ctx, "p2")
	assert.False(t, snap.Available())

	stock, err := l.Stock(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"p1": 1, "p2": 0}, stock)

	l.Freeze()
	_, err = l.Reserve(ctx, "p1", 1)
	assert.ErrorIs(t, err, ErrLedgerFrozen)
}

func TestRedisLedgerSurfacesStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := &fakeStockStore{}
	l, err := NewRedisLedger(ctx, store, []models.Product{{ID: "p1", Stock: 4}})
	require.NoError(t, err)

	store.err = errors.New("connection refused")
	_, err = l.Reserve(ctx, "p1", 1)
	assert.Error(t, err)
}

func TestRedisLedgerMissingKey(t *testing.T) {
	ctx := context.Background()
	store := &fakeStockStore{}
	l, err := NewRedisLedger(ctx, store, []models.Product{{ID: "p1", Stock: 4}})
	require.NoError(t, err)

	delete(store.stock, "p1")
	_, err = l.Reserve(ctx, "p1", 1)
	assert.ErrorContains(t, err, "missing from redis")
}
