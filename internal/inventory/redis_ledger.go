package inventory

import (
	"context"
	"fmt"
	"sync/atomic"

	"ecommerce-datagen/internal/models"
	"ecommerce-datagen/internal/util"

	"go.uber.org/zap"
)

// StockStore is the remote counter store behind a RedisLedger
type StockStore interface {
	ReserveStock(ctx context.Context, productID string, quantity int) (reserved, found bool, err error)
	ReleaseStock(ctx context.Context, productID string, quantity int) error
	InitInventory(ctx context.Context, stock map[string]int) error
	GetAvailable(ctx context.Context, productID string) (int, bool, error)
	GetAvailableMany(ctx context.Context, productIDs []string) (map[string]int, error)
}

type productMeta struct {
	active     bool
	price      float64
	categoryID string
}

// RedisLedger keeps stock in Redis, where each reservation is a single Lua
// script call on the product's own key. Catalog metadata stays in memory.
type RedisLedger struct {
	store  StockStore
	meta   map[string]productMeta
	ids    []string
	frozen atomic.Bool
	logger *zap.Logger
}

// NewRedisLedger loads the products' stock into store
func NewRedisLedger(ctx context.Context, store StockStore, products []models.Product) (*RedisLedger, error) {
	meta := make(map[string]productMeta, len(products))
	ids := make([]string, 0, len(products))
	stock := make(map[string]int, len(products))

	for _, p := range products {
		if p.Stock < 0 {
			return nil, fmt.Errorf("product %s has negative initial stock %d", p.ID, p.Stock)
		}
		meta[p.ID] = productMeta{active: p.Active, price: p.Price, categoryID: p.CategoryID}
		ids = append(ids, p.ID)
		stock[p.ID] = p.Stock
	}

	if err := store.InitInventory(ctx, stock); err != nil {
		return nil, fmt.Errorf("failed to init redis inventory: %w", err)
	}

	l := &RedisLedger{
		store:  store,
		meta:   meta,
		ids:    ids,
		logger: util.GetLogger(),
	}
	l.logger.Info("Inventory loaded into Redis", zap.Int("count", len(ids)))
	return l, nil
}

// Reserve reserves qty units through the Lua script
func (l *RedisLedger) Reserve(ctx context.Context, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	if l.frozen.Load() {
		return false, ErrLedgerFrozen
	}
	if _, ok := l.meta[productID]; !ok {
		return false, nil
	}

	reserved, found, err := l.store.ReserveStock(ctx, productID, qty)
	if err != nil {
		l.logger.Error("Redis reservation failed",
			zap.String("product_id", productID),
			zap.Int("quantity", qty),
			zap.Error(err))
		return false, err
	}
	if !found {
		return false, fmt.Errorf("inventory for product %s missing from redis", productID)
	}
	return reserved, nil
}

// Release returns qty units of an uncommitted reservation
func (l *RedisLedger) Release(ctx context.Context, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	if l.frozen.Load() {
		return ErrLedgerFrozen
	}
	if _, ok := l.meta[productID]; !ok {
		return fmt.Errorf("release of unknown product %s", productID)
	}

	if err := l.store.ReleaseStock(ctx, productID, qty); err != nil {
		l.logger.Error("Failed to release stock in Redis",
			zap.String("product_id", productID),
			zap.Error(err))
		return err
	}
	return nil
}

// Lookup reads the product's current stock from Redis
func (l *RedisLedger) Lookup(ctx context.Context, productID string) (Snapshot, bool, error) {
	m, ok := l.meta[productID]
	if !ok {
		return Snapshot{}, false, nil
	}

	stock, found, err := l.store.GetAvailable(ctx, productID)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("failed to read stock for %s: %w", productID, err)
	}
	if !found {
		return Snapshot{}, false, nil
	}

	return Snapshot{
		ProductID:  productID,
		CategoryID: m.categoryID,
		Stock:      stock,
		Active:     m.active,
		Price:      m.price,
	}, true, nil
}

// Stock returns product id -> current stock
func (l *RedisLedger) Stock(ctx context.Context) (map[string]int, error) {
	return l.store.GetAvailableMany(ctx, l.ids)
}

// Freeze makes every later Reserve fail with ErrLedgerFrozen
func (l *RedisLedger) Freeze() {
	l.frozen.Store(true)
}
