package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"ecommerce-datagen/internal/models"
)

var (
	// ErrInvalidQuantity is returned for a reservation of zero or fewer units
	ErrInvalidQuantity = errors.New("reservation quantity must be positive")
	// ErrLedgerFrozen is returned for a reservation after generation completed
	ErrLedgerFrozen = errors.New("ledger is frozen")
)

// Snapshot is a consistent read of one ledger entry
type Snapshot struct {
	ProductID  string  `json:"product_id"`
	CategoryID string  `json:"category_id"`
	Stock      int     `json:"current_stock"`
	Active     bool    `json:"is_active"`
	Price      float64 `json:"base_price"`
}

// Available reports whether the product can currently be sold
func (s Snapshot) Available() bool {
	return s.Active && s.Stock > 0
}

// Ledger owns live stock counts. Insufficient stock and unknown products are
// reported as (false, nil); errors mean the ledger itself failed.
type Ledger interface {
	Reserve(ctx context.Context, productID string, qty int) (bool, error)
	Release(ctx context.Context, productID string, qty int) error
	Lookup(ctx context.Context, productID string) (Snapshot, bool, error)
	Stock(ctx context.Context) (map[string]int, error)
	Freeze()
}

type entry struct {
	stock      atomic.Int64
	active     bool
	price      float64
	categoryID string
}

// MemoryLedger keeps one atomic counter per product. The entry map is built
// once and never written afterwards, so operations on different products
// share no lock.
type MemoryLedger struct {
	entries map[string]*entry
	frozen  atomic.Bool
}

// NewMemoryLedger creates a ledger seeded with the products' stock
func NewMemoryLedger(products []models.Product) (*MemoryLedger, error) {
	entries := make(map[string]*entry, len(products))
	for _, p := range products {
		if p.Stock < 0 {
			return nil, fmt.Errorf("product %s has negative initial stock %d", p.ID, p.Stock)
		}
		if _, dup := entries[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %s", p.ID)
		}
		e := &entry{active: p.Active, price: p.Price, categoryID: p.CategoryID}
		e.stock.Store(int64(p.Stock))
		entries[p.ID] = e
	}
	return &MemoryLedger{entries: entries}, nil
}

// Reserve atomically takes qty units of productID if that many are in stock
func (l *MemoryLedger) Reserve(_ context.Context, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	if l.frozen.Load() {
		return false, ErrLedgerFrozen
	}

	e, ok := l.entries[productID]
	if !ok {
		return false, nil
	}

	want := int64(qty)
	for {
		cur := e.stock.Load()
		if cur < want {
			return false, nil
		}
		if e.stock.CompareAndSwap(cur, cur-want) {
			return true, nil
		}
	}
}

// Release returns qty units taken by a reservation that was not committed
func (l *MemoryLedger) Release(_ context.Context, productID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	if l.frozen.Load() {
		return ErrLedgerFrozen
	}

	e, ok := l.entries[productID]
	if !ok {
		return fmt.Errorf("release of unknown product %s", productID)
	}
	e.stock.Add(int64(qty))
	return nil
}

// Lookup returns the current state of productID
func (l *MemoryLedger) Lookup(_ context.Context, productID string) (Snapshot, bool, error) {
	e, ok := l.entries[productID]
	if !ok {
		return Snapshot{}, false, nil
	}
	return Snapshot{
		ProductID:  productID,
		CategoryID: e.categoryID,
		Stock:      int(e.stock.Load()),
		Active:     e.active,
		Price:      e.price,
	}, true, nil
}

// Stock returns product id -> current stock
func (l *MemoryLedger) Stock(_ context.Context) (map[string]int, error) {
	out := make(map[string]int, len(l.entries))
	for id, e := range l.entries {
		out[id] = int(e.stock.Load())
	}
	return out, nil
}

// Freeze makes every later Reserve fail with ErrLedgerFrozen. Callers freeze
// only once all reserving goroutines have returned.
func (l *MemoryLedger) Freeze() {
	l.frozen.Store(true)
}
