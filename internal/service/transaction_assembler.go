package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"ecommerce-datagen/internal/catalog"
	"ecommerce-datagen/internal/inventory"
	"ecommerce-datagen/internal/models"
	"ecommerce-datagen/internal/money"
	"ecommerce-datagen/internal/util"

	"go.uber.org/zap"
)

// ErrRetryBudgetExhausted is returned when standalone baskets keep coming
// up empty
var ErrRetryBudgetExhausted = errors.New("standalone retry budget exhausted")

// DefaultMaxStandaloneAttempts bounds the attempts spent on one standalone
// transaction
const DefaultMaxStandaloneAttempts = 10000

const (
	discountChance   = 0.2
	maxBasketPicks   = 4
	maxStandaloneQty = 3
)

var discountRates = []float64{0.05, 0.10, 0.15, 0.20}

// TransactionAssembler commits carts and random baskets against the ledger
type TransactionAssembler struct {
	catalog     *catalog.Catalog
	ledger      inventory.Ledger
	maxAttempts int
	logger      *zap.Logger
}

// NewTransactionAssembler creates a new transaction assembler
func NewTransactionAssembler(c *catalog.Catalog, ledger inventory.Ledger, maxAttempts int) *TransactionAssembler {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxStandaloneAttempts
	}
	return &TransactionAssembler{
		catalog:     c,
		ledger:      ledger,
		maxAttempts: maxAttempts,
		logger:      util.GetLogger(),
	}
}

// FromSession commits the cart of a converted session. Every line is
// reserved or none is: when a line cannot be reserved the lines already
// reserved are released and ok is false.
func (a *TransactionAssembler) FromSession(ctx context.Context, rng *rand.Rand, session *models.Session) (*models.Transaction, bool, error) {
	ctx, span := util.StartSpan(ctx, "TransactionAssembler.FromSession")
	defer span.End()

	items := make([]models.LineItem, 0, session.Cart.Len())
	for _, productID := range session.Cart.ProductIDs() {
		entry, _ := session.Cart.Get(productID)
		if entry.Quantity <= 0 {
			continue
		}

		ok, err := a.ledger.Reserve(ctx, productID, entry.Quantity)
		if err != nil {
			a.compensateReservations(ctx, items)
			return nil, false, fmt.Errorf("failed to reserve stock for product %s: %w", productID, err)
		}
		if !ok {
			a.compensateReservations(ctx, items)
			a.logger.Debug("Cart commit aborted",
				zap.String("session_id", session.ID),
				zap.String("product_id", productID),
				zap.Int("quantity", entry.Quantity))
			return nil, false, nil
		}

		items = append(items, lineItem(productID, entry.Quantity, entry.Price))
	}

	if len(items) == 0 {
		return nil, false, nil
	}

	id, err := newID(rng, "txn_")
	if err != nil {
		a.compensateReservations(ctx, items)
		return nil, false, err
	}

	sessionID := session.ID
	txn := &models.Transaction{
		ID:            id,
		UserID:        session.UserID,
		SessionID:     &sessionID,
		Timestamp:     session.EndTime,
		Items:         items,
		PaymentMethod: pick(rng, models.PaymentMethods),
		Status:        models.TransactionStatusCompleted,
	}
	price(rng, txn)
	return txn, true, nil
}

// Standalone assembles a transaction with no session from a random basket
// timestamped within [windowStart, windowEnd]. Baskets that reserve nothing
// are retried up to the attempt budget.
func (a *TransactionAssembler) Standalone(ctx context.Context, rng *rand.Rand, windowStart, windowEnd time.Time) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "TransactionAssembler.Standalone")
	defer span.End()

	if len(a.catalog.Users) == 0 || len(a.catalog.Products) == 0 {
		return nil, fmt.Errorf("%w: catalog has no users or no products", ErrRetryBudgetExhausted)
	}

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		user := &a.catalog.Users[rng.Intn(len(a.catalog.Users))]
		ts := randomTime(rng, windowStart, windowEnd)

		items, err := a.reserveBasket(ctx, rng)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			util.StandaloneAttemptsTotal.WithLabelValues("empty").Inc()
			continue
		}
		util.StandaloneAttemptsTotal.WithLabelValues("committed").Inc()

		id, err := newID(rng, "txn_")
		if err != nil {
			a.compensateReservations(ctx, items)
			return nil, err
		}

		txn := &models.Transaction{
			ID:            id,
			UserID:        user.ID,
			Timestamp:     ts,
			Items:         items,
			PaymentMethod: pick(rng, models.PaymentMethods),
			Status:        pick(rng, models.StandaloneStatuses),
		}
		price(rng, txn)
		return txn, nil
	}

	return nil, fmt.Errorf("%w: no basket reserved any stock in %d attempts", ErrRetryBudgetExhausted, a.maxAttempts)
}

// reserveBasket draws 1..maxBasketPicks distinct products and keeps every
// active pick whose reservation succeeds
func (a *TransactionAssembler) reserveBasket(ctx context.Context, rng *rand.Rand) ([]models.LineItem, error) {
	picks := 1 + rng.Intn(maxBasketPicks)
	seen := make(map[string]struct{}, picks)
	items := make([]models.LineItem, 0, picks)

	for i := 0; i < picks; i++ {
		p := &a.catalog.Products[rng.Intn(len(a.catalog.Products))]
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}

		snap, found, err := a.ledger.Lookup(ctx, p.ID)
		if err != nil {
			a.compensateReservations(ctx, items)
			return nil, fmt.Errorf("failed to look up product %s: %w", p.ID, err)
		}
		if !found || !snap.Active {
			continue
		}

		qty := 1 + rng.Intn(maxStandaloneQty)
		ok, err := a.ledger.Reserve(ctx, p.ID, qty)
		if err != nil {
			a.compensateReservations(ctx, items)
			return nil, fmt.Errorf("failed to reserve stock for product %s: %w", p.ID, err)
		}
		if ok {
			items = append(items, lineItem(p.ID, qty, snap.Price))
		}
	}
	return items, nil
}

// compensateReservations releases reserved lines after an aborted commit
func (a *TransactionAssembler) compensateReservations(ctx context.Context, items []models.LineItem) {
	for _, item := range items {
		if err := a.ledger.Release(ctx, item.ProductID, item.Quantity); err != nil {
			a.logger.Error("Failed to release reservation",
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
		}
	}
}

func lineItem(productID string, qty int, unitPrice float64) models.LineItem {
	unit := money.Round(unitPrice)
	return models.LineItem{
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: unit,
		Subtotal:  money.Mul(unit, qty),
	}
}

// price fills subtotal, discount and total from the rounded line subtotals
func price(rng *rand.Rand, txn *models.Transaction) {
	subtotals := make([]float64, len(txn.Items))
	for i, item := range txn.Items {
		subtotals[i] = item.Subtotal
	}
	txn.Subtotal = money.Sum(subtotals...)

	if rng.Float64() < discountChance {
		txn.Discount = money.Percent(txn.Subtotal, discountRates[rng.Intn(len(discountRates))])
	}
	txn.Total = money.Sub(txn.Subtotal, txn.Discount)
}

func randomTime(rng *rand.Rand, start, end time.Time) time.Time {
	span := end.Sub(start)
	if span <= 0 {
		return start
	}
	return start.Add(time.Duration(rng.Int63n(int64(span/time.Second)+1)) * time.Second)
}
