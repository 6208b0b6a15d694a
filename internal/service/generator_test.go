package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ecommerce-datagen/internal/audit"
	"ecommerce-datagen/internal/catalog"
	"ecommerce-datagen/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(workers int) Options {
	return Options{
		Sessions:              400,
		Transactions:          150,
		TimespanDays:          30,
		WindowEnd:             testWindowEnd,
		Seed:                  42,
		Workers:               workers,
		MaxStandaloneAttempts: 500,
	}
}

func runGenerator(t *testing.T, c *catalog.Catalog, opts Options) (*Result, error) {
	t.Helper()
	return NewGenerator(c, testLedger(t, c), opts).Run(context.Background())
}

func TestRunProducesConsistentDataset(t *testing.T) {
	c := testCatalog()
	result, err := runGenerator(t, c, testOptions(1))
	require.NoError(t, err)

	require.Len(t, result.Sessions, 400)
	require.Len(t, result.Transactions, 150)
	assert.Equal(t, 400, result.Summary.Sessions)
	assert.Equal(t, 150, result.Summary.SessionTransactions+result.Summary.StandaloneTransactions)
	assert.Equal(t, result.Summary.SessionsByStatus[models.ConversionConverted], result.Summary.SessionTransactions)

	sold := 0
	for _, txn := range result.Transactions {
		for _, item := range txn.Items {
			sold += item.Quantity
		}
	}
	assert.Equal(t, sold, result.Summary.UnitsSold)

	initial, final := 0, 0
	for _, p := range result.Products {
		initial += result.InitialStock[p.ID]
		final += p.Stock
	}
	assert.Equal(t, initial-sold, final)

	assert.NoError(t, audit.Check(audit.Dataset{
		Users:        result.Users,
		Products:     result.Products,
		InitialStock: result.InitialStock,
		Sessions:     result.Sessions,
		Transactions: result.Transactions,
	}))
}

func TestRunIsReproducibleWithOneWorker(t *testing.T) {
	encode := func(r *Result) []byte {
		out, err := json.Marshal(struct {
			Products     []models.Product
			Sessions     []*models.Session
			Transactions []*models.Transaction
		}{r.Products, r.Sessions, r.Transactions})
		require.NoError(t, err)
		return out
	}

	first, err := runGenerator(t, testCatalog(), testOptions(1))
	require.NoError(t, err)
	second, err := runGenerator(t, testCatalog(), testOptions(1))
	require.NoError(t, err)

	assert.Equal(t, string(encode(first)), string(encode(second)))

	opts := testOptions(1)
	opts.Seed = 43
	other, err := runGenerator(t, testCatalog(), opts)
	require.NoError(t, err)
	assert.NotEqual(t, string(encode(first)), string(encode(other)))
}

func TestRunWithWorkersKeepsInvariants(t *testing.T) {
	opts := testOptions(8)
	opts.Sessions = 2000
	opts.Transactions = 600

	result, err := runGenerator(t, testCatalog(), opts)
	require.NoError(t, err)
	assert.Len(t, result.Sessions, 2000)
	assert.Len(t, result.Transactions, 600)

	bySession := map[string]int{}
	for _, txn := range result.Transactions {
		if txn.SessionID != nil {
			bySession[*txn.SessionID]++
		}
	}
	for _, s := range result.Sessions {
		if s.ConversionStatus == models.ConversionConverted {
			assert.Equal(t, 1, bySession[s.ID], "session %s", s.ID)
		} else {
			assert.Zero(t, bySession[s.ID], "session %s", s.ID)
		}
	}
}

func TestRunReclassifiesConversionsPastQuota(t *testing.T) {
	opts := testOptions(1)
	opts.Transactions = 1

	result, err := runGenerator(t, testCatalog(), opts)
	require.NoError(t, err)

	assert.Len(t, result.Transactions, 1)
	assert.Equal(t, 1, result.Summary.SessionTransactions)
	assert.Equal(t, 1, result.Summary.SessionsByStatus[models.ConversionConverted])
	assert.Positive(t, result.Summary.ConversionsDropped[DropReasonQuotaMet])
}

func TestRunReclassifiesConversionsWithoutStock(t *testing.T) {
	c := testCatalog()
	for i := range c.Products {
		c.Products[i].Stock = 2
	}
	opts := testOptions(1)
	opts.Transactions = 10
	opts.MaxStandaloneAttempts = 2000

	g := NewGenerator(c, testLedger(t, c), opts)
	outcomes, err := g.runSessions(context.Background(), testWindowEnd.Add(-30*24*time.Hour), testWindowEnd)
	require.NoError(t, err)

	dropped := 0
	for _, o := range outcomes {
		if o.dropped != DropReasonStockUnavailable {
			continue
		}
		dropped++
		assert.Equal(t, models.ConversionAbandoned, o.session.ConversionStatus, "session %s", o.session.ID)
		assert.Nil(t, o.transaction, "session %s", o.session.ID)
	}
	assert.Positive(t, dropped)

	result, err := runGenerator(t, c, opts)
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 10)
	assert.Positive(t, result.Summary.ConversionsDropped[DropReasonStockUnavailable])
	assert.Equal(t, result.Summary.SessionsByStatus[models.ConversionConverted], result.Summary.SessionTransactions)

	bySession := map[string]bool{}
	for _, txn := range result.Transactions {
		if txn.SessionID != nil {
			bySession[*txn.SessionID] = true
		}
	}
	for _, s := range result.Sessions {
		if s.ConversionStatus != models.ConversionConverted {
			assert.False(t, bySession[s.ID], "session %s", s.ID)
		}
	}
	for _, p := range result.Products {
		assert.GreaterOrEqual(t, p.Stock, 0)
	}
}

func TestRunTopsUpWithStandaloneTransactions(t *testing.T) {
	opts := testOptions(2)
	opts.Sessions = 20
	opts.Transactions = 200

	result, err := runGenerator(t, testCatalog(), opts)
	require.NoError(t, err)

	require.Len(t, result.Transactions, 200)
	assert.Positive(t, result.Summary.StandaloneTransactions)
	assert.Equal(t, 200, result.Summary.SessionTransactions+result.Summary.StandaloneTransactions)

	standalone := 0
	for _, txn := range result.Transactions {
		if txn.SessionID == nil {
			standalone++
			assert.NotEmpty(t, txn.Items)
		}
	}
	assert.Equal(t, result.Summary.StandaloneTransactions, standalone)

	assert.NoError(t, audit.Check(audit.Dataset{
		Users:        result.Users,
		Products:     result.Products,
		InitialStock: result.InitialStock,
		Sessions:     result.Sessions,
		Transactions: result.Transactions,
	}))
}

func TestRunFailsWhenStandaloneBudgetIsExhausted(t *testing.T) {
	c := testCatalog()
	for i := range c.Products {
		c.Products[i].Stock = 0
	}
	opts := testOptions(1)
	opts.MaxStandaloneAttempts = 20

	_, err := runGenerator(t, c, opts)
	require.ErrorIs(t, err, ErrRetryBudgetExhausted)
	assert.Contains(t, err.Error(), "could not reach target transaction count 150 (reached 0) after 20 standalone-attempt retries")
}

func TestRunWithZeroSeedIsReproducible(t *testing.T) {
	catalogAt := func() *catalog.Catalog {
		return catalog.Generate(catalog.Config{
			Categories:   4,
			Products:     40,
			Users:        20,
			TimespanDays: 30,
			WindowEnd:    testWindowEnd,
		}, 0)
	}
	opts := testOptions(1)
	opts.Seed = 0

	first, err := runGenerator(t, catalogAt(), opts)
	require.NoError(t, err)
	second, err := runGenerator(t, catalogAt(), opts)
	require.NoError(t, err)

	a, err := json.Marshal(first.Sessions)
	require.NoError(t, err)
	b, err := json.Marshal(second.Sessions)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, first.Products, second.Products)
}

func TestRunWithoutTransactionTarget(t *testing.T) {
	opts := testOptions(2)
	opts.Transactions = 0

	result, err := runGenerator(t, testCatalog(), opts)
	require.NoError(t, err)
	assert.Empty(t, result.Transactions)
	assert.Zero(t, result.Summary.SessionsByStatus[models.ConversionConverted])
	for _, p := range result.Products {
		assert.Equal(t, result.InitialStock[p.ID], p.Stock)
	}
}
