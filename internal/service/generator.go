package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"ecommerce-datagen/internal/audit"
	"ecommerce-datagen/internal/catalog"
	"ecommerce-datagen/internal/inventory"
	"ecommerce-datagen/internal/models"
	"ecommerce-datagen/internal/pageflow"
	"ecommerce-datagen/internal/util"
	"ecommerce-datagen/internal/worker"

	"go.uber.org/zap"
)

const (
	minSessionSeconds = 30
	maxSessionSeconds = 3600
)

// Reasons a converted session is reclassified as abandoned
const (
	DropReasonStockUnavailable = "stock_unavailable"
	DropReasonQuotaMet         = "quota_met"
)

// Transaction origins
const (
	OriginSession    = "session"
	OriginStandalone = "standalone"
)

// Options controls a generation run
type Options struct {
	Sessions              int
	Transactions          int
	TimespanDays          int
	WindowEnd             time.Time
	Seed                  int64
	Workers               int
	MaxStandaloneAttempts int
}

// Summary describes a finished run
type Summary struct {
	Seed                   int64          `json:"seed"`
	Workers                int            `json:"workers"`
	Categories             int            `json:"categories"`
	Products               int            `json:"products"`
	Users                  int            `json:"users"`
	Sessions               int            `json:"sessions"`
	SessionsByStatus       map[string]int `json:"sessions_by_status"`
	Transactions           int            `json:"transactions"`
	SessionTransactions    int            `json:"session_transactions"`
	StandaloneTransactions int            `json:"standalone_transactions"`
	ConversionsDropped     map[string]int `json:"conversions_dropped"`
	UnitsSold              int            `json:"units_sold"`
	WindowStart            time.Time      `json:"window_start"`
	WindowEnd              time.Time      `json:"window_end"`
	Elapsed                string         `json:"elapsed"`
}

// Result is the complete dataset of a run. Products carry their final stock.
type Result struct {
	Categories   []models.Category
	Products     []models.Product
	Users        []models.User
	InitialStock map[string]int
	Sessions     []*models.Session
	Transactions []*models.Transaction
	Summary      Summary
}

// Generator runs sessions and transactions against one ledger. A generator
// is good for a single Run since the ledger is consumed.
type Generator struct {
	catalog     *catalog.Catalog
	ledger      inventory.Ledger
	synthesizer *SessionSynthesizer
	assembler   *TransactionAssembler
	pool        *worker.Pool
	opts        Options
	logger      *zap.Logger
}

// NewGenerator creates a new generator over the catalog and ledger
func NewGenerator(c *catalog.Catalog, ledger inventory.Ledger, opts Options) *Generator {
	pool := worker.NewPool(opts.Workers)
	return &Generator{
		catalog:     c,
		ledger:      ledger,
		synthesizer: NewSessionSynthesizer(pageflow.NewSelector(c, ledger)),
		assembler:   NewTransactionAssembler(c, ledger, opts.MaxStandaloneAttempts),
		pool:        pool,
		opts:        opts,
		logger:      util.RunLogger(opts.Seed, pool.Size()),
	}
}

// sessionOutcome is what one session task leaves in its slot
type sessionOutcome struct {
	session     *models.Session
	transaction *models.Transaction
	dropped     string
}

// Run generates the dataset, audits it and returns it. An audit failure or
// an unreachable transaction target aborts the run.
func (g *Generator) Run(ctx context.Context) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "Generator.Run")
	defer span.End()

	began := time.Now()
	windowEnd := g.opts.WindowEnd
	windowStart := windowEnd.Add(-time.Duration(g.opts.TimespanDays) * 24 * time.Hour)

	if len(g.catalog.Users) == 0 && g.opts.Sessions > 0 {
		return nil, errors.New("cannot synthesize sessions without users")
	}

	initialStock := g.catalog.InitialStock()

	g.logger.Info("Starting generation",
		zap.Int("sessions", g.opts.Sessions),
		zap.Int("target_transactions", g.opts.Transactions))

	outcomes, err := g.runSessions(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	summary := Summary{
		Seed:               g.opts.Seed,
		Workers:            g.pool.Size(),
		Categories:         len(g.catalog.Categories),
		Products:           len(g.catalog.Products),
		Users:              len(g.catalog.Users),
		SessionsByStatus:   map[string]int{},
		ConversionsDropped: map[string]int{},
		WindowStart:        windowStart,
		WindowEnd:          windowEnd,
	}

	sessions := make([]*models.Session, 0, len(outcomes))
	transactions := make([]*models.Transaction, 0, g.opts.Transactions)
	for _, o := range outcomes {
		sessions = append(sessions, o.session)
		summary.SessionsByStatus[o.session.ConversionStatus]++
		if o.dropped != "" {
			summary.ConversionsDropped[o.dropped]++
		}
		if o.transaction != nil {
			transactions = append(transactions, o.transaction)
		}
	}
	summary.SessionTransactions = len(transactions)

	transactions, err = g.topUp(ctx, transactions, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	summary.StandaloneTransactions = len(transactions) - summary.SessionTransactions

	g.ledger.Freeze()
	finalStock, err := g.ledger.Stock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final stock: %w", err)
	}

	result := &Result{
		Categories:   g.catalog.Categories,
		Products:     g.catalog.WithStock(finalStock),
		Users:        g.catalog.Users,
		InitialStock: initialStock,
		Sessions:     sessions,
		Transactions: transactions,
	}

	auditStart := time.Now()
	err = audit.Check(audit.Dataset{
		Users:        result.Users,
		Products:     result.Products,
		InitialStock: result.InitialStock,
		Sessions:     result.Sessions,
		Transactions: result.Transactions,
	})
	util.GenerationPhaseDuration.WithLabelValues("audit").Observe(time.Since(auditStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("generated dataset failed audit: %w", err)
	}

	summary.Sessions = len(sessions)
	summary.Transactions = len(transactions)
	for _, txn := range transactions {
		for _, item := range txn.Items {
			summary.UnitsSold += item.Quantity
		}
	}
	summary.Elapsed = time.Since(began).Round(time.Millisecond).String()
	result.Summary = summary

	for status, n := range summary.SessionsByStatus {
		util.SessionsGeneratedTotal.WithLabelValues(status).Add(float64(n))
	}
	for reason, n := range summary.ConversionsDropped {
		util.ConversionsDroppedTotal.WithLabelValues(reason).Add(float64(n))
	}
	util.TransactionsCommittedTotal.WithLabelValues(OriginSession).Add(float64(summary.SessionTransactions))
	util.TransactionsCommittedTotal.WithLabelValues(OriginStandalone).Add(float64(summary.StandaloneTransactions))

	g.logger.Info("Generation complete",
		zap.Int("sessions", summary.Sessions),
		zap.Int("transactions", summary.Transactions),
		zap.Int("session_transactions", summary.SessionTransactions),
		zap.Int("standalone_transactions", summary.StandaloneTransactions),
		zap.Int("units_sold", summary.UnitsSold),
		zap.String("elapsed", summary.Elapsed))

	return result, nil
}

// runSessions synthesizes every session on the worker pool. Session i draws
// from its own seeded generator and writes only slot i, so the output order
// is the index order whatever the pool size.
func (g *Generator) runSessions(ctx context.Context, windowStart, windowEnd time.Time) ([]sessionOutcome, error) {
	ctx, span := util.StartSpan(ctx, "Generator.runSessions")
	defer span.End()

	start := time.Now()
	defer func() {
		util.GenerationPhaseDuration.WithLabelValues("sessions").Observe(time.Since(start).Seconds())
	}()

	outcomes := make([]sessionOutcome, g.opts.Sessions)
	quota := int64(g.opts.Transactions)
	var claimed atomic.Int64

	err := g.pool.Run(ctx, g.opts.Sessions, func(ctx context.Context, i int) error {
		rng := rand.New(rand.NewSource(SubSeed(g.opts.Seed, i)))

		user := &g.catalog.Users[rng.Intn(len(g.catalog.Users))]
		sessionStart := randomTime(rng, windowStart, windowEnd)
		duration := minSessionSeconds + rng.Intn(maxSessionSeconds-minSessionSeconds+1)

		session, err := g.synthesizer.Synthesize(ctx, rng, user, sessionStart, duration)
		if err != nil {
			return fmt.Errorf("failed to synthesize session %d: %w", i, err)
		}
		outcome := sessionOutcome{session: session}

		if session.ConversionStatus == models.ConversionConverted {
			if claimed.Add(1) > quota {
				claimed.Add(-1)
				outcome.dropped = DropReasonQuotaMet
			} else {
				txn, ok, err := g.assembler.FromSession(ctx, rng, session)
				if err != nil {
					return fmt.Errorf("failed to commit session %s: %w", session.ID, err)
				}
				if ok {
					outcome.transaction = txn
				} else {
					claimed.Add(-1)
					outcome.dropped = DropReasonStockUnavailable
				}
			}
			if outcome.dropped != "" {
				session.ConversionStatus = models.ConversionAbandoned
			}
		}

		outcomes[i] = outcome
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

// topUp adds standalone transactions until the target count is reached
func (g *Generator) topUp(ctx context.Context, transactions []*models.Transaction, windowStart, windowEnd time.Time) ([]*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "Generator.topUp")
	defer span.End()

	start := time.Now()
	defer func() {
		util.GenerationPhaseDuration.WithLabelValues("standalone").Observe(time.Since(start).Seconds())
	}()

	rng := rand.New(rand.NewSource(g.opts.Seed))
	for len(transactions) < g.opts.Transactions {
		txn, err := g.assembler.Standalone(ctx, rng, windowStart, windowEnd)
		if errors.Is(err, ErrRetryBudgetExhausted) {
			return nil, fmt.Errorf("could not reach target transaction count %d (reached %d) after %d standalone-attempt retries: %w",
				g.opts.Transactions, len(transactions), g.assembler.maxAttempts, err)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to assemble standalone transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}
	return transactions, nil
}
