package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ecommerce-datagen/internal/util"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Store writes the generated dataset to a SQL database
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewStore connects to the database and creates the tables if missing
func NewStore(ctx context.Context, driver, databaseURL string) (*Store, error) {
	db, err := sqlx.Connect(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// an in-memory database lives and dies with its connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, logger: util.GetLogger()}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		category_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		subcategories TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category_id TEXT NOT NULL,
		subcategory_id TEXT NOT NULL,
		base_price DOUBLE PRECISION NOT NULL,
		current_stock INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL,
		price_history TEXT NOT NULL,
		creation_date TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		geo_data TEXT NOT NULL,
		registration_date TIMESTAMP NOT NULL,
		last_active TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		duration_seconds INTEGER NOT NULL,
		geo_data TEXT NOT NULL,
		device_profile TEXT NOT NULL,
		viewed_products TEXT NOT NULL,
		page_views TEXT NOT NULL,
		cart_contents TEXT NOT NULL,
		conversion_status TEXT NOT NULL,
		referrer TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		transaction_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_id TEXT,
		transaction_time TIMESTAMP NOT NULL,
		items TEXT NOT NULL,
		subtotal DOUBLE PRECISION NOT NULL,
		discount DOUBLE PRECISION NOT NULL,
		total DOUBLE PRECISION NOT NULL,
		payment_method TEXT NOT NULL,
		status TEXT NOT NULL
	)`,
}

// Tables lists the tables the store writes
var Tables = []string{"categories", "products", "users", "sessions", "transactions"}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// insertRows runs query once per row inside one database transaction
func (s *Store) insertRows(ctx context.Context, table, query string, n int, args func(i int) ([]interface{}, error)) error {
	ctx, span := util.StartSpan(ctx, "Store.insert."+table)
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, s.db.Rebind(query))
	if err != nil {
		return fmt.Errorf("failed to prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		row, err := args(i)
		if err != nil {
			return fmt.Errorf("failed to encode %s row %d: %w", table, i, err)
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert %s row %d: %w", table, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}
	s.logger.Info("Stored rows", zap.String("table", table), zap.Int("rows", n))
	return nil
}

// Counts returns the number of rows per table
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(Tables))
	for _, table := range Tables {
		var n int
		if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		out[table] = n
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
