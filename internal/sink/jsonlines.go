package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ecommerce-datagen/internal/models"
	"ecommerce-datagen/internal/util"

	"go.uber.org/zap"
)

// Stream file names
const (
	CategoriesFile   = "categories.json"
	ProductsFile     = "products.json"
	UsersFile        = "users.json"
	SessionsFile     = "sessions.json"
	TransactionsFile = "transactions.json"
)

// JSONLines writes one file per stream under a directory, one JSON object
// per line in stream order
type JSONLines struct {
	dir    string
	logger *zap.Logger
}

// NewJSONLines creates the output directory and returns a sink writing to it
func NewJSONLines(dir string) (*JSONLines, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &JSONLines{dir: dir, logger: util.GetLogger()}, nil
}

// Dir returns the output directory
func (j *JSONLines) Dir() string {
	return j.dir
}

func (j *JSONLines) WriteCategories(ctx context.Context, categories []models.Category) error {
	return writeLines(ctx, j, CategoriesFile, len(categories), func(i int) interface{} { return &categories[i] })
}

func (j *JSONLines) WriteProducts(ctx context.Context, products []models.Product) error {
	return writeLines(ctx, j, ProductsFile, len(products), func(i int) interface{} { return &products[i] })
}

func (j *JSONLines) WriteUsers(ctx context.Context, users []models.User) error {
	return writeLines(ctx, j, UsersFile, len(users), func(i int) interface{} { return &users[i] })
}

func (j *JSONLines) WriteSessions(ctx context.Context, sessions []*models.Session) error {
	return writeLines(ctx, j, SessionsFile, len(sessions), func(i int) interface{} { return sessions[i] })
}

func (j *JSONLines) WriteTransactions(ctx context.Context, transactions []*models.Transaction) error {
	return writeLines(ctx, j, TransactionsFile, len(transactions), func(i int) interface{} { return transactions[i] })
}

func (j *JSONLines) Close() error {
	return nil
}

func writeLines(ctx context.Context, j *JSONLines, name string, n int, record func(int) interface{}) (err error) {
	path := filepath.Join(j.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := 0; i < n; i++ {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := enc.Encode(record(i)); err != nil {
			return fmt.Errorf("failed to encode record %d of %s: %w", i, name, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}

	j.logger.Info("Wrote stream", zap.String("file", path), zap.Int("records", n))
	return nil
}
