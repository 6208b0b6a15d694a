package sink

import (
	"context"
	"errors"
	"fmt"

	"ecommerce-datagen/internal/models"
	"ecommerce-datagen/internal/util"

	"go.uber.org/zap"
)

// Sink receives the entity streams of a finished run
type Sink interface {
	WriteCategories(ctx context.Context, categories []models.Category) error
	WriteProducts(ctx context.Context, products []models.Product) error
	WriteUsers(ctx context.Context, users []models.User) error
	WriteSessions(ctx context.Context, sessions []*models.Session) error
	WriteTransactions(ctx context.Context, transactions []*models.Transaction) error
	Close() error
}

// Dataset groups the streams handed to a sink
type Dataset struct {
	Categories   []models.Category
	Products     []models.Product
	Users        []models.User
	Sessions     []*models.Session
	Transactions []*models.Transaction
}

// WriteAll writes every stream of d to s, catalog streams first
func WriteAll(ctx context.Context, s Sink, d Dataset) error {
	ctx, span := util.StartSpan(ctx, "sink.WriteAll")
	defer span.End()

	if err := s.WriteCategories(ctx, d.Categories); err != nil {
		return fmt.Errorf("failed to write categories: %w", err)
	}
	if err := s.WriteProducts(ctx, d.Products); err != nil {
		return fmt.Errorf("failed to write products: %w", err)
	}
	if err := s.WriteUsers(ctx, d.Users); err != nil {
		return fmt.Errorf("failed to write users: %w", err)
	}
	if err := s.WriteSessions(ctx, d.Sessions); err != nil {
		return fmt.Errorf("failed to write sessions: %w", err)
	}
	if err := s.WriteTransactions(ctx, d.Transactions); err != nil {
		return fmt.Errorf("failed to write transactions: %w", err)
	}
	return nil
}

// Multi fans every write out to its sinks in order
type Multi struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewMulti creates a fan-out sink
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, logger: util.GetLogger()}
}

func (m *Multi) each(write func(Sink) error) error {
	for _, s := range m.sinks {
		if err := write(s); err != nil {
			return err
		}
	}
	return nil
}

func (m *Multi) WriteCategories(ctx context.Context, categories []models.Category) error {
	return m.each(func(s Sink) error { return s.WriteCategories(ctx, categories) })
}

func (m *Multi) WriteProducts(ctx context.Context, products []models.Product) error {
	return m.each(func(s Sink) error { return s.WriteProducts(ctx, products) })
}

func (m *Multi) WriteUsers(ctx context.Context, users []models.User) error {
	return m.each(func(s Sink) error { return s.WriteUsers(ctx, users) })
}

func (m *Multi) WriteSessions(ctx context.Context, sessions []*models.Session) error {
	return m.each(func(s Sink) error { return s.WriteSessions(ctx, sessions) })
}

func (m *Multi) WriteTransactions(ctx context.Context, transactions []*models.Transaction) error {
	return m.each(func(s Sink) error { return s.WriteTransactions(ctx, transactions) })
}

// Close closes every sink and joins their errors
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			m.logger.Error("Failed to close sink", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
