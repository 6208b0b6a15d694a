package broker

import (
	"context"
	"fmt"

	"ecommerce-datagen/internal/models"
	"ecommerce-datagen/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher streams sessions and transactions as domain events. Catalog
// streams are not published.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer, logger: util.GetLogger()}
}

// eventID derives a stable event id so republishing a run yields the same ids
func eventID(eventType, recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(eventType+"/"+recordID)).String()
}

// SessionKey is the message key of a session event
func SessionKey(id string) string {
	return fmt.Sprintf("session-%s", id)
}

// TransactionKey is the message key of a transaction event
func TransactionKey(id string) string {
	return fmt.Sprintf("transaction-%s", id)
}

// NewSessionGeneratedEvent wraps a session in its event envelope
func NewSessionGeneratedEvent(s *models.Session) *models.SessionGeneratedEvent {
	return &models.SessionGeneratedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   eventID(models.EventTypeSessionGenerated, s.ID),
			EventType: models.EventTypeSessionGenerated,
			Timestamp: s.EndTime,
		},
		Session: s,
	}
}

// NewTransactionCommittedEvent wraps a transaction in its event envelope
func NewTransactionCommittedEvent(t *models.Transaction) *models.TransactionCommittedEvent {
	return &models.TransactionCommittedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   eventID(models.EventTypeTransactionCommitted, t.ID),
			EventType: models.EventTypeTransactionCommitted,
			Timestamp: t.Timestamp,
		},
		Transaction: t,
	}
}

func (ep *EventPublisher) WriteCategories(context.Context, []models.Category) error { return nil }

func (ep *EventPublisher) WriteProducts(context.Context, []models.Product) error { return nil }

func (ep *EventPublisher) WriteUsers(context.Context, []models.User) error { return nil }

// WriteSessions publishes a SessionGenerated event per session
func (ep *EventPublisher) WriteSessions(ctx context.Context, sessions []*models.Session) error {
	ctx, span := util.StartSpan(ctx, "EventPublisher.WriteSessions")
	defer span.End()

	messages := make([]Message, len(sessions))
	for i, s := range sessions {
		event := NewSessionGeneratedEvent(s)
		messages[i] = Message{Key: SessionKey(s.ID), Time: event.Timestamp, Event: event}
	}
	if err := ep.producer.PublishBatch(ctx, messages); err != nil {
		return fmt.Errorf("failed to publish sessions: %w", err)
	}
	ep.logger.Info("Published session events", zap.Int("count", len(messages)))
	return nil
}

// WriteTransactions publishes a TransactionCommitted event per transaction
func (ep *EventPublisher) WriteTransactions(ctx context.Context, transactions []*models.Transaction) error {
	ctx, span := util.StartSpan(ctx, "EventPublisher.WriteTransactions")
	defer span.End()

	messages := make([]Message, len(transactions))
	for i, t := range transactions {
		event := NewTransactionCommittedEvent(t)
		messages[i] = Message{Key: TransactionKey(t.ID), Time: event.Timestamp, Event: event}
	}
	if err := ep.producer.PublishBatch(ctx, messages); err != nil {
		return fmt.Errorf("failed to publish transactions: %w", err)
	}
	ep.logger.Info("Published transaction events", zap.Int("count", len(messages)))
	return nil
}

// Close closes the underlying producer
func (ep *EventPublisher) Close() error {
	return ep.producer.Close()
}
