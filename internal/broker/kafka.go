package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ecommerce-datagen/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DefaultBatchSize is how many messages go into one write
const DefaultBatchSize = 1000

// MessageWriter is the part of kafka.Writer the producer uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message is one keyed event waiting to be published
type Message struct {
	Key   string
	Time  time.Time
	Event interface{}
}

type Producer struct {
	writer    MessageWriter
	batchSize int
	logger    *zap.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		BatchSize:    DefaultBatchSize,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	return NewProducerWithWriter(writer, DefaultBatchSize)
}

// NewProducerWithWriter creates a producer over any message writer
func NewProducerWithWriter(writer MessageWriter, batchSize int) *Producer {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Producer{writer: writer, batchSize: batchSize, logger: util.GetLogger()}
}

// PublishBatch publishes messages in order, batchSize at a time
func (p *Producer) PublishBatch(ctx context.Context, messages []Message) error {
	batch := make([]kafka.Message, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.WriteMessages(ctx, batch...); err != nil {
			return fmt.Errorf("failed to write message to kafka: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for _, m := range messages {
		eventBytes, err := json.Marshal(m.Event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		batch = append(batch, kafka.Message{
			Key:   []byte(m.Key),
			Value: eventBytes,
			Time:  m.Time,
		})
		if len(batch) == p.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	p.logger.Debug("Published events", zap.Int("count", len(messages)))
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
