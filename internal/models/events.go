package models

import "time"

// Event types
const (
	EventTypeSessionGenerated     = "SESSION_GENERATED"
	EventTypeTransactionCommitted = "TRANSACTION_COMMITTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionGeneratedEvent published for every synthesized session
type SessionGeneratedEvent struct {
	BaseEvent
	Session *Session `json:"session"`
}

// TransactionCommittedEvent published for every committed transaction
type TransactionCommittedEvent struct {
	BaseEvent
	Transaction *Transaction `json:"transaction"`
}
