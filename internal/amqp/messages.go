package amqp

import (
	"encoding/json"
	"time"
)

// Ledger event names carried on the wire.
const (
	EventTransactionCreated = "transaction:created"
	EventTransactionDeleted = "transaction:deleted"
	EventFixedRegenerated   = "fixed:regenerated"
)

// LedgerEvent is a lightweight notification that something in the ledger
// changed. Consumers fetch the current state themselves if they need it.
type LedgerEvent struct {
	Event     string    `json:"event"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(event string, id int64) *LedgerEvent {
	return &LedgerEvent{
		Event:     event,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
