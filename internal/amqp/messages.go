package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"tally/internal/core"
)

// EventAction names what happened to a transaction.
type EventAction string

const (
	ActionCreated EventAction = "created"
	ActionDeleted EventAction = "deleted"
)

// TransactionEvent is the message published for every transaction
// mutation. It carries a full snapshot so consumers can process
// deleted events after the row is gone.
type TransactionEvent struct {
	Action      EventAction `json:"action"`
	ID          string      `json:"id"`
	Kind        string      `json:"kind"`
	Date        string      `json:"date"`
	AmountCents int64       `json:"amount_cents"`
	Category    string      `json:"category"`
	Description string      `json:"description,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// NewTransactionEvent snapshots tx under the given action.
func NewTransactionEvent(action EventAction, tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Action:      action,
		ID:          tx.ID,
		Kind:        string(tx.Kind),
		Date:        tx.Date.String(),
		AmountCents: tx.Amount.Cents,
		Category:    tx.Category,
		Description: tx.Description,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON creates an event from JSON bytes
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.Action != ActionCreated && ev.Action != ActionDeleted {
		return nil, fmt.Errorf("unknown event action %q", ev.Action)
	}
	return &ev, nil
}
