package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smartfin/internal/core"
)

// ActivityKind names a mutation the web client performed against the API.
type ActivityKind string

const (
	TransactionCreated ActivityKind = "transaction.created"
	TransactionUpdated ActivityKind = "transaction.updated"
	GoalCreated        ActivityKind = "goal.created"
	GoalUpdated        ActivityKind = "goal.updated"
	BudgetSet          ActivityKind = "budget.set"
)

func (k ActivityKind) Valid() bool {
	switch k {
	case TransactionCreated, TransactionUpdated, GoalCreated, GoalUpdated, BudgetSet:
		return true
	}
	return false
}

// ActivityMessage is published after every successful mutation. The worker
// mirrors it into the activity ledger.
type ActivityMessage struct {
	Kind       ActivityKind `json:"kind"`
	UserID     string       `json:"user_id"`
	EntityID   string       `json:"entity_id"`
	Title      string       `json:"title"`
	Amount     core.Money   `json:"amount"`
	OccurredAt time.Time    `json:"occurred_at"`
}

var ErrInvalidActivity = errors.New("invalid activity message")

func NewActivityMessage(kind ActivityKind, userID, entityID, title string, amount core.Money) *ActivityMessage {
	return &ActivityMessage{
		Kind:       kind,
		UserID:     userID,
		EntityID:   entityID,
		Title:      title,
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	}
}

func (m *ActivityMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActivityMessageFromJSON decodes and validates a message body.
func ActivityMessageFromJSON(data []byte) (*ActivityMessage, error) {
	var msg ActivityMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidActivity, msg.Kind)
	}
	if msg.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidActivity)
	}
	return &msg, nil
}
