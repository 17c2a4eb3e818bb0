// Package memory is an in-process activity ledger, used when no spreadsheet
// is configured and in tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"smartfin/internal/amqp"
	ports "smartfin/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows [][]any
}

var _ ports.ActivityWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the message as a row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, msg *amqp.ActivityMessage) (string, error) {
	if msg == nil {
		return "", errors.New("nil activity message")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, ports.Row(msg))
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of the ledger, header excluded.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	copy(out, s.rows)
	return out
}
