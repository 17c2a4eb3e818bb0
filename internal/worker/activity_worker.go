// Package worker mirrors activity messages into the activity ledger.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"smartfin/internal/amqp"
	"smartfin/internal/log"
	"smartfin/internal/sheets"
)

type ActivityWorker struct {
	ledger sheets.ActivityWriter
	logger *log.Logger

	processed atomic.Int64
	failed    atomic.Int64
}

// Stats counts handled messages since start.
type Stats struct {
	Processed int64
	Failed    int64
}

func NewActivityWorker(ledger sheets.ActivityWriter, logger *log.Logger) *ActivityWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ActivityWorker{
		ledger: ledger,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleActivity appends msg to the ledger. An error makes the consumer
// requeue the message.
func (w *ActivityWorker) HandleActivity(ctx context.Context, msg *amqp.ActivityMessage) error {
	w.logger.DebugContext(ctx, "Processing activity message",
		log.FieldActivityKind, msg.Kind,
		log.FieldUserID, msg.UserID,
		log.FieldEntityID, msg.EntityID)

	ref, err := w.ledger.Append(ctx, msg)
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("append activity to ledger: %w", err)
	}
	w.processed.Add(1)

	w.logger.InfoContext(ctx, "Activity recorded",
		log.FieldActivityKind, msg.Kind,
		log.FieldEntityID, msg.EntityID,
		log.FieldSheetsRef, ref)
	return nil
}

func (w *ActivityWorker) Stats() Stats {
	return Stats{Processed: w.processed.Load(), Failed: w.failed.Load()}
}
