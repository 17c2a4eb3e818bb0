// Package sheets defines the activity ledger port. Implementations live in
// the google and memory subpackages.
package sheets

import (
	"context"
	"time"

	"smartfin/internal/amqp"
)

type (
	// ActivityWriter appends one ledger row per activity message.
	ActivityWriter interface {
		Append(ctx context.Context, msg *amqp.ActivityMessage) (rowRef string, err error)
	}
)

// Row renders msg as ledger cells: occurred at, kind, user, entity, title,
// amount.
func Row(msg *amqp.ActivityMessage) []any {
	return []any{
		msg.OccurredAt.UTC().Format(time.RFC3339),
		string(msg.Kind),
		msg.UserID,
		msg.EntityID,
		msg.Title,
		msg.Amount.String(),
	}
}
