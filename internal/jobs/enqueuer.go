package jobs

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Enqueuer pushes ledger follow-up tasks onto the queue. Enqueue
// failures are logged and swallowed so a Redis hiccup never fails a
// sale that is already committed to Postgres.
type Enqueuer struct {
	client *asynq.Client
	logger zerolog.Logger
}

// NewEnqueuer constructs an Enqueuer. A nil client yields a no-op.
func NewEnqueuer(client *asynq.Client, logger zerolog.Logger) *Enqueuer {
	return &Enqueuer{client: client, logger: logger}
}

// SaleRecorded enqueues the post-sale follow-up task.
func (e *Enqueuer) SaleRecorded(ctx context.Context, payload SaleRecordedPayload) {
	if e == nil || e.client == nil {
		return
	}
	task, err := NewSaleRecordedTask(payload)
	if err != nil {
		e.logger.Error().Err(err).Str("task", TypeSaleRecorded).Msg("build task")
		return
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		e.logger.Error().Err(err).Str("task", TypeSaleRecorded).Str("transaction_id", payload.TransactionID).Msg("enqueue task")
	}
}

// LedgerChanged enqueues the ledger invalidation task.
func (e *Enqueuer) LedgerChanged(ctx context.Context, payload LedgerChangedPayload) {
	if e == nil || e.client == nil {
		return
	}
	task, err := NewLedgerChangedTask(payload)
	if err != nil {
		e.logger.Error().Err(err).Str("task", TypeLedgerChanged).Msg("build task")
		return
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		e.logger.Error().Err(err).Str("task", TypeLedgerChanged).Msg("enqueue task")
	}
}
