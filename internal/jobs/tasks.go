package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names routed through asynq.
const (
	TypeSaleRecorded  = "sale:recorded"
	TypeLedgerChanged = "ledger:changed"
)

// SaleRecordedPayload describes a freshly persisted sale.
type SaleRecordedPayload struct {
	TransactionID string   `json:"transactionId"`
	ItemIDs       []string `json:"itemIds"`
	Day           string   `json:"day"`
}

// LedgerChangedPayload marks a non-sale ledger write on a given day.
type LedgerChangedPayload struct {
	Day string `json:"day"`
}

// NewSaleRecordedTask builds the asynq task for a recorded sale.
func NewSaleRecordedTask(payload SaleRecordedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSaleRecorded, data, asynq.MaxRetry(3)), nil
}

// NewLedgerChangedTask builds the asynq task for a ledger write.
func NewLedgerChangedTask(payload LedgerChangedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeLedgerChanged, data, asynq.MaxRetry(3)), nil
}
