package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/native-market/pos-api/internal/cache"
	"github.com/native-market/pos-api/internal/obs"
	"github.com/native-market/pos-api/internal/store"
)

type inventoryReader interface {
	GetInventoryByIDs(ctx context.Context, ids []uuid.UUID) ([]store.InventoryItem, error)
}

// Handler processes ledger follow-up tasks on the worker side.
type Handler struct {
	queries   inventoryReader
	cache     *cache.Cache
	threshold int
	logger    zerolog.Logger
}

// HandlerConfig groups Handler dependencies.
type HandlerConfig struct {
	Queries           inventoryReader
	Cache             *cache.Cache
	LowStockThreshold int
	Logger            zerolog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	threshold := cfg.LowStockThreshold
	if threshold < 0 {
		threshold = 0
	}
	return &Handler{
		queries:   cfg.Queries,
		cache:     cfg.Cache,
		threshold: threshold,
		logger:    cfg.Logger,
	}
}

// Mux routes task types to their handlers.
func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeSaleRecorded, h.HandleSaleRecorded)
	mux.HandleFunc(TypeLedgerChanged, h.HandleLedgerChanged)
	return mux
}

// HandleSaleRecorded checks sold items for low stock and drops the
// day's cached summary so the next read reflects the sale.
func (h *Handler) HandleSaleRecorded(ctx context.Context, task *asynq.Task) error {
	var payload SaleRecordedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", TypeSaleRecorded, err, asynq.SkipRetry)
	}
	ids := make([]uuid.UUID, 0, len(payload.ItemIDs))
	for _, raw := range payload.ItemIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.logger.Warn().Str("item_id", raw).Msg("skipping unparseable item id")
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) > 0 && h.queries != nil {
		rows, err := h.queries.GetInventoryByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("load sold items: %w", err)
		}
		for _, row := range rows {
			if row.Stock <= h.threshold {
				if obs.LowStockAlertsTotal != nil {
					obs.LowStockAlertsTotal.Inc()
				}
				h.logger.Warn().
					Str("item_id", row.ID.String()).
					Str("name", row.Name).
					Int("stock", row.Stock).
					Int("threshold", h.threshold).
					Msg("item is running low on stock")
			}
		}
	}
	h.invalidateSummary(ctx, payload.Day)
	return nil
}

// HandleLedgerChanged drops the cached summary for the affected day.
func (h *Handler) HandleLedgerChanged(ctx context.Context, task *asynq.Task) error {
	var payload LedgerChangedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", TypeLedgerChanged, err, asynq.SkipRetry)
	}
	h.invalidateSummary(ctx, payload.Day)
	return nil
}

func (h *Handler) invalidateSummary(ctx context.Context, day string) {
	if day == "" || h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx, cache.KeySummaryDay(day)); err != nil {
		h.logger.Error().Err(err).Str("day", day).Msg("invalidate summary cache")
	}
}
