package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/native-market/pos-api/internal/cache"
	"github.com/native-market/pos-api/internal/common"
	"github.com/native-market/pos-api/internal/promo"
	"github.com/native-market/pos-api/internal/store"
)

type querier interface {
	ListActiveInventory(ctx context.Context) ([]store.InventoryItem, error)
	CreateInventoryItem(ctx context.Context, params store.CreateInventoryParams) (store.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, id uuid.UUID, params store.UpdateInventoryParams) (store.InventoryItem, error)
	SetStock(ctx context.Context, id uuid.UUID, stock int) error
	DeactivateInventoryItem(ctx context.Context, id uuid.UUID) error
}

// Service orchestrates catalog reads and writes plus list caching.
type Service struct {
	queries querier
	cache   *cache.Cache
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries querier
	Cache   *cache.Cache
}

// Item is the public catalog payload.
type Item struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     float64         `json:"price"`
	Stock     int             `json:"stock"`
	Category  string          `json:"category,omitempty"`
	PromoRule json.RawMessage `json:"promoRule"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// CreateParams captures the fields for a new catalog item.
type CreateParams struct {
	Name      string
	Price     float64
	Stock     int
	Category  string
	PromoRule json.RawMessage
}

// UpdateParams captures a partial catalog update. Nil pointers leave
// the stored value untouched; SetPromoRule distinguishes "leave alone"
// from "replace or clear the rule".
type UpdateParams struct {
	Name         *string
	Price        *float64
	Category     *string
	PromoRule    json.RawMessage
	SetPromoRule bool
	IsActive     *bool
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	return &Service{queries: cfg.Queries, cache: cfg.Cache}, nil
}

// List returns the active catalog ordered by name.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	if s.cache != nil {
		var cached []Item
		ok, err := s.cache.GetJSON(ctx, cache.KeyInventoryList, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	rows, err := s.queries.ListActiveInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, toItem(row))
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, cache.KeyInventoryList, items)
	}
	return items, nil
}

// Create adds a catalog item. The promotion rule, when present, is
// validated and stored in canonical form.
func (s *Service) Create(ctx context.Context, params CreateParams) (Item, error) {
	rule, err := normalizeRule(params.PromoRule)
	if err != nil {
		return Item{}, err
	}
	row, err := s.queries.CreateInventoryItem(ctx, store.CreateInventoryParams{
		Name:      params.Name,
		Price:     params.Price,
		Stock:     params.Stock,
		Category:  params.Category,
		PromoRule: rule,
	})
	if err != nil {
		return Item{}, fmt.Errorf("create inventory item: %w", err)
	}
	s.invalidateList(ctx)
	return toItem(row), nil
}

// Update applies a partial update to a catalog item.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (Item, error) {
	updateParams := store.UpdateInventoryParams{
		Name:     params.Name,
		Price:    params.Price,
		Category: params.Category,
		IsActive: params.IsActive,
	}
	if params.SetPromoRule {
		rule, err := normalizeRule(params.PromoRule)
		if err != nil {
			return Item{}, err
		}
		updateParams.PromoRule = rule
		updateParams.SetPromoRule = true
	}
	row, err := s.queries.UpdateInventoryItem(ctx, id, updateParams)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Item{}, common.NotFound("inventory item not found", err)
		}
		return Item{}, fmt.Errorf("update inventory item: %w", err)
	}
	s.invalidateList(ctx)
	return toItem(row), nil
}

// SetStock overwrites an item's stock count after a physical recount.
func (s *Service) SetStock(ctx context.Context, id uuid.UUID, stock int) error {
	if stock < 0 {
		return common.BadRequest("stock", "stock cannot be negative", nil)
	}
	if err := s.queries.SetStock(ctx, id, stock); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return common.NotFound("inventory item not found", err)
		}
		return fmt.Errorf("set stock: %w", err)
	}
	s.invalidateList(ctx)
	return nil
}

// Deactivate soft-deletes a catalog item. Sold-out history keeps
// referencing it through recorded transactions.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.queries.DeactivateInventoryItem(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return common.NotFound("inventory item not found", err)
		}
		return fmt.Errorf("deactivate inventory item: %w", err)
	}
	s.invalidateList(ctx)
	return nil
}

func (s *Service) invalidateList(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, cache.KeyInventoryList)
	}
}

// normalizeRule validates a raw promotion payload and re-encodes it in
// canonical form. Empty or null input clears the rule.
func normalizeRule(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	rule, err := promo.ParseRule(raw)
	if err != nil {
		var vErr *promo.ValidationError
		if errors.As(err, &vErr) {
			return nil, common.BadRequest("promoRule", vErr.Message, err)
		}
		return nil, common.BadRequest("promoRule", "invalid promotion rule", err)
	}
	if rule == nil {
		return nil, nil
	}
	return promo.EncodeRule(rule)
}

func toItem(row store.InventoryItem) Item {
	item := Item{
		ID:        row.ID.String(),
		Name:      row.Name,
		Price:     row.Price,
		Stock:     row.Stock,
		Category:  row.Category,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.PromoRule) > 0 {
		item.PromoRule = json.RawMessage(row.PromoRule)
	} else {
		item.PromoRule = json.RawMessage("null")
	}
	return item
}
