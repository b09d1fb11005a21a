package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const inventoryColumns = "id, name, price, stock, category, promo_rule, is_active, created_at, updated_at"

// CreateInventoryParams captures the fields for a new catalog item.
type CreateInventoryParams struct {
	Name      string
	Price     float64
	Stock     int
	Category  string
	PromoRule []byte
}

// UpdateInventoryParams captures the updatable fields of a catalog
// item. Nil pointers leave the current value untouched; SetPromoRule
// distinguishes "leave alone" from "clear the rule".
type UpdateInventoryParams struct {
	Name         *string
	Price        *float64
	Category     *string
	PromoRule    []byte
	SetPromoRule bool
	IsActive     *bool
}

// ListActiveInventory returns active catalog items ordered by name.
func (s *Store) ListActiveInventory(ctx context.Context) ([]InventoryItem, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+inventoryColumns+" FROM market_inventory WHERE is_active ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()
	return scanInventoryRows(rows)
}

// GetInventoryByIDs fetches the given items regardless of active flag.
func (s *Store) GetInventoryByIDs(ctx context.Context, ids []uuid.UUID) ([]InventoryItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		"SELECT "+inventoryColumns+" FROM market_inventory WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("get inventory by ids: %w", err)
	}
	defer rows.Close()
	return scanInventoryRows(rows)
}

// CountActiveInventory counts active catalog items.
func (s *Store) CountActiveInventory(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM market_inventory WHERE is_active").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count inventory: %w", err)
	}
	return count, nil
}

// CreateInventoryItem inserts a new catalog item.
func (s *Store) CreateInventoryItem(ctx context.Context, params CreateInventoryParams) (InventoryItem, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO market_inventory (name, price, stock, category, promo_rule)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+inventoryColumns,
		params.Name, params.Price, params.Stock, params.Category, nullableJSON(params.PromoRule))
	item, err := scanInventoryRow(row)
	if err != nil {
		return InventoryItem{}, fmt.Errorf("create inventory item: %w", err)
	}
	return item, nil
}

// UpdateInventoryItem applies the provided changes and bumps updated_at.
func (s *Store) UpdateInventoryItem(ctx context.Context, id uuid.UUID, params UpdateInventoryParams) (InventoryItem, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE market_inventory SET
		   name = COALESCE($2, name),
		   price = COALESCE($3, price),
		   category = COALESCE($4, category),
		   promo_rule = CASE WHEN $5 THEN $6 ELSE promo_rule END,
		   is_active = COALESCE($7, is_active),
		   updated_at = now()
		 WHERE id = $1
		 RETURNING `+inventoryColumns,
		id, params.Name, params.Price, params.Category,
		params.SetPromoRule, nullableJSON(params.PromoRule), params.IsActive)
	item, err := scanInventoryRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InventoryItem{}, ErrNotFound
		}
		return InventoryItem{}, fmt.Errorf("update inventory item: %w", err)
	}
	return item, nil
}

// SetStock stores an absolute stock level and bumps updated_at.
func (s *Store) SetStock(ctx context.Context, id uuid.UUID, stock int) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE market_inventory SET stock = $2, updated_at = now() WHERE id = $1", id, stock)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateInventoryItem soft-deletes a catalog item.
func (s *Store) DeactivateInventoryItem(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE market_inventory SET is_active = false, updated_at = now() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deactivate inventory item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanInventoryRows(rows pgx.Rows) ([]InventoryItem, error) {
	var items []InventoryItem
	for rows.Next() {
		item, err := scanInventoryRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanInventoryRow(row pgx.Row) (InventoryItem, error) {
	var item InventoryItem
	err := row.Scan(&item.ID, &item.Name, &item.Price, &item.Stock, &item.Category,
		&item.PromoRule, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return InventoryItem{}, err
	}
	return item, nil
}

// nullableJSON maps an empty payload to SQL NULL so jsonb columns do
// not end up holding empty strings.
func nullableJSON(data []byte) any {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return data
}
