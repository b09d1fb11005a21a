package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrInsufficientStock is returned when a sale would drive stock negative.
	ErrInsufficientStock = errors.New("store: insufficient stock")
)

// Transaction types persisted in market_transactions.
const (
	TxnSale     = "sale"
	TxnExpense  = "expense"
	TxnFloat    = "float"
	TxnWithdraw = "withdraw"
)

// InventoryItem mirrors a market_inventory row. PromoRule carries the
// raw JSON rule payload; decoding is owned by the promo package.
type InventoryItem struct {
	ID        uuid.UUID
	Name      string
	Price     float64
	Stock     int
	Category  string
	PromoRule []byte
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction mirrors a market_transactions row. Items carries the raw
// JSON sale line payload and is nil for non-sale rows.
type Transaction struct {
	ID            uuid.UUID
	CreatedAt     time.Time
	Type          string
	Amount        float64
	Items         []byte
	Note          *string
	PaymentMethod *string
	EventTag      *string
}

// Store provides Postgres-backed persistence for the stall's catalog
// and ledger. Feature packages consume it through narrow interfaces.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store around the given connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
