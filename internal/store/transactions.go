package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const transactionColumns = "id, created_at, type, amount, items, note, payment_method, event_tag"

// checkViolation is the SQLSTATE raised when the nonnegative-stock
// constraint rejects a decrement that raced past the explicit guard.
const checkViolation = "23514"

// InsertTransactionParams captures a new ledger row.
type InsertTransactionParams struct {
	Type          string
	Amount        float64
	Items         []byte
	Note          *string
	PaymentMethod *string
	EventTag      *string
}

// StockDecrement is one sold line's stock adjustment.
type StockDecrement struct {
	ItemID uuid.UUID
	Qty    int
}

// InsertTransaction appends one row to the ledger.
func (s *Store) InsertTransaction(ctx context.Context, params InsertTransactionParams) (Transaction, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO market_transactions (type, amount, items, note, payment_method, event_tag)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+transactionColumns,
		params.Type, params.Amount, nullableJSON(params.Items),
		params.Note, params.PaymentMethod, params.EventTag)
	txn, err := scanTransactionRow(row)
	if err != nil {
		return Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return txn, nil
}

// RecordSale decrements stock for every sold line and appends the sale
// row in a single database transaction. Any line with insufficient
// stock fails the whole sale; nothing partially posts.
func (s *Store) RecordSale(ctx context.Context, decrements []StockDecrement, params InsertTransactionParams) (Transaction, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, fmt.Errorf("begin sale: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, dec := range decrements {
		tag, err := tx.Exec(ctx,
			`UPDATE market_inventory
			 SET stock = stock - $2, updated_at = now()
			 WHERE id = $1 AND is_active AND stock >= $2`,
			dec.ItemID, dec.Qty)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == checkViolation {
				return Transaction{}, ErrInsufficientStock
			}
			return Transaction{}, fmt.Errorf("decrement stock: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return Transaction{}, ErrInsufficientStock
		}
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO market_transactions (type, amount, items, note, payment_method, event_tag)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+transactionColumns,
		params.Type, params.Amount, nullableJSON(params.Items),
		params.Note, params.PaymentMethod, params.EventTag)
	txn, err := scanTransactionRow(row)
	if err != nil {
		return Transaction{}, fmt.Errorf("insert sale: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, fmt.Errorf("commit sale: %w", err)
	}
	return txn, nil
}

// ListRecentTransactions returns the newest rows first.
func (s *Store) ListRecentTransactions(ctx context.Context, limit int) ([]Transaction, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+transactionColumns+" FROM market_transactions ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactionRows(rows)
}

// ListTransactionsSince returns rows created at or after the given instant.
func (s *Store) ListTransactionsSince(ctx context.Context, since time.Time) ([]Transaction, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+transactionColumns+" FROM market_transactions WHERE created_at >= $1", since)
	if err != nil {
		return nil, fmt.Errorf("list transactions since: %w", err)
	}
	defer rows.Close()
	return scanTransactionRows(rows)
}

func scanTransactionRows(rows pgx.Rows) ([]Transaction, error) {
	var txns []Transaction
	for rows.Next() {
		txn, err := scanTransactionRow(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txns, nil
}

func scanTransactionRow(row pgx.Row) (Transaction, error) {
	var txn Transaction
	err := row.Scan(&txn.ID, &txn.CreatedAt, &txn.Type, &txn.Amount,
		&txn.Items, &txn.Note, &txn.PaymentMethod, &txn.EventTag)
	if err != nil {
		return Transaction{}, err
	}
	return txn, nil
}
