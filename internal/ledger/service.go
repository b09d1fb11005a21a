package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/native-market/pos-api/internal/cache"
	"github.com/native-market/pos-api/internal/common"
	"github.com/native-market/pos-api/internal/jobs"
	"github.com/native-market/pos-api/internal/obs"
	"github.com/native-market/pos-api/internal/promo"
	"github.com/native-market/pos-api/internal/store"
)

type querier interface {
	GetInventoryByIDs(ctx context.Context, ids []uuid.UUID) ([]store.InventoryItem, error)
	CountActiveInventory(ctx context.Context) (int64, error)
	RecordSale(ctx context.Context, decrements []store.StockDecrement, params store.InsertTransactionParams) (store.Transaction, error)
	InsertTransaction(ctx context.Context, params store.InsertTransactionParams) (store.Transaction, error)
	ListRecentTransactions(ctx context.Context, limit int) ([]store.Transaction, error)
	ListTransactionsSince(ctx context.Context, since time.Time) ([]store.Transaction, error)
}

type enqueuer interface {
	SaleRecorded(ctx context.Context, payload jobs.SaleRecordedPayload)
	LedgerChanged(ctx context.Context, payload jobs.LedgerChangedPayload)
}

// Recent-transaction limits mirror the dashboard's paging rules.
const (
	defaultRecentLimit = 12
	maxRecentLimit     = 50
)

// Service owns the stall's money movements: sales priced by the
// promotion engine, expenses, and drawer adjustments.
type Service struct {
	queries querier
	cache   *cache.Cache
	tasks   enqueuer
	loc     *time.Location
	now     func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries  querier
	Cache    *cache.Cache
	Tasks    enqueuer
	Location *time.Location
}

// SaleItemInput is one requested cart line.
type SaleItemInput struct {
	ItemID uuid.UUID
	Qty    int
}

// RecordSaleParams captures a sale to be priced and persisted.
type RecordSaleParams struct {
	Items         []SaleItemInput
	PaymentMethod string
	Note          *string
	EventTag      *string
}

// ExpenseParams captures an expense entry.
type ExpenseParams struct {
	Amount        float64
	Note          string
	PaymentMethod *string
	EventTag      *string
}

// AdjustmentParams captures a drawer float or withdrawal.
type AdjustmentParams struct {
	Amount   float64
	Note     *string
	EventTag *string
}

// SaleLine is the priced snapshot of one sold line. It is persisted
// verbatim in the sale row's items payload and echoed to the client,
// which renders it without re-deriving any amount.
type SaleLine struct {
	ItemID           string  `json:"itemId"`
	Name             string  `json:"name"`
	UnitPrice        float64 `json:"unitPrice"`
	Quantity         int     `json:"quantity"`
	Subtotal         float64 `json:"subtotal"`
	Total            float64 `json:"total"`
	Discount         float64 `json:"discount"`
	PaidQty          int     `json:"paidQty"`
	FreeQty          int     `json:"freeQty"`
	PromotionApplied bool    `json:"promotionApplied"`
}

// Sale is the response payload for a recorded sale.
type Sale struct {
	TransactionID string           `json:"transactionId"`
	CreatedAt     time.Time        `json:"createdAt"`
	PaymentMethod string           `json:"paymentMethod"`
	Lines         []SaleLine       `json:"lines"`
	Totals        promo.SaleTotals `json:"totals"`
}

// Preview is a priced cart that was never persisted.
type Preview struct {
	Lines  []SaleLine       `json:"lines"`
	Totals promo.SaleTotals `json:"totals"`
}

// TransactionView is the public ledger row payload.
type TransactionView struct {
	ID            string          `json:"id"`
	CreatedAt     time.Time       `json:"createdAt"`
	Type          string          `json:"type"`
	Amount        float64         `json:"amount"`
	Items         json.RawMessage `json:"items,omitempty"`
	Note          *string         `json:"note,omitempty"`
	PaymentMethod *string         `json:"paymentMethod,omitempty"`
	EventTag      *string         `json:"eventTag,omitempty"`
}

// Summary aggregates the current trading day from local midnight.
type Summary struct {
	Date              string  `json:"date"`
	SalesToday        float64 `json:"salesToday"`
	ExpenseToday      float64 `json:"expenseToday"`
	FloatToday        float64 `json:"floatToday"`
	WithdrawToday     float64 `json:"withdrawToday"`
	CashInDrawer      float64 `json:"cashInDrawer"`
	TransactionsToday int     `json:"transactionsToday"`
	ActiveItems       int64   `json:"activeItems"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("ledger: queries provider is required")
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		queries: cfg.Queries,
		cache:   cfg.Cache,
		tasks:   cfg.Tasks,
		loc:     loc,
		now:     time.Now,
	}, nil
}

// RecordSale prices the cart, decrements stock, and appends the sale
// row atomically. Promotion rules come from the catalog rows, never
// from the request.
func (s *Service) RecordSale(ctx context.Context, params RecordSaleParams) (Sale, error) {
	if !validPaymentMethod(params.PaymentMethod) {
		return Sale{}, common.BadRequest("paymentMethod", "payment method must be cash or transfer", nil)
	}
	lines, totals, decrements, err := s.priceCart(ctx, params.Items)
	if err != nil {
		return Sale{}, err
	}
	itemsJSON, err := json.Marshal(lines)
	if err != nil {
		return Sale{}, fmt.Errorf("encode sale lines: %w", err)
	}
	method := params.PaymentMethod
	txn, err := s.queries.RecordSale(ctx, decrements, store.InsertTransactionParams{
		Type:          store.TxnSale,
		Amount:        totals.Total,
		Items:         itemsJSON,
		Note:          params.Note,
		PaymentMethod: &method,
		EventTag:      params.EventTag,
	})
	if err != nil {
		countLedgerWrite(store.TxnSale, "error")
		if errors.Is(err, store.ErrInsufficientStock) {
			return Sale{}, common.NewAppError("INSUFFICIENT_STOCK", "insufficient stock for one or more items", http.StatusConflict, err)
		}
		return Sale{}, fmt.Errorf("record sale: %w", err)
	}
	countLedgerWrite(store.TxnSale, "ok")
	if obs.SalesRecordedTotal != nil {
		obs.SalesRecordedTotal.WithLabelValues(method).Inc()
	}
	if obs.SaleAmountTotal != nil {
		obs.SaleAmountTotal.WithLabelValues(method).Add(totals.Total)
	}
	s.invalidateSummary(ctx)
	if s.tasks != nil {
		itemIDs := make([]string, 0, len(decrements))
		for _, dec := range decrements {
			itemIDs = append(itemIDs, dec.ItemID.String())
		}
		s.tasks.SaleRecorded(ctx, jobs.SaleRecordedPayload{
			TransactionID: txn.ID.String(),
			ItemIDs:       itemIDs,
			Day:           s.today(),
		})
	}
	return Sale{
		TransactionID: txn.ID.String(),
		CreatedAt:     txn.CreatedAt,
		PaymentMethod: method,
		Lines:         lines,
		Totals:        totals,
	}, nil
}

// PreviewSale prices a cart without touching stock or the ledger.
func (s *Service) PreviewSale(ctx context.Context, items []SaleItemInput) (Preview, error) {
	lines, totals, _, err := s.priceCart(ctx, items)
	if err != nil {
		return Preview{}, err
	}
	return Preview{Lines: lines, Totals: totals}, nil
}

// RecordExpense appends an expense row.
func (s *Service) RecordExpense(ctx context.Context, params ExpenseParams) (TransactionView, error) {
	if params.Amount <= 0 {
		return TransactionView{}, common.BadRequest("amount", "amount must be greater than zero", nil)
	}
	if params.Note == "" {
		return TransactionView{}, common.BadRequest("note", "note is required", nil)
	}
	note := params.Note
	return s.insert(ctx, store.InsertTransactionParams{
		Type:          store.TxnExpense,
		Amount:        promo.Round2(params.Amount),
		Note:          &note,
		PaymentMethod: params.PaymentMethod,
		EventTag:      params.EventTag,
	})
}

// RecordFloat appends a drawer float row.
func (s *Service) RecordFloat(ctx context.Context, params AdjustmentParams) (TransactionView, error) {
	return s.recordAdjustment(ctx, store.TxnFloat, params)
}

// RecordWithdraw appends a drawer withdrawal row.
func (s *Service) RecordWithdraw(ctx context.Context, params AdjustmentParams) (TransactionView, error) {
	return s.recordAdjustment(ctx, store.TxnWithdraw, params)
}

// Recent returns the newest ledger rows. The limit is clamped to
// [1, 50] and defaults to 12 when unset.
func (s *Service) Recent(ctx context.Context, limit int) ([]TransactionView, error) {
	if limit == 0 {
		limit = defaultRecentLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	rows, err := s.queries.ListRecentTransactions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent transactions: %w", err)
	}
	views := make([]TransactionView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toView(row))
	}
	return views, nil
}

// DailySummary aggregates today's ledger from local midnight.
func (s *Service) DailySummary(ctx context.Context) (Summary, error) {
	day := s.now().In(s.loc)
	key := cache.KeyDailySummary(day)
	if s.cache != nil {
		var cached Summary
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil && ok {
			return cached, nil
		}
	}
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)
	rows, err := s.queries.ListTransactionsSince(ctx, midnight)
	if err != nil {
		return Summary{}, fmt.Errorf("list today's transactions: %w", err)
	}
	summary := Summary{Date: day.Format("2006-01-02"), TransactionsToday: len(rows)}
	var sales, expense, drawerFloat, withdraw float64
	for _, row := range rows {
		switch row.Type {
		case store.TxnSale:
			sales += row.Amount
		case store.TxnExpense:
			expense += row.Amount
		case store.TxnFloat:
			drawerFloat += row.Amount
		case store.TxnWithdraw:
			withdraw += row.Amount
		}
	}
	summary.SalesToday = promo.Round2(sales)
	summary.ExpenseToday = promo.Round2(expense)
	summary.FloatToday = promo.Round2(drawerFloat)
	summary.WithdrawToday = promo.Round2(withdraw)
	summary.CashInDrawer = promo.Round2(drawerFloat + sales - expense - withdraw)
	count, err := s.queries.CountActiveInventory(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("count active inventory: %w", err)
	}
	summary.ActiveItems = count
	if obs.CashInDrawer != nil {
		obs.CashInDrawer.Set(summary.CashInDrawer)
	}
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, summary)
	}
	return summary, nil
}

func (s *Service) recordAdjustment(ctx context.Context, txnType string, params AdjustmentParams) (TransactionView, error) {
	if params.Amount <= 0 {
		return TransactionView{}, common.BadRequest("amount", "amount must be greater than zero", nil)
	}
	return s.insert(ctx, store.InsertTransactionParams{
		Type:     txnType,
		Amount:   promo.Round2(params.Amount),
		Note:     params.Note,
		EventTag: params.EventTag,
	})
}

func (s *Service) insert(ctx context.Context, params store.InsertTransactionParams) (TransactionView, error) {
	txn, err := s.queries.InsertTransaction(ctx, params)
	if err != nil {
		countLedgerWrite(params.Type, "error")
		return TransactionView{}, fmt.Errorf("insert %s: %w", params.Type, err)
	}
	countLedgerWrite(params.Type, "ok")
	s.invalidateSummary(ctx)
	if s.tasks != nil {
		s.tasks.LedgerChanged(ctx, jobs.LedgerChangedPayload{Day: s.today()})
	}
	return toView(txn), nil
}

// priceCart merges duplicate lines, loads the catalog rows, and prices
// every line through the promotion engine. Duplicates must merge
// before pricing so a bulk threshold spanning two cart lines still
// triggers.
func (s *Service) priceCart(ctx context.Context, items []SaleItemInput) ([]SaleLine, promo.SaleTotals, []store.StockDecrement, error) {
	if len(items) == 0 {
		return nil, promo.SaleTotals{}, nil, common.BadRequest("items", "at least one item is required", nil)
	}
	quantities := make(map[uuid.UUID]int, len(items))
	order := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.ItemID == uuid.Nil {
			return nil, promo.SaleTotals{}, nil, common.BadRequest("itemId", "item id is required", nil)
		}
		if item.Qty <= 0 {
			return nil, promo.SaleTotals{}, nil, common.BadRequest("quantity", "quantity must be a positive integer", nil)
		}
		if _, seen := quantities[item.ItemID]; !seen {
			order = append(order, item.ItemID)
		}
		quantities[item.ItemID] += item.Qty
	}
	rows, err := s.queries.GetInventoryByIDs(ctx, order)
	if err != nil {
		return nil, promo.SaleTotals{}, nil, fmt.Errorf("load cart items: %w", err)
	}
	byID := make(map[uuid.UUID]store.InventoryItem, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	saleLines := make([]SaleLine, 0, len(order))
	engineLines := make([]promo.Line, 0, len(order))
	decrements := make([]store.StockDecrement, 0, len(order))
	for _, id := range order {
		row, ok := byID[id]
		if !ok || !row.IsActive {
			return nil, promo.SaleTotals{}, nil, common.BadRequest("items", fmt.Sprintf("unknown item %s", id), nil)
		}
		qty := quantities[id]
		if row.Stock < qty {
			return nil, promo.SaleTotals{}, nil, common.NewAppError("INSUFFICIENT_STOCK",
				fmt.Sprintf("not enough stock for %s", row.Name), http.StatusConflict, nil)
		}
		rule, err := promo.ParseRule(row.PromoRule)
		if err != nil {
			return nil, promo.SaleTotals{}, nil, fmt.Errorf("decode stored rule for %s: %w", id, err)
		}
		result, err := promo.PriceLine(row.Price, qty, rule)
		if err != nil {
			return nil, promo.SaleTotals{}, nil, err
		}
		saleLines = append(saleLines, SaleLine{
			ItemID:           id.String(),
			Name:             row.Name,
			UnitPrice:        row.Price,
			Quantity:         qty,
			Subtotal:         result.Subtotal,
			Total:            result.Total,
			Discount:         result.Discount,
			PaidQty:          result.PaidQty,
			FreeQty:          result.FreeQty,
			PromotionApplied: result.PromotionApplied,
		})
		engineLines = append(engineLines, promo.Line{UnitPrice: row.Price, Qty: qty, Rule: rule})
		decrements = append(decrements, store.StockDecrement{ItemID: id, Qty: qty})
	}
	totals, err := promo.PriceSale(engineLines)
	if err != nil {
		return nil, promo.SaleTotals{}, nil, err
	}
	return saleLines, totals, decrements, nil
}

func (s *Service) invalidateSummary(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, cache.KeyDailySummary(s.now().In(s.loc)))
	}
}

func (s *Service) today() string {
	return s.now().In(s.loc).Format("2006-01-02")
}

func validPaymentMethod(method string) bool {
	return method == "cash" || method == "transfer"
}

func countLedgerWrite(txnType, result string) {
	if obs.LedgerWritesTotal != nil {
		obs.LedgerWritesTotal.WithLabelValues(txnType, result).Inc()
	}
}

func toView(txn store.Transaction) TransactionView {
	view := TransactionView{
		ID:            txn.ID.String(),
		CreatedAt:     txn.CreatedAt,
		Type:          txn.Type,
		Amount:        txn.Amount,
		Note:          txn.Note,
		PaymentMethod: txn.PaymentMethod,
		EventTag:      txn.EventTag,
	}
	if len(txn.Items) > 0 {
		view.Items = json.RawMessage(txn.Items)
	}
	return view
}
