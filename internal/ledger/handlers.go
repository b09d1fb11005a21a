package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/native-market/pos-api/internal/common"
)

// Handler exposes the ledger endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

type saleItemRequest struct {
	ItemID   string `json:"itemId" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

type saleRequest struct {
	Items         []saleItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string            `json:"paymentMethod" validate:"required,oneof=cash transfer"`
	Note          *string           `json:"note"`
	EventTag      *string           `json:"eventTag"`
}

type previewRequest struct {
	Items []saleItemRequest `json:"items" validate:"required,min=1,dive"`
}

type expenseRequest struct {
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Note          string  `json:"note" validate:"required"`
	PaymentMethod *string `json:"paymentMethod" validate:"omitempty,oneof=cash transfer"`
	EventTag      *string `json:"eventTag"`
}

type adjustmentRequest struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Note     *string `json:"note"`
	EventTag *string `json:"eventTag"`
}

// RecordSale handles POST /api/v1/sales.
func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.BadRequest("body", "invalid JSON body", err))
		return
	}
	if appErr := common.ValidateStruct(req); appErr != nil {
		common.WriteError(w, appErr)
		return
	}
	items, err := parseSaleItems(req.Items)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	sale, err := h.service.RecordSale(r.Context(), RecordSaleParams{
		Items:         items,
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
		EventTag:      req.EventTag,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, sale)
}

// PreviewSale handles POST /api/v1/sales/preview.
func (h *Handler) PreviewSale(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.BadRequest("body", "invalid JSON body", err))
		return
	}
	if appErr := common.ValidateStruct(req); appErr != nil {
		common.WriteError(w, appErr)
		return
	}
	items, err := parseSaleItems(req.Items)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	preview, err := h.service.PreviewSale(r.Context(), items)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, preview)
}

// RecordExpense handles POST /api/v1/expenses.
func (h *Handler) RecordExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.BadRequest("body", "invalid JSON body", err))
		return
	}
	if appErr := common.ValidateStruct(req); appErr != nil {
		common.WriteError(w, appErr)
		return
	}
	view, err := h.service.RecordExpense(r.Context(), ExpenseParams{
		Amount:        req.Amount,
		Note:          strings.TrimSpace(req.Note),
		PaymentMethod: req.PaymentMethod,
		EventTag:      req.EventTag,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, view)
}

// RecordFloat handles POST /api/v1/drawer/float.
func (h *Handler) RecordFloat(w http.ResponseWriter, r *http.Request) {
	h.recordAdjustment(w, r, h.service.RecordFloat)
}

// RecordWithdraw handles POST /api/v1/drawer/withdraw.
func (h *Handler) RecordWithdraw(w http.ResponseWriter, r *http.Request) {
	h.recordAdjustment(w, r, h.service.RecordWithdraw)
}

// Transactions handles GET /api/v1/transactions.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			common.WriteError(w, common.BadRequest("limit", "limit must be an integer", err))
			return
		}
		limit = parsed
	}
	views, err := h.service.Recent(r.Context(), limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, views)
}

// Summary handles GET /api/v1/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.DailySummary(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, summary)
}

func (h *Handler) recordAdjustment(w http.ResponseWriter, r *http.Request, record func(ctx context.Context, params AdjustmentParams) (TransactionView, error)) {
	var req adjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.BadRequest("body", "invalid JSON body", err))
		return
	}
	if appErr := common.ValidateStruct(req); appErr != nil {
		common.WriteError(w, appErr)
		return
	}
	view, err := record(r.Context(), AdjustmentParams{
		Amount:   req.Amount,
		Note:     req.Note,
		EventTag: req.EventTag,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, view)
}

func parseSaleItems(reqs []saleItemRequest) ([]SaleItemInput, error) {
	items := make([]SaleItemInput, 0, len(reqs))
	for _, req := range reqs {
		id, err := uuid.Parse(req.ItemID)
		if err != nil {
			return nil, common.BadRequest("itemId", "item id must be a valid UUID", err)
		}
		items = append(items, SaleItemInput{ItemID: id, Qty: req.Quantity})
	}
	return items, nil
}
