package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/native-market/pos-api/internal/common"
)

// Handler exposes the inventory endpoints.
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

type createRequest struct {
	Name      string          `json:"name" validate:"required"`
	Price     float64         `json:"price" validate:"gte=0"`
	Stock     int             `json:"stock" validate:"gte=0"`
	Category  string          `json:"category"`
	PromoRule json.RawMessage `json:"promoRule"`
}

type updateRequest struct {
	Name      *string         `json:"name" validate:"omitempty,min=1"`
	Price     *float64        `json:"price" validate:"omitempty,gte=0"`
	Category  *string         `json:"category"`
	PromoRule json.RawMessage `json:"promoRule"`
	IsActive  *bool           `json:"isActive"`
}

type stockRequest struct {
	Stock *int `json:"stock" validate:"required,gte=0"`
}

// List handles GET /api/v1/inventory.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, items)
}

// Create handles POST /api/v1/inventory.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.BadRequest("body", "invalid JSON body", err))
		return
	}
	if appErr := common.ValidateStruct(req); appErr != nil {
		common.WriteError(w, appErr)
		return
	}
	item, err := h.service.Create(r.Context(), CreateParams{
		Name:      req.Name,
		Price:     req.Price,
		Stock:     req.Stock,
		Category:  req.Category,
		PromoRule: req.PromoRule,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, item)
}

// Update handles PATCH /api/v1/inventory/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	// Track promoRule presence so a literal null clears the rule while
	// an absent key leaves it untouched.
	var probe map[string]json.RawMessage
	body := json.NewDecoder(r.Body)
	if err := body.Decode(&probe); err != nil {
		common.WriteError(w, common.BadRequest("body", "invalid JSON body", err))
		return
	}
	raw, hasPromoRule := probe["promoRule"]

	var req updateRequest
	rebuilt, err := json.Marshal(probe)
	if err == nil {
		err = json.Unmarshal(rebuilt, &req)
	}
	if err != nil {
		common.WriteError(w, common.BadRequest("body", "invalid JSON body", err))
		return
	}
	if appErr := common.ValidateStruct(req); appErr != nil {
		common.WriteError(w, appErr)
		return
	}
	item, err := h.service.Update(r.Context(), id, UpdateParams{
		Name:         req.Name,
		Price:        req.Price,
		Category:     req.Category,
		PromoRule:    raw,
		SetPromoRule: hasPromoRule,
		IsActive:     req.IsActive,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, item)
}

// UpdateStock handles PATCH /api/v1/inventory/{id}/stock.
func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteError(w, common.BadRequest("body", "invalid JSON body", err))
		return
	}
	if appErr := common.ValidateStruct(req); appErr != nil {
		common.WriteError(w, appErr)
		return
	}
	if err := h.service.SetStock(r.Context(), id, *req.Stock); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{"id": id.String(), "stock": *req.Stock})
}

// Deactivate handles DELETE /api/v1/inventory/{id}.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func itemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.BadRequest("id", "id must be a valid UUID", err))
		return uuid.Nil, false
	}
	return id, true
}
