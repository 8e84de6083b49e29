package cart

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/cart-pricing/internal/common"
	"github.com/noah-isme/cart-pricing/internal/pricing"
	"github.com/noah-isme/cart-pricing/internal/quote"
)

// Quoter prices a set of cart lines.
type Quoter interface {
	Quote(ctx context.Context, lines []pricing.CartLine, at time.Time) (quote.Quote, error)
}

// Handler wires cart services to HTTP.
type Handler struct {
	Svc    *Service
	Quotes Quoter
}

// View is the cart payload returned by every cart endpoint.
type View struct {
	ID        string             `json:"id"`
	Lines     []pricing.CartLine `json:"lines"`
	ExpiresAt time.Time          `json:"expiresAt"`
	Quote     *quote.Quote       `json:"quote,omitempty"`
}

type itemRequest struct {
	ProductID string `json:"productId" validate:"required,max=64"`
	Quantity  int    `json:"quantity"`
}

type qtyRequest struct {
	Quantity int `json:"quantity"`
}

// Create opens a new cart session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	c, err := h.Svc.Create()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, r, http.StatusCreated, c)
}

// Get returns cart contents with a pricing and points preview.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	id, ok := cartID(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.Get(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, r, http.StatusOK, c)
}

// AddItem adds or increments a cart line.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	id, ok := cartID(w, r)
	if !ok {
		return
	}
	var payload itemRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.ValidateStruct(payload); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.AddItem(id, payload.ProductID, payload.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, r, http.StatusOK, c)
}

// UpdateItem sets the quantity of a cart line.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	id, ok := cartID(w, r)
	if !ok {
		return
	}
	var payload qtyRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.Svc.UpdateQty(id, chi.URLParam(r, "productId"), payload.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, r, http.StatusOK, c)
}

// RemoveItem deletes a cart line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	id, ok := cartID(w, r)
	if !ok {
		return
	}
	c, err := h.Svc.RemoveItem(id, chi.URLParam(r, "productId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, r, http.StatusOK, c)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c Cart) {
	view := View{ID: c.ID, Lines: c.Lines, ExpiresAt: c.ExpiresAt}
	if h.Quotes != nil {
		q, err := h.Quotes.Quote(r.Context(), c.Lines, time.Time{})
		if err != nil {
			h.writeError(w, err)
			return
		}
		view.Quote = &q
	}
	common.Data(w, status, view)
}

func cartID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart id", nil)
		return "", false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	if common.IsAppError(err) {
		common.WriteError(w, err)
		return
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrProductUnknown):
		common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrOutOfStock):
		common.JSONError(w, http.StatusConflict, "OUT_OF_STOCK", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
