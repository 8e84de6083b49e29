package quote

import (
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/cart-pricing/internal/common"
	"github.com/noah-isme/cart-pricing/internal/pricing"
)

// Handler exposes the quote endpoint.
type Handler struct {
	Svc *Service
}

// LineRequest is one requested cart line. Quantity is not range-checked here so
// that non-positive quantities surface as pricing diagnostics.
type LineRequest struct {
	ProductID string `json:"productId" validate:"required,max=64"`
	Quantity  int    `json:"quantity"`
}

// Request is the POST /api/v1/quote payload. At most 200 lines are accepted.
type Request struct {
	Lines []LineRequest `json:"lines" validate:"max=200,dive"`
	// At is an RFC3339 instant or a YYYY-MM-DD date in the store timezone.
	At string `json:"at,omitempty"`
}

// CartLines converts the request lines for the engine.
func (r Request) CartLines() []pricing.CartLine {
	out := make([]pricing.CartLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		out = append(out, pricing.CartLine{ProductID: strings.TrimSpace(l.ProductID), Quantity: l.Quantity})
	}
	return out
}

// ParseAt interprets an "at" value. An empty value yields the zero time.
func ParseAt(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	// noon keeps the weekday stable across DST shifts
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, common.BadRequest("at must be RFC3339 or YYYY-MM-DD", err)
	}
	return t.Add(12 * time.Hour), nil
}

// Create handles POST /api/v1/quote.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var req Request
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.ValidateStruct(req); err != nil {
		common.WriteError(w, err)
		return
	}
	at, err := ParseAt(req.At, h.Svc.location())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.Svc.Quote(r.Context(), req.CartLines(), at)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, q)
}
