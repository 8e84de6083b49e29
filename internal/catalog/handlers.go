package catalog

import (
	"net/http"

	"github.com/noah-isme/cart-pricing/internal/common"
	"github.com/noah-isme/cart-pricing/internal/pricing"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	store    *Store
	policy   pricing.Policy
	currency string
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Store    *Store
	Policy   *pricing.Policy
	Currency string
}

// NewHandler constructs a Handler. A nil policy selects the default pricing rules.
func NewHandler(cfg HandlerConfig) *Handler {
	policy := pricing.DefaultPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}
	return &Handler{store: cfg.Store, policy: policy, currency: cfg.Currency}
}

// ProductListItem represents an entry in the product list response.
type ProductListItem struct {
	ID                      string `json:"id"`
	Name                    string `json:"name"`
	UnitPrice               int64  `json:"unitPrice"`
	CurrentPrice            int64  `json:"currentPrice"`
	StockQuantity           int    `json:"stockQuantity"`
	InStock                 bool   `json:"inStock"`
	LowStock                bool   `json:"lowStock"`
	IsFlashSaleActive       bool   `json:"isFlashSaleActive"`
	IsRecommendedSaleActive bool   `json:"isRecommendedSaleActive"`
	SaleLabel               string `json:"saleLabel,omitempty"`
}

func (h *Handler) listItem(p pricing.Product) ProductListItem {
	return ProductListItem{
		ID:                      p.ID,
		Name:                    p.Name,
		UnitPrice:               p.UnitPrice,
		CurrentPrice:            h.policy.CurrentPrice(p),
		StockQuantity:           p.StockQuantity,
		InStock:                 p.StockQuantity > 0,
		LowStock:                p.StockQuantity > 0 && p.StockQuantity < LowStockThreshold,
		IsFlashSaleActive:       p.IsFlashSaleActive,
		IsRecommendedSaleActive: p.IsRecommendedSaleActive,
		SaleLabel:               SaleLabel(p),
	}
}

// Products handles GET /api/v1/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog store not configured", nil)
		return
	}
	snapshot := h.store.Snapshot()
	items := make([]ProductListItem, 0, len(snapshot))
	for _, p := range snapshot {
		items = append(items, h.listItem(p))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":     items,
		"currency": h.currency,
	})
}

// Stock handles GET /api/v1/products/stock.
func (h *Handler) Stock(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog store not configured", nil)
		return
	}
	common.Data(w, http.StatusOK, BuildStockReport(h.store.Snapshot()))
}
