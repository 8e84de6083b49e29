package catalog

import (
	"fmt"

	"github.com/noah-isme/cart-pricing/internal/pricing"
)

const (
	// LowStockThreshold is the stock level below which a product is flagged.
	LowStockThreshold = 5
	// TotalStockWarningThreshold is the catalog-wide stock level that raises a warning.
	TotalStockWarningThreshold = 50
)

// Sale labels shown next to a product.
const (
	LabelSuperSale   = "SUPER SALE"
	LabelLightning   = "LIGHTNING SALE"
	LabelRecommended = "RECOMMENDED"
)

// SaleLabel names the promotion currently applied to p, or "" when none is.
func SaleLabel(p pricing.Product) string {
	switch {
	case p.IsFlashSaleActive && p.IsRecommendedSaleActive:
		return LabelSuperSale
	case p.IsFlashSaleActive:
		return LabelLightning
	case p.IsRecommendedSaleActive:
		return LabelRecommended
	default:
		return ""
	}
}

// StockReport summarises stock levels across the catalog.
type StockReport struct {
	TotalStock    int      `json:"totalStock"`
	LowTotalStock bool     `json:"lowTotalStock"`
	LowStock      []string `json:"lowStock"`
	OutOfStock    []string `json:"outOfStock"`
	Messages      []string `json:"messages"`
}

// BuildStockReport inspects products in catalog order.
func BuildStockReport(products []pricing.Product) StockReport {
	report := StockReport{LowStock: []string{}, OutOfStock: []string{}, Messages: []string{}}
	for _, p := range products {
		report.TotalStock += p.StockQuantity
		switch {
		case p.StockQuantity <= 0:
			report.OutOfStock = append(report.OutOfStock, p.ID)
			report.Messages = append(report.Messages, fmt.Sprintf("%s: out of stock", p.Name))
		case p.StockQuantity < LowStockThreshold:
			report.LowStock = append(report.LowStock, p.ID)
			report.Messages = append(report.Messages, fmt.Sprintf("%s: low stock (%d left)", p.Name, p.StockQuantity))
		}
	}
	report.LowTotalStock = report.TotalStock < TotalStockWarningThreshold
	return report
}
