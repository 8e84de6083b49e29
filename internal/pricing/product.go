package pricing

import "github.com/shopspring/decimal"

// Product is a catalog entry as seen by the engine.
type Product struct {
	ID                      string `json:"id"`
	Name                    string `json:"name"`
	UnitPrice               int64  `json:"unitPrice"`
	StockQuantity           int    `json:"stockQuantity"`
	IsFlashSaleActive       bool   `json:"isFlashSaleActive"`
	IsRecommendedSaleActive bool   `json:"isRecommendedSaleActive"`
}

// CartLine is one product entry in the cart.
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CurrentPrice derives prod's unit price after its sale flags, rounded half-up
// to a whole currency unit. The result never exceeds the unit price.
func (p Policy) CurrentPrice(prod Product) int64 {
	unit := prod.UnitPrice
	if unit < 0 {
		unit = 0
	}
	bps := p.saleBps(prod)
	if bps == 0 {
		return unit
	}
	price := decimal.NewFromInt(unit).
		Mul(decimal.NewFromInt(bpsScale - bps)).
		Div(bpsDivisor).
		Round(0).
		IntPart()
	if price > unit {
		return unit
	}
	return price
}

func indexCatalog(catalog []Product) map[string]Product {
	idx := make(map[string]Product, len(catalog))
	for _, p := range catalog {
		if _, seen := idx[p.ID]; seen {
			continue
		}
		idx[p.ID] = p
	}
	return idx
}
