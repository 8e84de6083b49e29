package promo

import "github.com/noah-isme/cart-pricing/internal/pricing"

// PickLightning chooses a random in-stock product that is not already on a
// lightning sale. intn must return a value in [0, n).
func PickLightning(products []pricing.Product, intn func(n int) int) (pricing.Product, bool) {
	candidates := make([]pricing.Product, 0, len(products))
	for _, p := range products {
		if p.StockQuantity > 0 && !p.IsFlashSaleActive {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return pricing.Product{}, false
	}
	i := intn(len(candidates))
	if i < 0 || i >= len(candidates) {
		i = 0
	}
	return candidates[i], true
}

// PickRecommended returns the first product in catalog order other than
// lastSelected that is in stock and not yet recommended. Nothing is picked
// until a product has been selected.
func PickRecommended(products []pricing.Product, lastSelected string) (pricing.Product, bool) {
	if lastSelected == "" {
		return pricing.Product{}, false
	}
	for _, p := range products {
		if p.ID == lastSelected || p.StockQuantity <= 0 || p.IsRecommendedSaleActive {
			continue
		}
		return p, true
	}
	return pricing.Product{}, false
}
