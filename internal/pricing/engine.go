package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Engine computes cart totals and loyalty points for a fixed policy.
// It holds no mutable state; one value may serve concurrent callers.
type Engine struct {
	Policy Policy
}

var defaultEngine = Engine{Policy: DefaultPolicy()}

// New returns an engine for the provided policy.
func New(policy Policy) Engine {
	return Engine{Policy: policy}
}

// ComputeCartTotals prices lines against catalog at instant now using the default policy.
func ComputeCartTotals(lines []CartLine, catalog []Product, now time.Time) PricingResult {
	return defaultEngine.ComputeCartTotals(lines, catalog, now)
}

// ComputeLoyaltyPoints awards points for a priced cart using the default policy.
func ComputeLoyaltyPoints(finalTotal Money, lines []CartLine, totalItemCount int, isTuesday bool, catalog []Product) Points {
	return defaultEngine.ComputeLoyaltyPoints(finalTotal, lines, totalItemCount, isTuesday, catalog)
}

// PricedLine is a valid cart line joined with its catalog entry.
type PricedLine struct {
	Product      Product
	Quantity     int
	CurrentPrice int64
	Total        Money
}

// Aggregate is the Line Aggregator output.
type Aggregate struct {
	Lines          []PricedLine
	Subtotal       Money
	TotalItemCount int
	Diagnostics    []Diagnostic
}

// Aggregate joins lines with catalog prices. Lines whose product is missing or
// whose quantity is not positive contribute nothing and are reported as diagnostics.
// Stock is not consulted: callers exclude unavailable products before pricing.
func (e Engine) Aggregate(lines []CartLine, catalog []Product) Aggregate {
	idx := indexCatalog(catalog)
	agg := Aggregate{Subtotal: decimal.Zero}
	for _, line := range lines {
		product, ok := idx[line.ProductID]
		if !ok {
			agg.Diagnostics = append(agg.Diagnostics, productNotFound(line))
			continue
		}
		if line.Quantity <= 0 {
			agg.Diagnostics = append(agg.Diagnostics, invalidQuantity(line))
			continue
		}
		price := e.Policy.CurrentPrice(product)
		total := decimal.NewFromInt(price).Mul(decimal.NewFromInt(int64(line.Quantity)))
		agg.Lines = append(agg.Lines, PricedLine{
			Product:      product,
			Quantity:     line.Quantity,
			CurrentPrice: price,
			Total:        total,
		})
		agg.Subtotal = agg.Subtotal.Add(total)
		agg.TotalItemCount += line.Quantity
	}
	return agg
}

// DiscountKind classifies a discount line.
type DiscountKind string

const (
	DiscountIndividual DiscountKind = "individual"
	DiscountBulk       DiscountKind = "bulk"
	DiscountSpecialDay DiscountKind = "special_day"
)

// DiscountLine describes one contribution to total savings.
type DiscountLine struct {
	Label  string       `json:"label"`
	Amount Money        `json:"amount"`
	Kind   DiscountKind `json:"kind"`
}

// PricingResult is the outcome of ComputeCartTotals.
type PricingResult struct {
	Subtotal                 Money          `json:"subtotal"`
	FinalTotal               Money          `json:"finalTotal"`
	DiscountLines            []DiscountLine `json:"discountLines"`
	IsTuesday                bool           `json:"isTuesday"`
	AppliedBulkDiscount      bool           `json:"appliedBulkDiscount"`
	AppliedTuesdayDiscount   bool           `json:"appliedTuesdayDiscount"`
	TotalDiscountRatePercent int64          `json:"totalDiscountRatePercent"`
	TotalItemCount           int            `json:"totalItemCount"`
	Diagnostics              []Diagnostic   `json:"diagnostics,omitempty"`
}

// Savings is the amount taken off the subtotal.
func (r PricingResult) Savings() Money {
	return nonNegative(r.Subtotal.Sub(r.FinalTotal))
}

// Err joins the diagnostics into one error, or returns nil when every line was priced.
func (r PricingResult) Err() error {
	return joinDiagnostics(r.Diagnostics)
}

// ComputeCartTotals runs aggregation, discount resolution and composition.
func (e Engine) ComputeCartTotals(lines []CartLine, catalog []Product, now time.Time) PricingResult {
	agg := e.Aggregate(lines, catalog)
	individual := e.IndividualDiscounts(agg)
	special := e.ResolveSpecial(agg, now)
	finalTotal, discountLines := e.Compose(agg.Subtotal, individual, special)

	return PricingResult{
		Subtotal:                 agg.Subtotal,
		FinalTotal:               finalTotal,
		DiscountLines:            discountLines,
		IsTuesday:                special.IsTuesday,
		AppliedBulkDiscount:      special.BulkDiscountActive,
		AppliedTuesdayDiscount:   special.TuesdayDiscountActive,
		TotalDiscountRatePercent: discountRatePercent(agg.Subtotal, finalTotal),
		TotalItemCount:           agg.TotalItemCount,
		Diagnostics:              agg.Diagnostics,
	}
}

func discountRatePercent(subtotal, finalTotal Money) int64 {
	if subtotal.Sign() <= 0 {
		return 0
	}
	return subtotal.Sub(finalTotal).
		Mul(decimal.NewFromInt(100)).
		Div(subtotal).
		Round(0).
		IntPart()
}
