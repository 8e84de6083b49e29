package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// IndividualDiscount is a per-product quantity discount candidate.
type IndividualDiscount struct {
	ProductID       string
	ProductName     string
	DiscountPercent Money
	Savings         Money
}

// IndividualDiscounts lists lines at or above the individual threshold that
// have a configured rate. Savings are taken from the original unit price,
// not the sale price.
func (e Engine) IndividualDiscounts(agg Aggregate) []IndividualDiscount {
	var out []IndividualDiscount
	for _, line := range agg.Lines {
		if line.Quantity < e.Policy.IndividualThreshold {
			continue
		}
		bps, ok := e.Policy.IndividualRate(line.Product.ID)
		if !ok {
			continue
		}
		original := decimal.NewFromInt(line.Product.UnitPrice).Mul(decimal.NewFromInt(int64(line.Quantity)))
		out = append(out, IndividualDiscount{
			ProductID:       line.Product.ID,
			ProductName:     line.Product.Name,
			DiscountPercent: decimal.New(bps, -2),
			Savings:         applyBps(original, bps),
		})
	}
	return out
}

// SpecialDiscounts is the Bulk/Special Discount Resolver output.
type SpecialDiscounts struct {
	BulkDiscountActive    bool
	TuesdayDiscountActive bool
	// IsTuesday is reported even when the cart is empty so callers can show the banner.
	IsTuesday bool
}

// IsSpecialDay reports whether now falls on the policy's discount weekday.
func (e Engine) IsSpecialDay(now time.Time) bool {
	return now.Weekday() == e.Policy.SpecialDay
}

// ResolveSpecial decides which cart-wide discounts apply.
func (e Engine) ResolveSpecial(agg Aggregate, now time.Time) SpecialDiscounts {
	special := e.IsSpecialDay(now)
	return SpecialDiscounts{
		BulkDiscountActive:    e.Policy.BulkRateBps > 0 && agg.TotalItemCount >= e.Policy.BulkThreshold,
		TuesdayDiscountActive: special && e.Policy.SpecialRateBps > 0 && agg.Subtotal.Sign() > 0,
		IsTuesday:             special,
	}
}

// Compose applies discounts in order: bulk or individual, then the special day
// discount on the running total. The returned total is never negative.
func (e Engine) Compose(subtotal Money, individual []IndividualDiscount, special SpecialDiscounts) (Money, []DiscountLine) {
	running := subtotal
	lines := []DiscountLine{}

	if special.BulkDiscountActive {
		amount := applyBps(subtotal, e.Policy.BulkRateBps)
		running = running.Sub(amount)
		lines = append(lines, DiscountLine{
			Label:  fmt.Sprintf("Bulk purchase discount (%d+ units)", e.Policy.BulkThreshold),
			Amount: amount,
			Kind:   DiscountBulk,
		})
	} else {
		for _, d := range individual {
			amount := nonNegative(d.Savings)
			running = running.Sub(amount)
			lines = append(lines, DiscountLine{
				Label:  fmt.Sprintf("%s (%d+)", d.ProductName, e.Policy.IndividualThreshold),
				Amount: amount,
				Kind:   DiscountIndividual,
			})
		}
	}
	running = nonNegative(running)

	if special.TuesdayDiscountActive {
		amount := applyBps(running, e.Policy.SpecialRateBps)
		running = nonNegative(running.Sub(amount))
		lines = append(lines, DiscountLine{
			Label:  fmt.Sprintf("%s Special %s%%", e.Policy.SpecialDay, percentLabel(e.Policy.SpecialRateBps)),
			Amount: amount,
			Kind:   DiscountSpecialDay,
		})
	}
	return running, lines
}
