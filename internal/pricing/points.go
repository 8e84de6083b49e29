package pricing

import "fmt"

// Points is the Loyalty Point Calculator output.
type Points struct {
	TotalPoints   int64    `json:"totalPoints"`
	BasePoints    int64    `json:"basePoints"`
	SetBonus      int64    `json:"setBonus"`
	QuantityBonus int64    `json:"quantityBonus"`
	Breakdown     []string `json:"breakdown"`
}

// ComputeLoyaltyPoints awards base points on the final total, doubles them on
// the special day, then adds the set and quantity-tier bonuses. Only the base is
// multiplied. Lines count towards the set bonus when their product exists in
// catalog and their quantity is positive.
func (e Engine) ComputeLoyaltyPoints(finalTotal Money, lines []CartLine, totalItemCount int, isTuesday bool, catalog []Product) Points {
	pts := Points{Breakdown: []string{}}

	base := applyBps(nonNegative(finalTotal), e.Policy.PointsRateBps).Floor().IntPart()
	if base > 0 {
		pts.Breakdown = append(pts.Breakdown, fmt.Sprintf("Base: %dp", base))
		if isTuesday && e.Policy.SpecialDayMultiplier > 1 {
			base *= e.Policy.SpecialDayMultiplier
			pts.Breakdown = append(pts.Breakdown, fmt.Sprintf("%s %dx", e.Policy.SpecialDay, e.Policy.SpecialDayMultiplier))
		}
	}
	pts.BasePoints = base

	pts.SetBonus = e.setBonus(lines, catalog, &pts.Breakdown)

	if tier, ok := e.Policy.tier(totalItemCount); ok && tier.Bonus > 0 {
		pts.QuantityBonus = tier.Bonus
		pts.Breakdown = append(pts.Breakdown, fmt.Sprintf("Bulk purchase (%d+) +%dp", tier.MinItems, tier.Bonus))
	}

	pts.TotalPoints = pts.BasePoints + pts.SetBonus + pts.QuantityBonus
	return pts
}

// setBonus stacks the full-set bonus on top of the pair bonus, while the
// breakdown only names the highest set reached.
func (e Engine) setBonus(lines []CartLine, catalog []Product, breakdown *[]string) int64 {
	idx := indexCatalog(catalog)
	present := make(map[string]bool, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		if _, ok := idx[line.ProductID]; !ok {
			continue
		}
		present[line.ProductID] = true
	}

	set := e.Policy.Set
	if !present[set.KeyboardID] || !present[set.MouseID] {
		return 0
	}
	bonus := set.PairBonus
	if present[set.MonitorArmID] {
		bonus += set.FullSetBonus
		*breakdown = append(*breakdown, fmt.Sprintf("Full set +%dp", set.FullSetBonus))
		return bonus
	}
	*breakdown = append(*breakdown, fmt.Sprintf("Keyboard+Mouse set +%dp", set.PairBonus))
	return bonus
}
