package pricing

import (
	"sort"
	"time"
)

// Product identifiers referenced by the default discount and set-bonus tables.
const (
	ProductKeyboard    = "p1"
	ProductMouse       = "p2"
	ProductMonitorArm  = "p3"
	ProductLaptopPouch = "p4"
	ProductSpeaker     = "p5"
)

// QuantityTier awards Bonus points when the cart holds at least MinItems units.
type QuantityTier struct {
	MinItems int
	Bonus    int64
}

// SetBonus describes the keyboard/mouse/monitor-arm combination bonus.
type SetBonus struct {
	KeyboardID   string
	MouseID      string
	MonitorArmID string
	// PairBonus is awarded for keyboard+mouse.
	PairBonus int64
	// FullSetBonus is awarded on top of PairBonus when the monitor arm is present too.
	FullSetBonus int64
}

// Policy holds every threshold and rate used by the engine. Rates are in basis points.
type Policy struct {
	IndividualThreshold int
	IndividualRatesBps  map[string]int64

	BulkThreshold int
	BulkRateBps   int64

	SpecialDay     time.Weekday
	SpecialRateBps int64

	FlashSaleBps       int64
	RecommendedSaleBps int64

	PointsRateBps        int64
	SpecialDayMultiplier int64
	Set                  SetBonus
	QuantityTiers        []QuantityTier
}

// DefaultPolicy returns the store's standard pricing rules.
func DefaultPolicy() Policy {
	return Policy{
		IndividualThreshold: 10,
		IndividualRatesBps: map[string]int64{
			ProductKeyboard:    1000,
			ProductMouse:       1500,
			ProductMonitorArm:  2000,
			ProductLaptopPouch: 500,
			ProductSpeaker:     2500,
		},
		BulkThreshold:        30,
		BulkRateBps:          2500,
		SpecialDay:           time.Tuesday,
		SpecialRateBps:       1000,
		FlashSaleBps:         2000,
		RecommendedSaleBps:   500,
		PointsRateBps:        10,
		SpecialDayMultiplier: 2,
		Set: SetBonus{
			KeyboardID:   ProductKeyboard,
			MouseID:      ProductMouse,
			MonitorArmID: ProductMonitorArm,
			PairBonus:    50,
			FullSetBonus: 100,
		},
		QuantityTiers: []QuantityTier{
			{MinItems: 10, Bonus: 20},
			{MinItems: 20, Bonus: 50},
			{MinItems: 30, Bonus: 100},
		},
	}
}

// IndividualRate reports the per-product rate in basis points, if one is configured.
func (p Policy) IndividualRate(productID string) (int64, bool) {
	bps, ok := p.IndividualRatesBps[productID]
	if !ok || bps <= 0 {
		return 0, false
	}
	return bps, true
}

// saleBps returns the unit-price discount implied by the product's sale flags.
// Both flags together add up once; they are not compounded.
func (p Policy) saleBps(prod Product) int64 {
	var bps int64
	if prod.IsFlashSaleActive {
		bps += p.FlashSaleBps
	}
	if prod.IsRecommendedSaleActive {
		bps += p.RecommendedSaleBps
	}
	if bps < 0 {
		return 0
	}
	if bps > bpsScale {
		return bpsScale
	}
	return bps
}

// tier returns the highest quantity tier met by totalItems.
func (p Policy) tier(totalItems int) (QuantityTier, bool) {
	tiers := append([]QuantityTier(nil), p.QuantityTiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinItems > tiers[j].MinItems })
	for _, t := range tiers {
		if totalItems >= t.MinItems {
			return t, true
		}
	}
	return QuantityTier{}, false
}
