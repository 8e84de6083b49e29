package pricing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cart-pricing/internal/pricing"
)

var (
	monday  = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	tuesday = time.Date(2024, time.January, 2, 12, 0, 0, 0, time.UTC)
)

func testCatalog() []pricing.Product {
	return []pricing.Product{
		{ID: pricing.ProductKeyboard, Name: "Bug-Free Keyboard", UnitPrice: 10_000, StockQuantity: 50},
		{ID: pricing.ProductMouse, Name: "Productivity Mouse", UnitPrice: 20_000, StockQuantity: 30},
		{ID: pricing.ProductMonitorArm, Name: "Posture Monitor Arm", UnitPrice: 30_000, StockQuantity: 20},
		{ID: pricing.ProductLaptopPouch, Name: "Error-Proof Laptop Pouch", UnitPrice: 15_000, StockQuantity: 0},
		{ID: pricing.ProductSpeaker, Name: "Lo-Fi Coding Speaker", UnitPrice: 25_000, StockQuantity: 10},
	}
}

func requireMoney(t *testing.T, want int64, got pricing.Money) {
	t.Helper()
	require.Truef(t, decimal.NewFromInt(want).Equal(got), "expected %d, got %s", want, got.String())
}

func TestComputeCartTotalsIndividualDiscount(t *testing.T) {
	lines := []pricing.CartLine{{ProductID: pricing.ProductKeyboard, Quantity: 10}}
	res := pricing.ComputeCartTotals(lines, testCatalog(), monday)

	requireMoney(t, 100_000, res.Subtotal)
	requireMoney(t, 90_000, res.FinalTotal)
	require.Len(t, res.DiscountLines, 1)
	require.Equal(t, "Bug-Free Keyboard (10+)", res.DiscountLines[0].Label)
	require.Equal(t, pricing.DiscountIndividual, res.DiscountLines[0].Kind)
	requireMoney(t, 10_000, res.DiscountLines[0].Amount)
	require.False(t, res.AppliedBulkDiscount)
	require.False(t, res.IsTuesday)
	require.EqualValues(t, 10, res.TotalDiscountRatePercent)
	require.NoError(t, res.Err())
}

func TestComputeCartTotalsBulkFullSet(t *testing.T) {
	lines := []pricing.CartLine{
		{ProductID: pricing.ProductKeyboard, Quantity: 10},
		{ProductID: pricing.ProductMouse, Quantity: 10},
		{ProductID: pricing.ProductMonitorArm, Quantity: 10},
	}
	catalog := testCatalog()
	res := pricing.ComputeCartTotals(lines, catalog, monday)

	require.Equal(t, 30, res.TotalItemCount)
	requireMoney(t, 600_000, res.Subtotal)
	requireMoney(t, 450_000, res.FinalTotal)
	require.True(t, res.AppliedBulkDiscount)
	require.Len(t, res.DiscountLines, 1)
	require.Equal(t, "Bulk purchase discount (30+ units)", res.DiscountLines[0].Label)
	requireMoney(t, 150_000, res.DiscountLines[0].Amount)
	require.EqualValues(t, 25, res.TotalDiscountRatePercent)

	pts := pricing.ComputeLoyaltyPoints(res.FinalTotal, lines, res.TotalItemCount, res.IsTuesday, catalog)
	require.EqualValues(t, 700, pts.TotalPoints)
	require.EqualValues(t, 150, pts.SetBonus)
	require.EqualValues(t, 100, pts.QuantityBonus)
	require.Equal(t, []string{"Base: 450p", "Full set +100p", "Bulk purchase (30+) +100p"}, pts.Breakdown)
}

func TestComputeCartTotalsEmptyCart(t *testing.T) {
	res := pricing.ComputeCartTotals(nil, testCatalog(), monday)
	requireMoney(t, 0, res.Subtotal)
	requireMoney(t, 0, res.FinalTotal)
	require.Empty(t, res.DiscountLines)
	require.NotNil(t, res.DiscountLines)
	require.EqualValues(t, 0, res.TotalDiscountRatePercent)

	pts := pricing.ComputeLoyaltyPoints(res.FinalTotal, nil, 0, res.IsTuesday, testCatalog())
	require.EqualValues(t, 0, pts.TotalPoints)
	require.Empty(t, pts.Breakdown)
}

func TestComputeCartTotalsSingleItemPoints(t *testing.T) {
	lines := []pricing.CartLine{{ProductID: pricing.ProductKeyboard, Quantity: 1}}
	res := pricing.ComputeCartTotals(lines, testCatalog(), monday)
	requireMoney(t, 10_000, res.FinalTotal)

	pts := pricing.ComputeLoyaltyPoints(res.FinalTotal, lines, res.TotalItemCount, res.IsTuesday, testCatalog())
	require.EqualValues(t, 10, pts.TotalPoints)
	require.Equal(t, []string{"Base: 10p"}, pts.Breakdown)
}

func TestComputeCartTotalsIgnoresStock(t *testing.T) {
	lines := []pricing.CartLine{{ProductID: pricing.ProductLaptopPouch, Quantity: 2}}
	res := pricing.ComputeCartTotals(lines, testCatalog(), monday)
	requireMoney(t, 30_000, res.Subtotal)
	require.Empty(t, res.Diagnostics)
}

func TestComputeCartTotalsIdempotent(t *testing.T) {
	lines := []pricing.CartLine{
		{ProductID: pricing.ProductSpeaker, Quantity: 10},
		{ProductID: pricing.ProductMouse, Quantity: 3},
	}
	catalog := testCatalog()
	catalog[4].IsFlashSaleActive = true

	first := pricing.ComputeCartTotals(lines, catalog, tuesday)
	second := pricing.ComputeCartTotals(lines, catalog, tuesday)
	require.Equal(t, first, second)

	p1 := pricing.ComputeLoyaltyPoints(first.FinalTotal, lines, first.TotalItemCount, first.IsTuesday, catalog)
	p2 := pricing.ComputeLoyaltyPoints(second.FinalTotal, lines, second.TotalItemCount, second.IsTuesday, catalog)
	require.Equal(t, p1, p2)
}

func TestBulkSupersedesIndividual(t *testing.T) {
	lines := []pricing.CartLine{
		{ProductID: pricing.ProductSpeaker, Quantity: 10},
		{ProductID: pricing.ProductKeyboard, Quantity: 15},
		{ProductID: pricing.ProductMouse, Quantity: 5},
	}
	res := pricing.ComputeCartTotals(lines, testCatalog(), monday)
	require.True(t, res.AppliedBulkDiscount)
	for _, line := range res.DiscountLines {
		require.NotEqual(t, pricing.DiscountIndividual, line.Kind, "unexpected individual line %q", line.Label)
	}
	requireMoney(t, 500_000, res.Subtotal)
	requireMoney(t, 375_000, res.FinalTotal)
}

func TestTuesdayCompoundsOnRunningTotal(t *testing.T) {
	t.Run("after individual", func(t *testing.T) {
		lines := []pricing.CartLine{{ProductID: pricing.ProductKeyboard, Quantity: 10}}
		res := pricing.ComputeCartTotals(lines, testCatalog(), tuesday)
		require.True(t, res.IsTuesday)
		require.True(t, res.AppliedTuesdayDiscount)
		require.Len(t, res.DiscountLines, 2)
		last := res.DiscountLines[1]
		require.Equal(t, "Tuesday Special 10%", last.Label)
		requireMoney(t, 9_000, last.Amount)
		requireMoney(t, 81_000, res.FinalTotal)
		require.EqualValues(t, 19, res.TotalDiscountRatePercent)
	})

	t.Run("after bulk", func(t *testing.T) {
		lines := []pricing.CartLine{
			{ProductID: pricing.ProductKeyboard, Quantity: 10},
			{ProductID: pricing.ProductMouse, Quantity: 10},
			{ProductID: pricing.ProductMonitorArm, Quantity: 10},
		}
		catalog := testCatalog()
		res := pricing.ComputeCartTotals(lines, catalog, tuesday)
		require.Len(t, res.DiscountLines, 2)
		require.Equal(t, pricing.DiscountBulk, res.DiscountLines[0].Kind)
		requireMoney(t, 45_000, res.DiscountLines[1].Amount)
		requireMoney(t, 405_000, res.FinalTotal)

		pts := pricing.ComputeLoyaltyPoints(res.FinalTotal, lines, res.TotalItemCount, res.IsTuesday, catalog)
		require.EqualValues(t, 810+150+100, pts.TotalPoints)
		require.Equal(t, []string{"Base: 405p", "Tuesday 2x", "Full set +100p", "Bulk purchase (30+) +100p"}, pts.Breakdown)
	})

	t.Run("empty cart still reports weekday", func(t *testing.T) {
		res := pricing.ComputeCartTotals(nil, testCatalog(), tuesday)
		require.True(t, res.IsTuesday)
		require.False(t, res.AppliedTuesdayDiscount)
		require.Empty(t, res.DiscountLines)
	})
}

func TestTuesdayFractionalAmounts(t *testing.T) {
	catalog := []pricing.Product{{ID: "x", Name: "Sticker", UnitPrice: 1_005}}
	lines := []pricing.CartLine{{ProductID: "x", Quantity: 1}}
	res := pricing.ComputeCartTotals(lines, catalog, tuesday)
	require.Equal(t, "100.5", res.DiscountLines[0].Amount.String())
	require.Equal(t, "904.5", res.FinalTotal.String())
}

func TestSalePricesFeedSubtotalButNotSavings(t *testing.T) {
	catalog := testCatalog()
	catalog[0].IsFlashSaleActive = true
	lines := []pricing.CartLine{{ProductID: pricing.ProductKeyboard, Quantity: 10}}
	res := pricing.ComputeCartTotals(lines, catalog, monday)
	requireMoney(t, 80_000, res.Subtotal)
	requireMoney(t, 10_000, res.DiscountLines[0].Amount)
	requireMoney(t, 70_000, res.FinalTotal)
}

func TestMissingProductAndInvalidQuantityAreSkipped(t *testing.T) {
	lines := []pricing.CartLine{
		{ProductID: "ghost", Quantity: 3},
		{ProductID: pricing.ProductMouse, Quantity: 0},
		{ProductID: pricing.ProductKeyboard, Quantity: 2},
	}
	res := pricing.ComputeCartTotals(lines, testCatalog(), monday)
	requireMoney(t, 20_000, res.Subtotal)
	require.Equal(t, 2, res.TotalItemCount)
	require.Len(t, res.Diagnostics, 2)
	require.Equal(t, "PRODUCT_NOT_FOUND", res.Diagnostics[0].Code)
	require.Equal(t, "INVALID_QUANTITY", res.Diagnostics[1].Code)

	err := res.Err()
	require.Error(t, err)
	require.True(t, errors.Is(err, pricing.ErrProductNotFound))
	require.True(t, errors.Is(err, pricing.ErrInvalidQuantity))
}

func TestNonNegativeAmounts(t *testing.T) {
	catalog := testCatalog()
	for i := range catalog {
		catalog[i].IsFlashSaleActive = true
		catalog[i].IsRecommendedSaleActive = true
	}
	carts := [][]pricing.CartLine{
		{{ProductID: pricing.ProductSpeaker, Quantity: 10}},
		{{ProductID: pricing.ProductSpeaker, Quantity: 29}, {ProductID: pricing.ProductLaptopPouch, Quantity: 1}},
		{{ProductID: pricing.ProductMonitorArm, Quantity: 12}, {ProductID: pricing.ProductMouse, Quantity: 11}},
	}
	for _, day := range []time.Time{monday, tuesday} {
		for _, lines := range carts {
			res := pricing.ComputeCartTotals(lines, catalog, day)
			require.GreaterOrEqual(t, res.FinalTotal.Sign(), 0)
			for _, dl := range res.DiscountLines {
				require.GreaterOrEqual(t, dl.Amount.Sign(), 0, dl.Label)
			}
		}
	}
}

func TestCustomPolicyLabels(t *testing.T) {
	policy := pricing.DefaultPolicy()
	policy.SpecialDay = time.Friday
	policy.SpecialRateBps = 1250
	policy.BulkThreshold = 5
	engine := pricing.New(policy)

	friday := time.Date(2024, time.January, 5, 9, 0, 0, 0, time.UTC)
	res := engine.ComputeCartTotals([]pricing.CartLine{{ProductID: pricing.ProductKeyboard, Quantity: 5}}, testCatalog(), friday)
	require.True(t, res.IsTuesday)
	require.Equal(t, "Bulk purchase discount (5+ units)", res.DiscountLines[0].Label)
	require.Equal(t, "Friday Special 12.5%", res.DiscountLines[1].Label)
}
