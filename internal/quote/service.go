package quote

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/cart-pricing/internal/common"
	"github.com/noah-isme/cart-pricing/internal/obs"
	"github.com/noah-isme/cart-pricing/internal/pricing"
)

// Catalog supplies an immutable copy of the products to price against.
type Catalog interface {
	Snapshot() []pricing.Product
}

// Line is a priced cart line as shown to shoppers.
type Line struct {
	ProductID    string        `json:"productId"`
	Name         string        `json:"name"`
	Quantity     int           `json:"quantity"`
	UnitPrice    int64         `json:"unitPrice"`
	CurrentPrice int64         `json:"currentPrice"`
	LineTotal    pricing.Money `json:"lineTotal"`
	SaleLabel    string        `json:"saleLabel,omitempty"`
}

// Quote is the full pricing outcome for a cart.
type Quote struct {
	Lines           []Line                 `json:"lines"`
	Subtotal        pricing.Money          `json:"subtotal"`
	FinalTotal      pricing.Money          `json:"finalTotal"`
	Savings         pricing.Money          `json:"savings"`
	Discounts       []pricing.DiscountLine `json:"discounts"`
	IsTuesday       bool                   `json:"isTuesday"`
	BulkDiscount    bool                   `json:"bulkDiscount"`
	TuesdayDiscount bool                   `json:"tuesdayDiscount"`
	DiscountRate    int64                  `json:"discountRate"`
	ItemCount       int                    `json:"itemCount"`
	Points          int64                  `json:"points"`
	PointsDetail    []string               `json:"pointsDetail"`
	Currency        string                 `json:"currency"`
	PricedAt        time.Time              `json:"pricedAt"`
	Diagnostics     []pricing.Diagnostic   `json:"diagnostics,omitempty"`
}

// Service prices carts against the live catalog.
type Service struct {
	Catalog  Catalog
	Engine   pricing.Engine
	Location *time.Location
	// Strict rejects carts containing lines the engine had to skip.
	Strict   bool
	Currency string
	Now      func() time.Time
	Logger   zerolog.Logger
	// SaleLabel names a product's promotion for display; optional.
	SaleLabel func(pricing.Product) string
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.Local
}

// Quote prices lines at instant at, or now when at is zero. The weekday rules
// are evaluated in the store's timezone.
func (s *Service) Quote(ctx context.Context, lines []pricing.CartLine, at time.Time) (Quote, error) {
	if s == nil || s.Catalog == nil {
		return Quote{}, errors.New("quote: catalog not configured")
	}
	_, span := otel.Tracer("quote").Start(ctx, "pricing.Quote")
	defer span.End()

	if at.IsZero() {
		at = s.now()
	}
	at = at.In(s.location())
	snapshot := s.Catalog.Snapshot()

	start := time.Now()
	result := s.Engine.ComputeCartTotals(lines, snapshot, at)
	points := s.Engine.ComputeLoyaltyPoints(result.FinalTotal, lines, result.TotalItemCount, result.IsTuesday, snapshot)
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.Int("cart.lines", len(lines)),
		attribute.Int("cart.items", result.TotalItemCount),
		attribute.String("cart.final_total", result.FinalTotal.String()),
		attribute.Bool("cart.is_tuesday", result.IsTuesday),
		attribute.Int64("cart.points", points.TotalPoints),
		attribute.Int("cart.diagnostics", len(result.Diagnostics)),
	)

	if err := result.Err(); err != nil {
		if s.Strict {
			span.SetStatus(codes.Error, "cart rejected")
			countQuote("rejected", elapsed, nil, 0)
			return Quote{}, common.NewAppError("UNPROCESSABLE_CART", "cart contains lines that cannot be priced", http.StatusUnprocessableEntity, err).
				WithDetails(map[string]any{"diagnostics": result.Diagnostics})
		}
		s.Logger.Warn().
			Err(err).
			Int("skipped_lines", len(result.Diagnostics)).
			Msg("pricing skipped cart lines")
		countQuote("partial", elapsed, result.DiscountLines, points.TotalPoints)
	} else {
		countQuote("ok", elapsed, result.DiscountLines, points.TotalPoints)
	}

	return Quote{
		Lines:           s.pricedLines(lines, snapshot),
		Subtotal:        result.Subtotal,
		FinalTotal:      result.FinalTotal,
		Savings:         result.Savings(),
		Discounts:       result.DiscountLines,
		IsTuesday:       result.IsTuesday,
		BulkDiscount:    result.AppliedBulkDiscount,
		TuesdayDiscount: result.AppliedTuesdayDiscount,
		DiscountRate:    result.TotalDiscountRatePercent,
		ItemCount:       result.TotalItemCount,
		Points:          points.TotalPoints,
		PointsDetail:    points.Breakdown,
		Currency:        s.Currency,
		PricedAt:        at,
		Diagnostics:     result.Diagnostics,
	}, nil
}

func (s *Service) pricedLines(lines []pricing.CartLine, snapshot []pricing.Product) []Line {
	agg := s.Engine.Aggregate(lines, snapshot)
	out := make([]Line, 0, len(agg.Lines))
	for _, pl := range agg.Lines {
		line := Line{
			ProductID:    pl.Product.ID,
			Name:         pl.Product.Name,
			Quantity:     pl.Quantity,
			UnitPrice:    pl.Product.UnitPrice,
			CurrentPrice: pl.CurrentPrice,
			LineTotal:    pl.Total,
		}
		if s.SaleLabel != nil {
			line.SaleLabel = s.SaleLabel(pl.Product)
		}
		out = append(out, line)
	}
	return out
}

func countQuote(result string, elapsed time.Duration, discounts []pricing.DiscountLine, points int64) {
	if obs.QuotesTotal != nil {
		obs.QuotesTotal.WithLabelValues(result).Inc()
	}
	if obs.QuoteDuration != nil {
		obs.QuoteDuration.Observe(obs.DurationMillis(elapsed))
	}
	if result == "rejected" {
		return
	}
	if obs.DiscountsAppliedTotal != nil {
		for _, d := range discounts {
			obs.DiscountsAppliedTotal.WithLabelValues(string(d.Kind)).Inc()
		}
	}
	if obs.LoyaltyPointsAwarded != nil {
		obs.LoyaltyPointsAwarded.Observe(float64(points))
	}
}
