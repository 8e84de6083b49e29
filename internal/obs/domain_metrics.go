package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuotesTotal counts pricing computations by outcome (ok, partial, rejected).
	QuotesTotal *prometheus.CounterVec
	// QuoteDuration records engine latency in milliseconds.
	QuoteDuration prometheus.Histogram
	// DiscountsAppliedTotal counts discount lines by kind.
	DiscountsAppliedTotal *prometheus.CounterVec
	// LoyaltyPointsAwarded observes the points earned per quote.
	LoyaltyPointsAwarded prometheus.Histogram
	// PromoSalesTotal counts promotional sale ticks by kind and outcome.
	PromoSalesTotal *prometheus.CounterVec
	// CartOperationsTotal counts cart session mutations by operation and outcome.
	CartOperationsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quotes_total",
			Help:      "Count of cart pricing computations by outcome.",
		}, []string{"result"})
		QuoteDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_quote_duration_ms",
			Help:      "Latency of cart pricing computations in milliseconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		})
		DiscountsAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_discounts_applied_total",
			Help:      "Count of discount lines produced, by discount kind.",
		}, []string{"kind"})
		LoyaltyPointsAwarded = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "loyalty_points_awarded",
			Help:      "Loyalty points earned per quote.",
			Buckets:   []float64{0, 10, 50, 100, 250, 500, 1000, 2500},
		})
		PromoSalesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_sales_total",
			Help:      "Count of promotional sale ticks by kind and outcome.",
		}, []string{"kind", "result"})
		CartOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_operations_total",
			Help:      "Count of cart session operations by outcome.",
		}, []string{"op", "result"})

		QuotesTotal = register(reg, QuotesTotal)
		QuoteDuration = register(reg, QuoteDuration)
		DiscountsAppliedTotal = register(reg, DiscountsAppliedTotal)
		LoyaltyPointsAwarded = register(reg, LoyaltyPointsAwarded)
		PromoSalesTotal = register(reg, PromoSalesTotal)
		CartOperationsTotal = register(reg, CartOperationsTotal)
	})
}

// CountPromo increments PromoSalesTotal when domain metrics are registered.
func CountPromo(kind, result string) {
	if PromoSalesTotal != nil {
		PromoSalesTotal.WithLabelValues(kind, result).Inc()
	}
}

// CountCartOp increments CartOperationsTotal when domain metrics are registered.
func CountCartOp(op string, err error) {
	if CartOperationsTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	CartOperationsTotal.WithLabelValues(op, result).Inc()
}
