package obs_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cart-pricing/internal/obs"
)

func TestDomainMetricsCounters(t *testing.T) {
	obs.MustRegisterDomainMetrics("cart", prometheus.NewRegistry())
	require.NotNil(t, obs.PromoSalesTotal)
	require.NotNil(t, obs.CartOperationsTotal)

	before := testutil.ToFloat64(obs.PromoSalesTotal.WithLabelValues("lightning", "applied"))
	obs.CountPromo("lightning", "applied")
	require.Equal(t, before+1, testutil.ToFloat64(obs.PromoSalesTotal.WithLabelValues("lightning", "applied")))

	okBefore := testutil.ToFloat64(obs.CartOperationsTotal.WithLabelValues("add_item", "ok"))
	errBefore := testutil.ToFloat64(obs.CartOperationsTotal.WithLabelValues("add_item", "error"))
	obs.CountCartOp("add_item", nil)
	obs.CountCartOp("add_item", errors.New("boom"))
	require.Equal(t, okBefore+1, testutil.ToFloat64(obs.CartOperationsTotal.WithLabelValues("add_item", "ok")))
	require.Equal(t, errBefore+1, testutil.ToFloat64(obs.CartOperationsTotal.WithLabelValues("add_item", "error")))
}

func TestInstrumentRedisRejectsNilClient(t *testing.T) {
	require.Error(t, obs.InstrumentRedis(nil, false))
}
