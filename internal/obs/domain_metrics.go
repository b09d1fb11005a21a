package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SalesRecordedTotal counts recorded sales by payment method.
	SalesRecordedTotal *prometheus.CounterVec
	// SaleAmountTotal accumulates sale revenue by payment method.
	SaleAmountTotal *prometheus.CounterVec
	// LedgerWritesTotal counts ledger writes by transaction type and outcome.
	LedgerWritesTotal *prometheus.CounterVec
	// LowStockAlertsTotal counts low-stock warnings raised after sales.
	LowStockAlertsTotal prometheus.Counter
	// CashInDrawer reports the most recently computed drawer total.
	CashInDrawer prometheus.Gauge
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SalesRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_recorded_total",
			Help:      "Count of recorded sales by payment method.",
		}, []string{"payment_method"})
		SaleAmountTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_amount_total",
			Help:      "Accumulated sale revenue by payment method.",
		}, []string{"payment_method"})
		LedgerWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_writes_total",
			Help:      "Count of ledger writes by transaction type and outcome.",
		}, []string{"type", "result"})
		LowStockAlertsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_alerts_total",
			Help:      "Number of low-stock warnings raised after sales.",
		})
		CashInDrawer = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cash_in_drawer",
			Help:      "Most recently computed cash-in-drawer total for the current day.",
		})

		registerOrReuse(reg, SalesRecordedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SalesRecordedTotal = v
			}
		})
		registerOrReuse(reg, SaleAmountTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SaleAmountTotal = v
			}
		})
		registerOrReuse(reg, LedgerWritesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				LedgerWritesTotal = v
			}
		})
		registerOrReuse(reg, LowStockAlertsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				LowStockAlertsTotal = v
			}
		})
		registerOrReuse(reg, CashInDrawer, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				CashInDrawer = v
			}
		})
	})
}
