package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SalesProcessedTotal counts sale processing outcomes by payment method.
	SalesProcessedTotal *prometheus.CounterVec
	// SaleFailuresTotal counts rejected sales by rejection reason.
	SaleFailuresTotal *prometheus.CounterVec
	// SaleTotalAmount records the charged total per processed sale.
	SaleTotalAmount prometheus.Histogram
	// FreeBottlesGrantedTotal counts allowance units consumed by bottle size.
	FreeBottlesGrantedTotal *prometheus.CounterVec
	// AllowanceResetsTotal counts bulk allowance resets.
	AllowanceResetsTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SalesProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_processed_total",
			Help:      "Count of successfully processed sales by payment method.",
		}, []string{"payment_method", "staff_discount"})
		SaleFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_failures_total",
			Help:      "Count of rejected sale transactions by reason.",
		}, []string{"reason"})
		SaleTotalAmount = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_total_amount",
			Help:      "Distribution of charged sale totals.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		})
		FreeBottlesGrantedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "free_bottles_granted_total",
			Help:      "Count of free water bottles granted from staff allowances.",
		}, []string{"size"})
		AllowanceResetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allowance_resets_total",
			Help:      "Number of bulk staff allowance resets performed.",
		})

		mustRegisterCollector(reg, SalesProcessedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SalesProcessedTotal = v
			}
		})
		mustRegisterCollector(reg, SaleFailuresTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SaleFailuresTotal = v
			}
		})
		mustRegisterCollector(reg, SaleTotalAmount, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				SaleTotalAmount = v
			}
		})
		mustRegisterCollector(reg, FreeBottlesGrantedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				FreeBottlesGrantedTotal = v
			}
		})
		mustRegisterCollector(reg, AllowanceResetsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				AllowanceResetsTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
