package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SaleMetrics records fulfillment outcomes. A zero value or nil pointer is a no-op.
type SaleMetrics struct {
	outcomes      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	compensations *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	cache         *prometheus.CounterVec
}

// NewSaleMetrics registers the sale metrics on the provided registerer.
func NewSaleMetrics(reg prometheus.Registerer) *SaleMetrics {
	if reg == nil {
		return &SaleMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_sales_total",
		Help: "Sale attempts by result.",
	}, []string{"result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pos_sale_duration_seconds",
		Help:    "Duration of sale attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	compensations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_compensations_total",
		Help: "Compensation steps run after a failed sale.",
	}, []string{"step", "result"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_line_column_fallbacks_total",
		Help: "Line inserts retried with a reduced column set.",
	}, []string{"table", "columns"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_combo_cache_lookups_total",
		Help: "Combo cache lookups by result.",
	}, []string{"result"})
	reg.MustRegister(outcomes, duration, compensations, fallbacks, cache)
	return &SaleMetrics{
		outcomes:      outcomes,
		duration:      duration,
		compensations: compensations,
		fallbacks:     fallbacks,
		cache:         cache,
	}
}

// ObserveSale records one finished sale attempt.
func (m *SaleMetrics) ObserveSale(result string, elapsed time.Duration) {
	if m == nil || m.outcomes == nil {
		return
	}
	result = normalizeLabel(result)
	m.outcomes.WithLabelValues(result).Inc()
	m.duration.WithLabelValues(result).Observe(elapsed.Seconds())
}

func (m *SaleMetrics) IncCompensation(step string, ok bool) {
	if m == nil || m.compensations == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.compensations.WithLabelValues(normalizeLabel(step), result).Inc()
}

func (m *SaleMetrics) IncColumnFallback(table string, columns string) {
	if m == nil || m.fallbacks == nil {
		return
	}
	m.fallbacks.WithLabelValues(normalizeLabel(table), normalizeLabel(columns)).Inc()
}

func (m *SaleMetrics) IncCacheLookup(hit bool) {
	if m == nil || m.cache == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
