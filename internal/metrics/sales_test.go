package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSaleMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSaleMetrics(reg)
	m.ObserveSale("committed", 120*time.Millisecond)
	m.ObserveSale("", time.Millisecond)
	m.IncCompensation("delete_order", false)
	m.IncColumnFallback("order_product_lines", "without_line_total")
	m.IncCacheLookup(true)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "pos_sales_total", "result", "committed"); err != nil || got != 1 {
		t.Fatalf("expected committed=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "pos_sales_total", "result", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "pos_compensations_total", "result", "failed"); err != nil || got != 1 {
		t.Fatalf("expected failed compensation=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "pos_line_column_fallbacks_total", "columns", "without_line_total"); err != nil || got != 1 {
		t.Fatalf("expected fallback=1, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "pos_sale_duration_seconds", "result", "committed"); err != nil || got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f (%v)", got, err)
	}
}

func TestNilSaleMetricsIsNoop(t *testing.T) {
	var m *SaleMetrics
	m.ObserveSale("committed", time.Second)
	m.IncCompensation("restore_stock", true)
	m.IncColumnFallback("t", "c")
	m.IncCacheLookup(false)

	NewSaleMetrics(nil).ObserveSale("committed", time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
