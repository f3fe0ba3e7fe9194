package catalog

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"ProductCatalog/internal/product"
)

const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultError    = "error"
	resultPartial  = "partial"
	resultFailed   = "failed"
)

type Metrics struct {
	StockDecrements *prometheus.CounterVec
	OrderEvents     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StockDecrements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_stock_decrements_total",
				Help: "Stock decrements applied from order events",
			},
			[]string{"result"},
		),
		OrderEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_order_events_total",
				Help: "order_created events handled",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.StockDecrements, m.OrderEvents)
	return m
}

func (m *Metrics) stockDecrement(result string) {
	if m == nil {
		return
	}
	m.StockDecrements.WithLabelValues(result).Inc()
}

func (m *Metrics) orderEvent(result string) {
	if m == nil {
		return
	}
	m.OrderEvents.WithLabelValues(result).Inc()
}

func resultFor(err error) string {
	if errors.Is(err, product.ErrNotFound) {
		return resultNotFound
	}
	return resultError
}
