package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jwZhang-1102/goodsManagement/internal/domain/inventory"
)

// Transfers counts transfer outcomes. It is registered as an observer on
// the coordinator.
type Transfers struct {
	requests *prometheus.CounterVec
	units    prometheus.Counter
	duration *prometheus.HistogramVec
	low      *prometheus.GaugeVec
}

func NewTransfers(reg prometheus.Registerer) *Transfers {
	f := promauto.With(reg)
	return &Transfers{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goods",
			Subsystem: "inventory",
			Name:      "transfers_total",
			Help:      "Transfer requests by final phase and error kind.",
		}, []string{"phase", "kind"}),
		units: f.NewCounter(prometheus.CounterOpts{
			Namespace: "goods",
			Subsystem: "inventory",
			Name:      "transferred_units_total",
			Help:      "Units moved by confirmed transfers.",
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "goods",
			Subsystem: "inventory",
			Name:      "transfer_duration_seconds",
			Help:      "Transfer latency including lock waits.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"phase"}),
		low: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "goods",
			Subsystem: "inventory",
			Name:      "below_threshold",
			Help:      "1 when the source of the last transfer of an item sits below its safety threshold.",
		}, []string{"item", "location"}),
	}
}

func (m *Transfers) TransferFinished(_ context.Context, out inventory.Outcome) {
	phase := out.Phase.String()
	m.requests.WithLabelValues(phase, string(inventory.KindOf(out.Err))).Inc()
	m.duration.WithLabelValues(phase).Observe(out.Duration.Seconds())
	if out.Phase != inventory.PhaseConfirmed {
		return
	}
	m.units.Add(float64(out.Record.Quantity))
	for _, rec := range []inventory.StockRecord{out.Source, out.Dest} {
		v := 0.0
		if rec.BelowThreshold() {
			v = 1
		}
		m.low.WithLabelValues(rec.ItemCode, rec.LocationCode).Set(v)
	}
}

// HTTP measures API requests by route pattern.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTP(reg prometheus.Registerer) *HTTP {
	f := promauto.With(reg)
	return &HTTP{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goods",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "goods",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *HTTP) Observe(method, route string, code int, took time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(method, route).Observe(took.Seconds())
}
