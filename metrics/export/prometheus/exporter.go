package prometheus

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hermesgsc/authcore"
	"github.com/hermesgsc/authcore/metrics/export/internaldefs"
)

var ErrNilSource = errors.New("nil metrics source")

type metricsSource interface {
	MetricsSnapshot() authcore.Snapshot
	AuditDropped() uint64
}

// Collector renders engine metrics on demand. Register it with a
// prometheus.Registerer or serve it directly through Handler.
type Collector struct {
	source       metricsSource
	counterDescs map[authcore.MetricID]*prometheus.Desc
	histDescs    map[authcore.MetricID]*prometheus.Desc
	auditDropped *prometheus.Desc
}

// NewCollector wires an Engine's metrics into a Prometheus collector.
func NewCollector(engine *authcore.Engine) (*Collector, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewCollectorFromSource(engine)
}

// NewCollectorFromSource is NewCollector for an arbitrary snapshot
// source.
func NewCollectorFromSource(source metricsSource) (*Collector, error) {
	if source == nil {
		return nil, ErrNilSource
	}

	c := &Collector{
		source:       source,
		counterDescs: make(map[authcore.MetricID]*prometheus.Desc, len(internaldefs.CounterDefs)),
		histDescs:    make(map[authcore.MetricID]*prometheus.Desc, len(internaldefs.HistogramDefs)),
		auditDropped: prometheus.NewDesc(
			"authcore_audit_dropped_total",
			"Audit events dropped due to dispatcher backpressure.",
			nil, nil,
		),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counterDescs[def.ID] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histDescs[def.ID] = prometheus.NewDesc(def.Name, def.Help, nil, nil)
	}
	return c, nil
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range c.counterDescs {
		ch <- desc
	}
	for _, desc := range c.histDescs {
		ch <- desc
	}
	ch <- c.auditDropped
}

// Collect implements prometheus.Collector. All series come from a single
// snapshot taken at scrape time.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.source.MetricsSnapshot()

	for _, def := range internaldefs.CounterDefs {
		ch <- prometheus.MustNewConstMetric(
			c.counterDescs[def.ID],
			prometheus.CounterValue,
			float64(snapshot.Counters[def.ID]),
		)
	}

	for _, def := range internaldefs.HistogramDefs {
		raw := internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])
		cumulative := internaldefs.CumulativeBuckets(raw)

		// The engine keeps bucket counts only, so the sum is
		// approximated from bucket upper bounds. Samples in the
		// unbounded bucket contribute nothing.
		buckets := make(map[float64]uint64, len(internaldefs.HistogramBoundsSeconds))
		var sum float64
		for i, bound := range internaldefs.HistogramBoundsSeconds {
			buckets[bound] = cumulative[i]
			sum += float64(raw[i]) * bound
		}
		count := cumulative[len(cumulative)-1]

		ch <- prometheus.MustNewConstHistogram(
			c.histDescs[def.ID],
			count,
			sum,
			buckets,
		)
	}

	ch <- prometheus.MustNewConstMetric(
		c.auditDropped,
		prometheus.CounterValue,
		float64(c.source.AuditDropped()),
	)
}

// Handler registers the collector on a fresh registry and returns an
// http.Handler serving the standard text exposition format.
func Handler(engine *authcore.Engine) (http.Handler, error) {
	collector, err := NewCollector(engine)
	if err != nil {
		return nil, err
	}
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
