package authcore

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one counter or histogram in the in-process metrics
// system.
type MetricID uint16

const (
	// MetricRegisterSuccess counts successful registrations.
	MetricRegisterSuccess MetricID = iota
	// MetricRegisterDuplicate counts registrations rejected for a taken email.
	MetricRegisterDuplicate
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure
	// MetricRefreshSuccess counts refreshes that minted an access token.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refreshes rejected as invalid or expired.
	MetricRefreshFailure
	// MetricRefreshRevoked counts refreshes rejected on a revoked token.
	MetricRefreshRevoked
	// MetricLogout counts logout operations.
	MetricLogout
	// MetricTokenIssued counts persisted refresh tokens.
	MetricTokenIssued
	// MetricTokenRevoked counts revocations, including cascades.
	MetricTokenRevoked
	// MetricIdentityUpdated counts identity updates.
	MetricIdentityUpdated
	// MetricIdentityDeleted counts identity deletions.
	MetricIdentityDeleted
	// MetricAuthenticateLatency is the access-guard latency histogram.
	MetricAuthenticateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// histBoundsMicros are the upper bounds of the latency buckets, in
// microseconds. The last bucket is unbounded.
var histBoundsMicros = [histBucketCount - 1]int64{50, 100, 250, 500, 1000, 5000, 25000}

type paddedCounter struct {
	value atomic.Uint64
	_     [cacheLineSize - 8]byte
}

type metricHistogram struct {
	buckets [histBucketCount]atomic.Uint64
}

// Metrics holds atomic counters and optional latency histograms. All
// operations are lock-free; a disabled instance is a no-op.
type Metrics struct {
	enabled        bool
	latencyEnabled bool
	counters       [metricIDCount]paddedCounter
	histograms     [metricIDCount]metricHistogram
}

// Snapshot is a point-in-time deep copy of all metrics.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics instance per cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:        cfg.Enabled,
		latencyEnabled: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Inc increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].value.Add(1)
}

// LatencyEnabled reports whether Observe records anything.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.latencyEnabled
}

// Observe records one latency sample in the histogram for id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.latencyEnabled || id >= metricIDCount {
		return
	}

	micros := d.Microseconds()
	bucket := histBucketCount - 1
	for i, bound := range histBoundsMicros {
		if micros <= bound {
			bucket = i
			break
		}
	}
	m.histograms[id].buckets[bucket].Add(1)
}

// Snapshot returns a deep copy of all non-zero metrics.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		Counters:   make(map[MetricID]uint64, metricIDCount),
		Histograms: make(map[MetricID][]uint64),
	}
	if m == nil || !m.enabled {
		return snap
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if v := m.counters[id].value.Load(); v > 0 {
			snap.Counters[id] = v
		}
	}

	if m.latencyEnabled {
		for id := MetricID(0); id < metricIDCount; id++ {
			var total uint64
			buckets := make([]uint64, histBucketCount)
			for i := range buckets {
				buckets[i] = m.histograms[id].buckets[i].Load()
				total += buckets[i]
			}
			if total > 0 {
				snap.Histograms[id] = buckets
			}
		}
	}

	return snap
}

// HistogramBoundsMicros returns the bucket upper bounds used by Observe.
// Exporters use it to label buckets consistently.
func HistogramBoundsMicros() []int64 {
	out := make([]int64, len(histBoundsMicros))
	copy(out, histBoundsMicros[:])
	return out
}
