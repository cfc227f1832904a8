package authcore

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricLoginSuccess)
	m.Observe(MetricAuthenticateLatency, time.Millisecond)

	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("disabled metrics recorded data: %+v", snap)
	}
	if m.LatencyEnabled() {
		t.Fatal("latency must be off when metrics are off")
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics

	m.Inc(MetricLoginSuccess)
	m.Observe(MetricAuthenticateLatency, time.Millisecond)
	if m.LatencyEnabled() {
		t.Fatal("nil metrics reported latency enabled")
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLogout)
	m.Inc(metricIDCount) // out of range, ignored

	snap := m.Snapshot()
	if snap.Counters[MetricLoginSuccess] != 2 {
		t.Fatalf("login success = %d, want 2", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLogout] != 1 {
		t.Fatalf("logout = %d, want 1", snap.Counters[MetricLogout])
	}
	if _, present := snap.Counters[MetricRefreshSuccess]; present {
		t.Fatal("zero counters must be omitted from snapshots")
	}
}

func TestObserveBucketBoundaries(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	cases := []struct {
		d      time.Duration
		bucket int
	}{
		{30 * time.Microsecond, 0},
		{50 * time.Microsecond, 0},
		{51 * time.Microsecond, 1},
		{100 * time.Microsecond, 1},
		{250 * time.Microsecond, 2},
		{500 * time.Microsecond, 3},
		{time.Millisecond, 4},
		{5 * time.Millisecond, 5},
		{25 * time.Millisecond, 6},
		{time.Second, 7},
	}

	for _, tc := range cases {
		m.Observe(MetricAuthenticateLatency, tc.d)
	}

	snap := m.Snapshot()
	buckets, ok := snap.Histograms[MetricAuthenticateLatency]
	if !ok {
		t.Fatal("histogram missing from snapshot")
	}

	want := make([]uint64, histBucketCount)
	for _, tc := range cases {
		want[tc.bucket]++
	}
	for i := range want {
		if buckets[i] != want[i] {
			t.Fatalf("bucket %d = %d, want %d", i, buckets[i], want[i])
		}
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Inc(MetricLoginSuccess)
	m.Observe(MetricAuthenticateLatency, time.Microsecond)

	snap := m.Snapshot()
	snap.Counters[MetricLoginSuccess] = 999
	snap.Histograms[MetricAuthenticateLatency][0] = 999

	fresh := m.Snapshot()
	if fresh.Counters[MetricLoginSuccess] != 1 {
		t.Fatal("snapshot mutation leaked into metrics state")
	}
	if fresh.Histograms[MetricAuthenticateLatency][0] != 1 {
		t.Fatal("snapshot histogram mutation leaked into metrics state")
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Snapshot().Counters[MetricRefreshSuccess]; got != workers*perWorker {
		t.Fatalf("counter = %d, want %d", got, workers*perWorker)
	}
}

func TestHistogramBoundsMicros(t *testing.T) {
	bounds := HistogramBoundsMicros()
	if len(bounds) != histBucketCount-1 {
		t.Fatalf("len = %d, want %d", len(bounds), histBucketCount-1)
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			t.Fatalf("bounds not strictly increasing at %d", i)
		}
	}

	// Returned slice is a copy.
	bounds[0] = -1
	if HistogramBoundsMicros()[0] == -1 {
		t.Fatal("bounds slice aliases internal state")
	}
}
