package prometheus

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hermesgsc/authcore"
	"github.com/hermesgsc/authcore/identity"
	"github.com/hermesgsc/authcore/refresh"
)

type fakeSource struct {
	snapshot authcore.Snapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authcore.Snapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64               { return f.dropped }

func scrape(t *testing.T, src fakeSource) string {
	t.Helper()

	collector, err := NewCollectorFromSource(src)
	if err != nil {
		t.Fatalf("NewCollectorFromSource failed: %v", err)
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP(rec, req)

	return rec.Body.String()
}

func TestCollectorRendersCountersAndHistogram(t *testing.T) {
	out := scrape(t, fakeSource{
		snapshot: authcore.Snapshot{
			Counters: map[authcore.MetricID]uint64{
				authcore.MetricLoginSuccess: 7,
			},
			Histograms: map[authcore.MetricID][]uint64{
				authcore.MetricAuthenticateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	for _, want := range []string{
		"authcore_login_success_total 7",
		`authcore_authenticate_latency_seconds_bucket{le="5e-05"} 1`,
		`authcore_authenticate_latency_seconds_bucket{le="+Inf"} 36`,
		"authcore_authenticate_latency_seconds_count 36",
		"authcore_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestCollectorRendersZeroes(t *testing.T) {
	out := scrape(t, fakeSource{
		snapshot: authcore.Snapshot{
			Counters:   map[authcore.MetricID]uint64{},
			Histograms: map[authcore.MetricID][]uint64{},
		},
	})

	// Counters appear at zero; Prometheus prefers explicit zero series
	// over absent ones.
	if !strings.Contains(out, "authcore_logout_total 0") {
		t.Fatalf("expected zero counter in output, got:\n%s", out)
	}
}

func TestCollectorRejectsNilSource(t *testing.T) {
	if _, err := NewCollectorFromSource(nil); err == nil {
		t.Fatal("expected error for nil source")
	}
	if _, err := NewCollector(nil); err == nil {
		t.Fatal("expected error for nil engine")
	}
}

func TestHandlerServesEngineMetrics(t *testing.T) {
	engine, err := authcore.New().
		WithSecret([]byte("0123456789abcdef0123456789abcdef")).
		WithTokenStore(refresh.NewMemoryStore()).
		WithIdentityStore(identity.NewMemoryStore()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := engine.Register(context.Background(), "Alice", "a@x.com", "pw1"); err != nil {
		t.Fatal(err)
	}

	// Handler builds its own private registry, so repeated construction
	// never collides.
	handler, err := Handler(engine)
	if err != nil {
		t.Fatalf("Handler failed: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "authcore_register_success_total 1") {
		t.Fatalf("expected register counter, got:\n%s", rec.Body.String())
	}
}
