package internaldefs

import (
	"github.com/hermesgsc/authcore"
)

// CounterDef binds a MetricID to its exported name and help text.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram MetricID to its exported name and help
// text.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs is the full counter catalog, in export order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricRegisterSuccess, Name: "authcore_register_success_total", Help: "Successful registrations."},
	{ID: authcore.MetricRegisterDuplicate, Name: "authcore_register_duplicate_total", Help: "Registrations rejected for an already-used email."},
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful login attempts."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed login attempts."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Refresh operations that minted an access token."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Refresh operations rejected as invalid or expired."},
	{ID: authcore.MetricRefreshRevoked, Name: "authcore_refresh_revoked_total", Help: "Refresh operations rejected on a revoked token."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Logout operations."},
	{ID: authcore.MetricTokenIssued, Name: "authcore_token_issued_total", Help: "Persisted refresh tokens."},
	{ID: authcore.MetricTokenRevoked, Name: "authcore_token_revoked_total", Help: "Refresh token revocations, including cascades."},
	{ID: authcore.MetricIdentityUpdated, Name: "authcore_identity_updated_total", Help: "Identity update operations."},
	{ID: authcore.MetricIdentityDeleted, Name: "authcore_identity_deleted_total", Help: "Identity delete operations."},
}

// HistogramDefs is the full histogram catalog.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricAuthenticateLatency, Name: "authcore_authenticate_latency_seconds", Help: "Access token verification latency histogram."},
}

// HistogramBoundsSeconds are the bucket upper bounds in seconds, matching
// the engine's microsecond bounds. The final bucket is +Inf.
var HistogramBoundsSeconds = []float64{
	0.00005,
	0.0001,
	0.00025,
	0.0005,
	0.001,
	0.005,
	0.025,
}

// HistogramBoundSuffix labels each bucket for exporters that encode the
// bound into the series name.
var HistogramBoundSuffix = []string{
	"50us",
	"100us",
	"250us",
	"500us",
	"1ms",
	"5ms",
	"25ms",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed
// bucket count used by the engine.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// expected by Prometheus-style histograms.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
