// Package prometheus exposes engine metrics as a prometheus.Collector.
// Every scrape reads one snapshot and renders const metrics from it, so
// the engine's hot path carries no Prometheus types.
package prometheus
