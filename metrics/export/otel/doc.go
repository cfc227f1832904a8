// Package otel exports engine metrics through an OpenTelemetry Meter.
// Counters and histogram buckets are registered as observables and read
// from a snapshot in a single callback, so scrapes see a consistent
// view.
package otel
