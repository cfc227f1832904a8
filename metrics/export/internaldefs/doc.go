// Package internaldefs holds the shared metric catalog used by the
// exporter packages: stable metric names, help strings, and bucket
// labels. It exists so the otel and prometheus exporters render the same
// series without duplicating the mapping.
package internaldefs
