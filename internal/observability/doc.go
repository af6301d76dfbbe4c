// Package observability provides structured logging, Prometheus metrics,
// and OpenTelemetry tracing for the EMF gateway.
package observability
