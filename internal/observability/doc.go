// Package observability provides structured logging and Prometheus metrics
// for the gateway.
//
// Metrics are package-level collectors registered with the default
// registry and exposed on /metrics.
package observability
