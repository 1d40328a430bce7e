// Package telemetry provides the relay's Prometheus metrics and the
// OpenTelemetry tracer. Metrics are registered once via InitMetrics and
// recorded through package-level functions so instrumented packages do
// not carry metric handles around; all recording functions are safe to
// call before InitMetrics (they no-op).
package telemetry
