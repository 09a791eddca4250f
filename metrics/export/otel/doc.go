// Package otel binds engine metrics to OpenTelemetry asynchronous instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter family and one
// Int64ObservableGauge per histogram bucket. A single callback reads
// [tokenslot.Engine.MetricsSnapshot] on each collection cycle. Callers own the
// MeterProvider.
package otel
