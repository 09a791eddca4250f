// Package prometheus renders engine metrics in Prometheus text exposition format.
//
// Counters are exported as tokenslot_*_total families; authenticate, login and refresh
// outcomes share a family with a result label. The latency histogram is
// tokenslot_authenticate_latency_seconds.
//
// Callers mount [PrometheusExporter.Handler]; nothing is registered globally.
package prometheus
