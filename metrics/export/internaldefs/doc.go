// Package internaldefs holds the metric names, labels and bucket boundaries shared by
// the Prometheus and OTel exporters, so both expose identical series.
package internaldefs
