// Package internaldefs holds the metric names shared by the Prometheus and
// OTel exporters.
//
// Both exporters read the same [goAccount.MetricsSnapshot], so names, help
// text and bucket bounds are declared once here.
package internaldefs
