// Package metrics exports entry guard activity in Prometheus format.
//
// Recorder implements the controller's Metrics interface. The API serves the
// registry at /metrics.
package metrics
