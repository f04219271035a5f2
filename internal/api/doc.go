// Package api implements the read-only HTTP API and WebSocket stream for the
// entry guard.
//
// This package provides:
//   - GET /api/v1/health for liveness and per-component checks
//   - GET /api/v1/status with the controller's last published status
//   - GET /api/v1/metrics with a JSON runtime and connectivity summary
//   - GET /metrics in Prometheus exposition format
//   - a WebSocket hub relaying notification events and mode changes
//   - middleware for request IDs, logging, recovery and CORS
//
// # Architecture
//
// The server never drives the door. It reads the controller's Status, which
// is published under a mutex at the end of every cycle, and the hub receives
// broadcasts from the controller through its Observer interface.
//
// # WebSocket
//
// Clients are subscribed to every channel on connect and may narrow that
// with subscribe/unsubscribe messages:
//
//	{"type":"unsubscribe","payload":{"channels":["mode"]}}
//
// # Graceful Degradation
//
// Health checks that fail turn /api/v1/health into a 503 but every other
// endpoint keeps answering.
package api
