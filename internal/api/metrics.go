package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics is the JSON summary served at /api/v1/metrics.
// Counters for scraping live at /metrics.
type SystemMetrics struct {
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Runtime       RuntimeMetrics    `json:"runtime"`
	WebSocket     WSMetrics         `json:"websocket"`
	MQTT          MQTTMetrics       `json:"mqtt"`
	CloudStore    *CloudStoreMetric `json:"cloudstore,omitempty"`
	FieldDevice   *FieldDeviceInfo  `json:"field_device,omitempty"`
	Controller    ControllerMetrics `json:"controller"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// CloudStoreMetric reports the cloud store channel.
type CloudStoreMetric struct {
	Connected bool   `json:"connected"`
	Breaker   string `json:"breaker"`
}

// FieldDeviceInfo reports the peripheral node.
type FieldDeviceInfo struct {
	LastSeen      *time.Time `json:"last_seen"`
	SecondsSilent *float64   `json:"seconds_silent"`
}

// ControllerMetrics summarises the control loop.
type ControllerMetrics struct {
	Mode      string `json:"mode"`
	Cycles    uint64 `json:"cycles"`
	Emergency bool   `json:"emergency"`
}

// handleMetrics returns the system summary.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := s.status.Status()
	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Controller: ControllerMetrics{
			Mode:      status.Mode.String(),
			Cycles:    status.Cycles,
			Emergency: status.Emergency.Active,
		},
	}

	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{Connected: s.mqtt.IsConnected()}
	}

	if s.cloudStore != nil {
		metrics.CloudStore = &CloudStoreMetric{
			Connected: s.cloudStore.IsConnected(),
			Breaker:   s.cloudStore.BreakerState(),
		}
	}

	if s.fieldDevice != nil {
		info := &FieldDeviceInfo{}
		if seen := s.fieldDevice.LastSeen(); !seen.IsZero() {
			silent := time.Since(seen).Seconds()
			info.LastSeen, info.SecondsSilent = &seen, &silent
		}
		metrics.FieldDevice = info
	}

	writeJSON(w, http.StatusOK, metrics)
}
