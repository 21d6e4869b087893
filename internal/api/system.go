package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/miraie-core/internal/hass"
)

// SystemStatus is the response of GET /system.
type SystemStatus struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	MQTT          *MQTTMetrics   `json:"mqtt,omitempty"`
	Entries       EntryMetrics   `json:"entries"`
	Entities      EntityMetrics  `json:"entities"`
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

// EntryMetrics counts config entries by state.
type EntryMetrics struct {
	Total   int                     `json:"total"`
	ByState map[hass.EntryState]int `json:"by_state"`
}

// EntityMetrics counts entities by domain and availability.
type EntityMetrics struct {
	Total       int            `json:"total"`
	ByDomain    map[string]int `json:"by_domain"`
	Unavailable int            `json:"unavailable"`
}

func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := SystemStatus{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{ConnectedClients: s.hub.ClientCount()},
		Entries: EntryMetrics{
			ByState: s.host.EntryCounts(),
		},
		Entities: EntityMetrics{ByDomain: make(map[string]int)},
	}
	for _, n := range status.Entries.ByState {
		status.Entries.Total += n
	}
	if s.mqtt != nil {
		status.MQTT = &MQTTMetrics{Connected: s.mqtt.IsConnected()}
	}

	for _, st := range s.host.States() {
		status.Entities.Total++
		status.Entities.ByDomain[st.Domain]++
		if !st.Available {
			status.Entities.Unavailable++
		}
	}

	writeJSON(w, http.StatusOK, status)
}
