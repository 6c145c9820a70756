package api

import (
	"net/http"
	"time"
)

// handleSystemStatus returns a snapshot of the gateway's runtime state:
// registry counts, bridge and scene counters, discovery status, and the
// number of connected WebSocket clients.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	controllers := s.controllers.List()
	ready := 0
	for _, c := range controllers {
		if c.Ready {
			ready++
		}
	}

	deviceCount := 0
	if devices, err := s.devices.ListDevices(r.Context()); err == nil {
		deviceCount = len(devices)
	}

	wsClients := 0
	if s.hub != nil {
		wsClients = s.hub.ClientCount()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"devices":        deviceCount,
		"controllers": map[string]any{
			"total": len(controllers),
			"ready": ready,
		},
		"bridge":     s.bridge.Stats(),
		"scenes":     s.sceneEngine.Stats(),
		"discovery":  s.discovery.Status(),
		"ws_clients": wsClients,
	})
}
