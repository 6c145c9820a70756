package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zencontrol/zengateway/internal/discovery"
)

// triggerDiscoveryRequest is the request body for POST /discovery/trigger.
type triggerDiscoveryRequest struct {
	// Force clears all registered devices before rediscovering.
	Force bool `json:"force"`
}

// handleTriggerDiscovery starts a background discovery run.
func (s *Server) handleTriggerDiscovery(w http.ResponseWriter, r *http.Request) {
	var req triggerDiscoveryRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	if err := s.discovery.Trigger(req.Force); err != nil {
		if errors.Is(err, discovery.ErrInProgress) {
			writeError(w, http.StatusConflict, ErrCodeConflict, "discovery already in progress")
			return
		}
		s.logger.Error("discovery trigger failed", "error", err)
		writeInternalError(w, "failed to trigger discovery")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "started",
		"force":  req.Force,
	})
}

// handleDiscoveryStatus reports the current or last discovery run.
func (s *Server) handleDiscoveryStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.discovery.Status())
}
