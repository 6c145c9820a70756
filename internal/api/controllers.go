package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zencontrol/zengateway/internal/bridges/zen"
	"github.com/zencontrol/zengateway/internal/controller"
)

// handleListControllers returns all known controllers.
func (s *Server) handleListControllers(w http.ResponseWriter, _ *http.Request) {
	controllers := s.controllers.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"controllers": controllers,
		"count":       len(controllers),
	})
}

// handleGetController returns a single controller by uid.
func (s *Server) handleGetController(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	ctrl, err := s.controllers.Get(uid)
	if err != nil {
		if errors.Is(err, controller.ErrControllerNotFound) {
			writeNotFound(w, "controller not found")
			return
		}
		s.logger.Error("controller lookup failed", "uid", uid, "error", err)
		writeInternalError(w, "failed to get controller")
		return
	}

	writeJSON(w, http.StatusOK, ctrl)
}

// handlePingController sends a PING to the controller and reports whether
// it answered.
func (s *Server) handlePingController(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	if err := s.bridge.Ping(r.Context(), uid); err != nil {
		switch {
		case errors.Is(err, controller.ErrControllerNotFound):
			writeNotFound(w, "controller not found")
		case errors.Is(err, zen.ErrControllerNotReady):
			writeError(w, http.StatusConflict, ErrCodeConflict, "controller not ready")
		case errors.Is(err, zen.ErrTimeout):
			writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, "controller did not respond")
		default:
			s.logger.Error("controller ping failed", "uid", uid, "error", err)
			writeInternalError(w, "ping failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uid":    uid,
		"status": "ok",
	})
}
