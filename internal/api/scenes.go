package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zencontrol/zengateway/internal/scene"
)

// handleListScenes returns all stored scenes.
func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := s.sceneRepo.List(r.Context())
	if err != nil {
		s.logger.Error("scene list failed", "error", err)
		writeInternalError(w, "failed to list scenes")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scenes": scenes,
		"count":  len(scenes),
	})
}

// handleGetScene returns a single scene by ID.
func (s *Server) handleGetScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sc, err := s.sceneRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, scene.ErrSceneNotFound) {
			writeNotFound(w, "scene not found")
			return
		}
		s.logger.Error("scene lookup failed", "scene_id", id, "error", err)
		writeInternalError(w, "failed to get scene")
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

// handleCreateScene stores a new scene.
func (s *Server) handleCreateScene(w http.ResponseWriter, r *http.Request) {
	var sc scene.Scene
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.sceneRepo.Create(r.Context(), &sc); err != nil {
		switch {
		case errors.Is(err, scene.ErrInvalidScene),
			errors.Is(err, scene.ErrNoActions),
			errors.Is(err, scene.ErrInvalidAction):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		case errors.Is(err, scene.ErrSceneExists):
			writeError(w, http.StatusConflict, ErrCodeConflict, "scene already exists")
		default:
			s.logger.Error("scene create failed", "error", err)
			writeInternalError(w, "failed to create scene")
		}
		return
	}

	writeJSON(w, http.StatusCreated, sc)
}

// handleUpdateScene replaces an existing scene's name and actions.
func (s *Server) handleUpdateScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var sc scene.Scene
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	sc.ID = id

	if err := s.sceneRepo.Update(r.Context(), &sc); err != nil {
		switch {
		case errors.Is(err, scene.ErrSceneNotFound):
			writeNotFound(w, "scene not found")
		case errors.Is(err, scene.ErrInvalidScene),
			errors.Is(err, scene.ErrNoActions),
			errors.Is(err, scene.ErrInvalidAction):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		default:
			s.logger.Error("scene update failed", "scene_id", id, "error", err)
			writeInternalError(w, "failed to update scene")
		}
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

// handleDeleteScene removes a scene and its button assignments.
func (s *Server) handleDeleteScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.sceneRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, scene.ErrSceneNotFound) {
			writeNotFound(w, "scene not found")
			return
		}
		s.logger.Error("scene delete failed", "scene_id", id, "error", err)
		writeInternalError(w, "failed to delete scene")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// handleActivateScene runs a scene's actions through the bridge.
func (s *Server) handleActivateScene(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.sceneEngine.Activate(r.Context(), id); err != nil {
		if errors.Is(err, scene.ErrSceneNotFound) {
			writeNotFound(w, "scene not found")
			return
		}
		s.logger.Error("scene activation failed", "scene_id", id, "error", err)
		writeInternalError(w, "failed to activate scene")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scene_id": id,
		"status":   "activated",
	})
}

// assignmentRequest is the request body for scene assignment endpoints.
type assignmentRequest struct {
	DeviceID string `json:"device_id"`
	Button   int    `json:"button"`
	SceneID  string `json:"scene_id,omitempty"`
}

// handleListAssignments returns all button-to-scene assignments.
func (s *Server) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := s.sceneRepo.ListAssignments(r.Context())
	if err != nil {
		s.logger.Error("assignment list failed", "error", err)
		writeInternalError(w, "failed to list assignments")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assignments": assignments,
		"count":       len(assignments),
	})
}

// handleAssignScene binds a switch button to a scene. Re-assigning an
// already-bound button overwrites the previous binding.
func (s *Server) handleAssignScene(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DeviceID == "" || req.SceneID == "" {
		writeBadRequest(w, "device_id and scene_id are required")
		return
	}
	if req.Button < 0 {
		writeBadRequest(w, "button must not be negative")
		return
	}

	if err := s.sceneRepo.Assign(r.Context(), req.DeviceID, req.Button, req.SceneID); err != nil {
		if errors.Is(err, scene.ErrSceneNotFound) {
			writeNotFound(w, "scene not found")
			return
		}
		s.logger.Error("scene assign failed", "scene_id", req.SceneID, "error", err)
		writeInternalError(w, "failed to assign scene")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": req.DeviceID,
		"button":    req.Button,
		"scene_id":  req.SceneID,
	})
}

// handleUnassignScene removes a button-to-scene binding.
func (s *Server) handleUnassignScene(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DeviceID == "" {
		writeBadRequest(w, "device_id is required")
		return
	}

	if err := s.sceneRepo.Unassign(r.Context(), req.DeviceID, req.Button); err != nil {
		if errors.Is(err, scene.ErrNoAssignment) {
			writeNotFound(w, "no assignment for that button")
			return
		}
		s.logger.Error("scene unassign failed", "device_id", req.DeviceID, "error", err)
		writeInternalError(w, "failed to remove assignment")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": req.DeviceID,
		"button":    req.Button,
		"removed":   true,
	})
}
