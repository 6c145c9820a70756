package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zencontrol/zengateway/internal/bridges/zen"
	"github.com/zencontrol/zengateway/internal/device"
)

// handleListDevices returns all devices, with optional query filters.
//
// Query parameters:
//   - controller: filter by owning controller uid
//   - type: filter by device type (light, switch, motion_sensor, occupancy_sensor)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		devices []device.Device
		err     error
	)
	if uid := r.URL.Query().Get("controller"); uid != "" {
		devices, err = s.devices.ListByController(ctx, uid)
	} else {
		devices, err = s.devices.ListDevices(ctx)
	}
	if err != nil {
		s.logger.Error("device list failed", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}

	if typeStr := r.URL.Query().Get("type"); typeStr != "" {
		filtered := devices[:0]
		for _, d := range devices {
			if d.Type == device.DeviceType(typeStr) {
				filtered = append(filtered, d)
			}
		}
		devices = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.devices.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("device lookup failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleGetDeviceState returns just the state portion of a device.
func (s *Server) handleGetDeviceState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.devices.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("device lookup failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id":        dev.ID,
		"state":            dev.State,
		"state_updated_at": dev.StateUpdatedAt,
	})
}

// handleSetDeviceState merges a state patch into the stored device state.
//
// This updates the gateway's view only; it does not send a command to the
// controller. Use POST /devices/{id}/command for that.
func (s *Server) handleSetDeviceState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch device.State
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(patch) == 0 {
		writeBadRequest(w, "state patch is empty")
		return
	}

	changed, err := s.devices.SetDeviceState(r.Context(), id, patch)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("state update failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to update state")
		return
	}

	if changed && s.hub != nil {
		s.hub.Broadcast(ChannelDevices, map[string]any{
			"device_id": id,
			"state":     patch,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"changed":   changed,
	})
}

// deviceCommandRequest is the request body for POST /devices/{id}/command.
type deviceCommandRequest struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

// handleDeviceCommand executes a device command through the bridge.
//
// Supported commands: turn_on, turn_off, press_button.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req deviceCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeBadRequest(w, "command is required")
		return
	}

	if err := s.bridge.Execute(r.Context(), id, req.Command, req.Params); err != nil {
		s.writeCommandError(w, id, req.Command, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"command":   req.Command,
		"status":    "ok",
	})
}

// writeCommandError maps bridge command failures to HTTP responses.
func (s *Server) writeCommandError(w http.ResponseWriter, deviceID, command string, err error) {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
	case errors.Is(err, zen.ErrUnknownCommand),
		errors.Is(err, device.ErrNotALight),
		errors.Is(err, device.ErrNotASwitch),
		errors.Is(err, device.ErrColorNotSupported),
		errors.Is(err, device.ErrInvalidButton),
		errors.Is(err, device.ErrInvalidButtonAction):
		writeBadRequest(w, err.Error())
	case errors.Is(err, zen.ErrControllerNotReady):
		writeError(w, http.StatusConflict, ErrCodeConflict, "controller not ready")
	case errors.Is(err, zen.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, "controller did not respond")
	case errors.Is(err, zen.ErrCommandRejected):
		writeError(w, http.StatusBadGateway, ErrCodeRejected, "controller rejected the command")
	default:
		s.logger.Error("device command failed", "device_id", deviceID, "command", command, "error", err)
		writeInternalError(w, "command failed")
	}
}
