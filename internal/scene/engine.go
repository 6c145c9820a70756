package scene

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zencontrol/zengateway/internal/infrastructure/mqtt"
)

// CommandSender executes device commands on behalf of scene actions.
// This is satisfied by *zen.Bridge.
type CommandSender interface {
	Execute(ctx context.Context, deviceID, command string, params map[string]any) error
}

// Publisher sends MQTT messages. It is optional - if nil, the engine
// operates without MQTT fan-out.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Broadcaster pushes real-time updates to WebSocket subscribers.
// It is optional.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Engine activates scenes: it resolves a scene's actions and sends
// each through the command sender. A failing action is logged and
// skipped, the rest of the scene still runs.
//
// Thread Safety: all methods are safe for concurrent use.
type Engine struct {
	repo   Repository
	sender CommandSender
	mqtt   Publisher   // Optional
	ws     Broadcaster // Optional

	topics mqtt.Topics

	logger   Logger
	loggerMu sync.RWMutex

	activations   atomic.Uint64
	actionsFailed atomic.Uint64
}

// EngineOptions holds configuration for creating an engine.
type EngineOptions struct {
	// Repository is the scene store. Required.
	Repository Repository

	// Sender executes device commands. Required.
	Sender CommandSender

	// MQTT is optional activation event fan-out.
	MQTT Publisher

	// WS is optional WebSocket fan-out.
	WS Broadcaster

	// Logger is optional structured logger.
	Logger Logger
}

// NewEngine creates a scene engine.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Repository == nil {
		return nil, fmt.Errorf("scene: repository is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("scene: command sender is required")
	}

	return &Engine{
		repo:   opts.Repository,
		sender: opts.Sender,
		mqtt:   opts.MQTT,
		ws:     opts.WS,
		logger: opts.Logger,
	}, nil
}

// Activate runs a scene by ID. Per-action failures are logged and
// counted but do not abort the remaining actions; the error return is
// reserved for an unknown scene.
func (e *Engine) Activate(ctx context.Context, sceneID string) error {
	s, err := e.repo.GetByID(ctx, sceneID)
	if err != nil {
		return err
	}

	failed := 0
	for _, action := range s.Actions {
		if err := e.sender.Execute(ctx, action.DeviceID, action.Command, action.Params); err != nil {
			failed++
			e.actionsFailed.Add(1)
			e.logWarn("scene action failed",
				"scene_id", s.ID,
				"device_id", action.DeviceID,
				"command", action.Command,
				"error", err.Error())
		}
	}
	e.activations.Add(1)

	e.logInfo("scene activated",
		"scene_id", s.ID,
		"name", s.Name,
		"actions", len(s.Actions),
		"failed", failed)

	event := map[string]any{
		"scene_id":       s.ID,
		"name":           s.Name,
		"actions_total":  len(s.Actions),
		"actions_failed": failed,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}
	e.publishJSON(e.topics.SceneActivated(s.ID), event)
	if e.ws != nil {
		e.ws.Broadcast("scenes", event)
	}
	return nil
}

// ActivateForButton runs the scene assigned to a switch button, if any.
// A button with no assignment is not an error.
func (e *Engine) ActivateForButton(ctx context.Context, deviceID string, button int) error {
	assignment, err := e.repo.GetAssignment(ctx, deviceID, button)
	if err != nil {
		if errors.Is(err, ErrNoAssignment) {
			return nil
		}
		return err
	}

	e.logDebug("button assignment matched",
		"device_id", deviceID, "button", button, "scene_id", assignment.SceneID)
	return e.Activate(ctx, assignment.SceneID)
}

// EngineStats is a snapshot of engine activity counters.
type EngineStats struct {
	Activations   uint64 `json:"activations"`
	ActionsFailed uint64 `json:"actions_failed"`
}

// Stats returns a snapshot of the engine's activity counters.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Activations:   e.activations.Load(),
		ActionsFailed: e.actionsFailed.Load(),
	}
}

func (e *Engine) publishJSON(topic string, payload any) {
	if e.mqtt == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		e.logError("marshalling activation event", err)
		return
	}
	if err := e.mqtt.Publish(topic, data, 1, false); err != nil {
		e.logError("publishing activation event", err)
	}
}

// SetLogger sets the logger for this engine.
func (e *Engine) SetLogger(logger Logger) {
	e.loggerMu.Lock()
	defer e.loggerMu.Unlock()
	e.logger = logger
}

func (e *Engine) logDebug(msg string, keysAndValues ...any) {
	e.loggerMu.RLock()
	defer e.loggerMu.RUnlock()
	if e.logger != nil {
		e.logger.Debug(msg, keysAndValues...)
	}
}

func (e *Engine) logInfo(msg string, keysAndValues ...any) {
	e.loggerMu.RLock()
	defer e.loggerMu.RUnlock()
	if e.logger != nil {
		e.logger.Info(msg, keysAndValues...)
	}
}

func (e *Engine) logWarn(msg string, keysAndValues ...any) {
	e.loggerMu.RLock()
	defer e.loggerMu.RUnlock()
	if e.logger != nil {
		e.logger.Warn(msg, keysAndValues...)
	}
}

func (e *Engine) logError(msg string, err error) {
	e.loggerMu.RLock()
	defer e.loggerMu.RUnlock()
	if e.logger != nil {
		e.logger.Error(msg, "error", err.Error())
	}
}
