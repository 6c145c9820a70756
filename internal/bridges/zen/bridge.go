package zen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zencontrol/zengateway/internal/controller"
	"github.com/zencontrol/zengateway/internal/device"
	"github.com/zencontrol/zengateway/internal/infrastructure/mqtt"
)

// Bridge operation constants.
const (
	// commandTopicParts is the number of parts in a device command topic
	// (zencontrol/command/device/<id>).
	commandTopicParts = 4

	// defaultBridgeTimeout bounds commands triggered from MQTT, where no
	// caller context exists.
	defaultBridgeTimeout = 5 * time.Second
)

// Bridge orchestrates bidirectional translation between the ZenControl
// UDP protocol and the gateway's outward surfaces. It handles:
//   - Multicast events: controller announcements and device events are
//     applied to the registries and fanned out to MQTT, WebSocket,
//     and InfluxDB
//   - Commands from MQTT and the REST API, translated to UDP command
//     frames and sent to the owning controller
//   - Optimistic state updates after successful light commands
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	udp         Sender
	events      EventSource
	controllers ControllerDirectory
	devices     DeviceStore
	mqtt        MQTTClient       // Optional MQTT fan-out and command intake
	ws          Broadcaster      // Optional WebSocket fan-out
	metrics     MetricsWriter    // Optional time-series recording
	scenes      SceneActivator   // Optional scene activation on button press
	onDiscovery func(force bool) // Optional discovery command hook

	topics         mqtt.Topics
	commandTimeout time.Duration

	// Shutdown coordination
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context    // Bridge-level context, cancelled on Stop()
	ctxCancel context.CancelFunc // Cancel function for ctx

	// Logger
	logger   Logger
	loggerMu sync.RWMutex

	// Statistics (atomic for performance)
	eventsHandled  atomic.Uint64
	eventsDropped  atomic.Uint64
	commandsOK     atomic.Uint64
	commandsFailed atomic.Uint64
	unknownDevices atomic.Uint64
}

// EventSource delivers parsed multicast events.
// This is satisfied by *Listener.
type EventSource interface {
	AddHandler(handler EventHandler)
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Broadcaster pushes real-time updates to WebSocket subscribers.
// This is satisfied by *api.Hub. It is optional - if nil, the bridge
// operates without WebSocket fan-out.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// ControllerDirectory tracks known controllers and their readiness.
// This is satisfied by *controller.Registry.
type ControllerDirectory interface {
	AddOrUpdate(uid, ip string) controller.Controller
	Heartbeat(uid string) error
	MarkReady(uid string) error
	MarkOffline(uid string) error
	Get(uid string) (controller.Controller, error)
	ReadyControllers() []controller.Controller
}

// DeviceStore provides device lookup and state persistence.
// This is satisfied by *device.Registry.
type DeviceStore interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	SetDeviceState(ctx context.Context, id string, patch device.State) (bool, error)
}

// MetricsWriter records device activity as time-series points.
// This is satisfied by *influxdb.Client. It is optional - if nil, the
// bridge operates without metrics recording.
type MetricsWriter interface {
	WriteLightState(deviceID string, on bool, brightness int)
	WriteSensorActivity(deviceID string, sensorType string, active bool)
	WriteControllerAvailability(uid string, ready bool)
	WriteButtonEvent(deviceID string, button int, action string)
}

// SceneActivator runs scenes assigned to wall switch buttons.
// This is satisfied by *scene.Engine. It is optional - if nil, button
// presses update state without triggering scenes.
type SceneActivator interface {
	ActivateForButton(ctx context.Context, deviceID string, button int) error
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// UDP is the command-sending client. Required.
	UDP Sender

	// Events is the multicast event source. Required.
	Events EventSource

	// Controllers is the controller registry. Required.
	Controllers ControllerDirectory

	// Devices is the device registry. Required.
	Devices DeviceStore

	// MQTT is optional MQTT fan-out and command intake.
	MQTT MQTTClient

	// WS is optional WebSocket fan-out.
	WS Broadcaster

	// Metrics is optional time-series recording.
	Metrics MetricsWriter

	// Scenes is optional scene activation on button press events.
	Scenes SceneActivator

	// OnDiscoveryCommand is invoked when a discovery run is requested
	// over MQTT. Optional.
	OnDiscoveryCommand func(force bool)

	// CommandTimeout bounds commands triggered without a caller context.
	// Defaults to 5s.
	CommandTimeout time.Duration

	// Logger is optional structured logger.
	Logger Logger
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.UDP == nil {
		return nil, fmt.Errorf("zen: UDP client is required")
	}
	if opts.Events == nil {
		return nil, fmt.Errorf("zen: event source is required")
	}
	if opts.Controllers == nil {
		return nil, fmt.Errorf("zen: controller registry is required")
	}
	if opts.Devices == nil {
		return nil, fmt.Errorf("zen: device store is required")
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = defaultBridgeTimeout
	}

	// Create bridge-level context for command cancellation on shutdown
	ctx, ctxCancel := context.WithCancel(context.Background())

	return &Bridge{
		udp:            opts.UDP,
		events:         opts.Events,
		controllers:    opts.Controllers,
		devices:        opts.Devices,
		mqtt:           opts.MQTT,
		ws:             opts.WS,
		metrics:        opts.Metrics,
		scenes:         opts.Scenes,
		onDiscovery:    opts.OnDiscoveryCommand,
		commandTimeout: opts.CommandTimeout,
		ctx:            ctx,
		ctxCancel:      ctxCancel,
		logger:         opts.Logger,
	}, nil
}

// Start begins bridge operation. This registers the multicast event
// handler and subscribes to the MQTT command topics.
func (b *Bridge) Start() error {
	b.events.AddHandler(b.handleEvent)

	if b.mqtt != nil {
		deviceCommands := b.topics.AllDeviceCommands()
		if err := b.mqtt.Subscribe(deviceCommands, 1, b.handleDeviceCommand); err != nil {
			return fmt.Errorf("zen: subscribing to device commands: %w", err)
		}
		b.logInfo("subscribed to device commands", "topic", deviceCommands)

		discovery := b.topics.CommandDiscovery()
		if err := b.mqtt.Subscribe(discovery, 1, b.handleDiscoveryCommand); err != nil {
			return fmt.Errorf("zen: subscribing to discovery commands: %w", err)
		}
		b.logInfo("subscribed to discovery commands", "topic", discovery)
	}

	b.logInfo("bridge started")
	return nil
}

// Stop gracefully shuts down the bridge. In-flight commands are
// cancelled and background work is waited for.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		b.wg.Wait()
		b.logInfo("bridge stopped")
	})
}

// handleEvent routes a multicast event to the appropriate handler.
func (b *Bridge) handleEvent(ev Event) {
	b.eventsHandled.Add(1)

	switch ev.Type {
	case EventControllerStatus:
		b.handleControllerStatus(ev)
	case EventDeviceEvent:
		b.handleDeviceEvent(ev)
	}
}

// handleControllerStatus applies a controller announcement to the
// registry and fans the resulting status out.
func (b *Bridge) handleControllerStatus(ev Event) {
	b.controllers.AddOrUpdate(ev.ControllerID, ev.IPAddress)

	var err error
	switch ev.Status {
	case StatusStartupComplete:
		err = b.controllers.MarkReady(ev.ControllerID)
		b.logInfo("controller ready", "uid", ev.ControllerID, "ip", ev.IPAddress)
	case StatusShutdown:
		err = b.controllers.MarkOffline(ev.ControllerID)
		b.logInfo("controller shut down", "uid", ev.ControllerID)
	case StatusHeartbeat:
		err = b.controllers.Heartbeat(ev.ControllerID)
	}
	if err != nil {
		b.logWarn("controller status not applied", "uid", ev.ControllerID, "status", ev.Status, "error", err.Error())
		return
	}

	ctrl, err := b.controllers.Get(ev.ControllerID)
	if err != nil {
		return
	}

	status := map[string]any{
		"controller_id": ctrl.UID,
		"ip_address":    ctrl.IP,
		"status":        ev.Status,
		"ready":         ctrl.Ready,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}
	b.publishJSON(b.topics.ControllerStatus(ctrl.UID), status, true)
	b.broadcast("controllers", status)
	if b.metrics != nil {
		b.metrics.WriteControllerAvailability(ctrl.UID, ctrl.Ready)
	}
}

// handleDeviceEvent applies a device event to the device model,
// persists the resulting state change, and fans the event out.
// Events for devices not in the registry are counted and dropped:
// they belong to controllers that have not been discovered yet.
func (b *Bridge) handleDeviceEvent(ev Event) {
	dev, err := b.devices.GetDevice(b.ctx, ev.DeviceID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			b.unknownDevices.Add(1)
			b.logDebug("event for unknown device", "device_id", ev.DeviceID, "subtype", ev.Subtype)
			return
		}
		b.logError("device lookup failed", err)
		return
	}

	switch ev.Subtype {
	case SubtypeButton:
		b.handleButtonEvent(ev, dev)
	case SubtypeMotion:
		b.handleSensorEvent(ev, dev, device.TypeMotionSensor)
	case SubtypeOccupancy:
		b.handleSensorEvent(ev, dev, device.TypeOccupancySensor)
	case SubtypeLightState:
		b.handleLightStateEvent(ev, dev)
	}
}

func (b *Bridge) handleButtonEvent(ev Event, dev *device.Device) {
	changed, err := dev.ApplyButtonAction(*ev.Button, ev.Action)
	if err != nil {
		b.eventsDropped.Add(1)
		b.logWarn("button event rejected", "device_id", dev.ID, "button", *ev.Button, "action", ev.Action, "error", err.Error())
		return
	}

	if changed {
		b.persistState(dev.ID, device.State{"buttons": dev.State["buttons"]})
		b.publishJSON(b.topics.DeviceState(dev.ID), dev.State, true)
	}

	event := map[string]any{
		"device_id": dev.ID,
		"button":    *ev.Button,
		"action":    ev.Action,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	b.publishJSON(b.topics.DeviceEvent(SubtypeButton, dev.ID), event, false)
	b.broadcast("devices", event)
	if b.metrics != nil {
		b.metrics.WriteButtonEvent(dev.ID, *ev.Button, ev.Action)
	}

	if b.scenes != nil && ev.Action == device.ActionPress {
		b.activateScene(dev.ID, *ev.Button)
	}
}

// activateScene runs scene activation in the background so a slow
// controller cannot stall the event worker pool.
func (b *Bridge) activateScene(deviceID string, button int) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(b.ctx, b.commandTimeout)
		defer cancel()

		if err := b.scenes.ActivateForButton(ctx, deviceID, button); err != nil {
			b.logWarn("scene activation failed", "device_id", deviceID, "button", button, "error", err.Error())
		}
	}()
}

func (b *Bridge) handleSensorEvent(ev Event, dev *device.Device, sensorType device.DeviceType) {
	if err := dev.ApplySensorActivity(sensorType, *ev.Active, time.Now().UTC()); err != nil {
		b.eventsDropped.Add(1)
		b.logWarn("sensor event rejected", "device_id", dev.ID, "subtype", ev.Subtype, "error", err.Error())
		return
	}

	b.persistState(dev.ID, device.State{
		"active":         dev.State["active"],
		"last_triggered": dev.State["last_triggered"],
	})
	b.publishJSON(b.topics.DeviceState(dev.ID), dev.State, true)

	event := map[string]any{
		"device_id": dev.ID,
		"subtype":   ev.Subtype,
		"active":    *ev.Active,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	b.publishJSON(b.topics.DeviceEvent(ev.Subtype, dev.ID), event, false)
	b.broadcast("devices", event)
	if b.metrics != nil {
		b.metrics.WriteSensorActivity(dev.ID, ev.Subtype, *ev.Active)
	}
}

func (b *Bridge) handleLightStateEvent(ev Event, dev *device.Device) {
	if !dev.IsLight() {
		b.eventsDropped.Add(1)
		b.logWarn("light_state event for non-light", "device_id", dev.ID, "type", string(dev.Type))
		return
	}

	if !dev.ApplyLightState(device.State(ev.State)) {
		return // No change, nothing to persist or publish
	}

	b.persistState(dev.ID, device.State(ev.State))
	b.publishJSON(b.topics.DeviceState(dev.ID), dev.State, true)
	b.broadcast("devices", map[string]any{
		"device_id": dev.ID,
		"state":     dev.State,
	})
	b.writeLightMetrics(dev)
}

// persistState writes a state patch through the device store, logging
// rather than failing on persistence errors so event fan-out continues.
func (b *Bridge) persistState(deviceID string, patch device.State) {
	if _, err := b.devices.SetDeviceState(b.ctx, deviceID, patch); err != nil {
		b.logError("state persistence failed", fmt.Errorf("device %s: %w", deviceID, err))
	}
}

func (b *Bridge) writeLightMetrics(dev *device.Device) {
	if b.metrics == nil {
		return
	}
	on, _ := dev.State["on"].(bool)
	brightness := 0
	switch v := dev.State["brightness"].(type) {
	case int:
		brightness = v
	case float64:
		brightness = int(v)
	}
	b.metrics.WriteLightState(dev.ID, on, brightness)
}

// TurnOn sends a LIGHT_ON command to the controller owning the device
// and optimistically applies the resulting state on success.
func (b *Bridge) TurnOn(ctx context.Context, deviceID string, opts LightOptions) error {
	dev, ctrl, err := b.resolveLight(ctx, deviceID)
	if err != nil {
		return err
	}
	if (len(opts.RGBColor) > 0 || opts.ColorTemp != nil) && !dev.SupportsColor() {
		return fmt.Errorf("zen: device %s: %w", deviceID, device.ErrColorNotSupported)
	}

	if err := b.send(ctx, ctrl.IP, NewLightOn(deviceID, opts)); err != nil {
		return err
	}

	patch := device.State{"on": true}
	if opts.Brightness != nil {
		patch["brightness"] = *opts.Brightness
	}
	if len(opts.RGBColor) > 0 {
		patch["rgb_color"] = opts.RGBColor
	}
	if opts.ColorTemp != nil {
		patch["color_temp"] = *opts.ColorTemp
	}
	b.applyOptimistic(dev, patch)
	return nil
}

// TurnOff sends a LIGHT_OFF command and optimistically marks the
// device off on success.
func (b *Bridge) TurnOff(ctx context.Context, deviceID string) error {
	dev, ctrl, err := b.resolveLight(ctx, deviceID)
	if err != nil {
		return err
	}

	if err := b.send(ctx, ctrl.IP, NewLightOff(deviceID)); err != nil {
		return err
	}

	b.applyOptimistic(dev, device.State{"on": false})
	return nil
}

// PressButton simulates a physical button action on a wall switch.
// The resulting state change arrives back as a multicast device event,
// so no optimistic update is applied here.
func (b *Bridge) PressButton(ctx context.Context, deviceID string, button int, action string) error {
	dev, ctrl, err := b.resolve(ctx, deviceID)
	if err != nil {
		return err
	}
	if dev.Type != device.TypeSwitch {
		return fmt.Errorf("zen: device %s: %w", deviceID, device.ErrNotASwitch)
	}
	if button < 0 || button >= dev.ButtonCount() {
		return fmt.Errorf("zen: device %s button %d: %w", deviceID, button, device.ErrInvalidButton)
	}
	if !device.ValidButtonAction(action) {
		return fmt.Errorf("zen: action %q: %w", action, device.ErrInvalidButtonAction)
	}

	return b.send(ctx, ctrl.IP, NewButtonAction(deviceID, button, action))
}

// QueryDevices requests the device inventory of a controller.
func (b *Bridge) QueryDevices(ctx context.Context, uid string) ([]InventoryDevice, error) {
	ctrl, err := b.readyController(uid)
	if err != nil {
		return nil, err
	}

	resp, err := b.udp.SendCommand(ctx, ctrl.IP, NewQueryDevices())
	if err != nil {
		b.commandsFailed.Add(1)
		return nil, err
	}
	b.commandsOK.Add(1)
	return resp.Devices, nil
}

// Ping sends a health probe to a controller.
func (b *Bridge) Ping(ctx context.Context, uid string) error {
	ctrl, err := b.controllers.Get(uid)
	if err != nil {
		return err
	}
	_, err = b.udp.SendCommand(ctx, ctrl.IP, NewPing())
	if err != nil {
		b.commandsFailed.Add(1)
		return err
	}
	b.commandsOK.Add(1)
	return nil
}

// Solicit broadcasts a discovery solicitation. Controllers answer with
// controller_status announcements on the multicast group.
func (b *Bridge) Solicit() error {
	return b.udp.Broadcast(NewDiscover())
}

// resolve looks up a device and its owning controller, requiring the
// controller to be ready.
func (b *Bridge) resolve(ctx context.Context, deviceID string) (*device.Device, controller.Controller, error) {
	dev, err := b.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, controller.Controller{}, err
	}
	ctrl, err := b.readyController(dev.ControllerID)
	if err != nil {
		return nil, controller.Controller{}, err
	}
	return dev, ctrl, nil
}

func (b *Bridge) resolveLight(ctx context.Context, deviceID string) (*device.Device, controller.Controller, error) {
	dev, ctrl, err := b.resolve(ctx, deviceID)
	if err != nil {
		return nil, controller.Controller{}, err
	}
	if !dev.IsLight() {
		return nil, controller.Controller{}, fmt.Errorf("zen: device %s: %w", deviceID, device.ErrNotALight)
	}
	return dev, ctrl, nil
}

func (b *Bridge) readyController(uid string) (controller.Controller, error) {
	ctrl, err := b.controllers.Get(uid)
	if err != nil {
		return controller.Controller{}, err
	}
	if !ctrl.Ready {
		return controller.Controller{}, fmt.Errorf("zen: controller %s: %w", uid, ErrControllerNotReady)
	}
	return ctrl, nil
}

// send dispatches a command frame and tracks the outcome.
func (b *Bridge) send(ctx context.Context, controllerIP string, cmd Command) error {
	if _, err := b.udp.SendCommand(ctx, controllerIP, cmd); err != nil {
		b.commandsFailed.Add(1)
		return err
	}
	b.commandsOK.Add(1)
	return nil
}

// applyOptimistic records a successful command's expected state without
// waiting for the controller's light_state event.
func (b *Bridge) applyOptimistic(dev *device.Device, patch device.State) {
	if !dev.ApplyLightState(patch) {
		return
	}
	b.persistState(dev.ID, patch)
	b.publishJSON(b.topics.DeviceState(dev.ID), dev.State, true)
	b.broadcast("devices", map[string]any{
		"device_id": dev.ID,
		"state":     dev.State,
	})
	b.writeLightMetrics(dev)
}

// deviceCommandPayload is the JSON body accepted on the device command
// topic.
type deviceCommandPayload struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

// handleDeviceCommand processes an inbound MQTT device command
// (zencontrol/command/device/<id>).
func (b *Bridge) handleDeviceCommand(topic string, payload []byte) error {
	parts := strings.Split(topic, "/")
	if len(parts) != commandTopicParts || parts[len(parts)-1] == "" {
		return fmt.Errorf("zen: invalid command topic %q", topic)
	}
	deviceID := parts[len(parts)-1]

	var cmd deviceCommandPayload
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("zen: parsing command payload: %w", err)
	}

	b.logInfo("received device command", "device_id", deviceID, "command", cmd.Command)

	// Derive timeout from bridge context so commands are cancelled on shutdown
	ctx, cancel := context.WithTimeout(b.ctx, b.commandTimeout)
	defer cancel()

	return b.Execute(ctx, deviceID, cmd.Command, cmd.Params)
}

// Execute dispatches a named device command. This is the shared entry
// point for MQTT commands, the REST API, and scene actions.
//
// Recognised commands: turn_on (params: brightness, rgb_color,
// color_temp), turn_off, press_button (params: button, action).
func (b *Bridge) Execute(ctx context.Context, deviceID, command string, params map[string]any) error {
	switch command {
	case "turn_on":
		return b.TurnOn(ctx, deviceID, lightOptionsFromParams(params))
	case "turn_off":
		return b.TurnOff(ctx, deviceID)
	case "press_button":
		button, ok := intParam(params, "button")
		if !ok {
			return fmt.Errorf("press_button requires a 'button' parameter: %w", device.ErrInvalidButton)
		}
		action, _ := params["action"].(string)
		if action == "" {
			action = device.ActionPress
		}
		return b.PressButton(ctx, deviceID, button, action)
	default:
		return fmt.Errorf("%w %q", ErrUnknownCommand, command)
	}
}

// handleDiscoveryCommand triggers a discovery run requested over MQTT.
func (b *Bridge) handleDiscoveryCommand(_ string, payload []byte) error {
	if b.onDiscovery == nil {
		return nil
	}

	var req struct {
		Force bool `json:"force"`
	}
	if len(payload) > 0 {
		// A malformed body still triggers a non-forced run
		_ = json.Unmarshal(payload, &req)
	}

	b.logInfo("discovery requested via mqtt", "force", req.Force)
	b.onDiscovery(req.Force)
	return nil
}

// lightOptionsFromParams extracts LIGHT_ON parameters from a decoded
// JSON params object. Unknown keys are ignored.
func lightOptionsFromParams(params map[string]any) LightOptions {
	var opts LightOptions
	if v, ok := intParam(params, "brightness"); ok {
		opts.Brightness = &v
	}
	if v, ok := intParam(params, "color_temp"); ok {
		opts.ColorTemp = &v
	}
	if raw, ok := params["rgb_color"].([]any); ok {
		rgb := make([]int, 0, len(raw))
		for _, c := range raw {
			if f, ok := c.(float64); ok {
				rgb = append(rgb, int(f))
			}
		}
		if len(rgb) == len(raw) {
			opts.RGBColor = rgb
		}
	}
	return opts
}

// intParam reads an integer parameter, accepting the float64 values
// encoding/json produces for JSON numbers.
func intParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// publishJSON marshals and publishes a payload, logging rather than
// failing on broker errors.
func (b *Bridge) publishJSON(topic string, payload any, retained bool) {
	if b.mqtt == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		b.logError("marshalling publish payload", err)
		return
	}
	if err := b.mqtt.Publish(topic, data, 1, retained); err != nil {
		b.logError("mqtt publish failed", fmt.Errorf("topic %s: %w", topic, err))
	}
}

func (b *Bridge) broadcast(channel string, payload any) {
	if b.ws == nil {
		return
	}
	b.ws.Broadcast(channel, payload)
}

// BridgeStats is a snapshot of bridge activity counters.
type BridgeStats struct {
	EventsHandled  uint64 `json:"events_handled"`
	EventsDropped  uint64 `json:"events_dropped"`
	CommandsOK     uint64 `json:"commands_ok"`
	CommandsFailed uint64 `json:"commands_failed"`
	UnknownDevices uint64 `json:"unknown_devices"`
}

// Stats returns a snapshot of the bridge's activity counters.
func (b *Bridge) Stats() BridgeStats {
	return BridgeStats{
		EventsHandled:  b.eventsHandled.Load(),
		EventsDropped:  b.eventsDropped.Load(),
		CommandsOK:     b.commandsOK.Load(),
		CommandsFailed: b.commandsFailed.Load(),
		UnknownDevices: b.unknownDevices.Load(),
	}
}

// SetLogger sets the logger for this bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	defer b.loggerMu.Unlock()
	b.logger = logger
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	if b.logger != nil {
		b.logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	if b.logger != nil {
		b.logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	if b.logger != nil {
		b.logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	if b.logger != nil {
		b.logger.Error(msg, "error", err.Error())
	}
}
