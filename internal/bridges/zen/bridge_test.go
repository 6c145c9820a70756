package zen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zencontrol/zengateway/internal/controller"
	"github.com/zencontrol/zengateway/internal/device"
	"github.com/zencontrol/zengateway/internal/infrastructure/mqtt"
)

// mockSender records sent commands and returns a canned response.
type mockSender struct {
	mu        sync.Mutex
	sent      []sentCommand
	broadcast []Command
	resp      *Response
	err       error
}

type sentCommand struct {
	ip  string
	cmd Command
}

func (m *mockSender) SendCommand(_ context.Context, controllerIP string, cmd Command) (*Response, error) {
	m.mu.Lock()
	m.sent = append(m.sent, sentCommand{ip: controllerIP, cmd: cmd})
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.resp != nil {
		return m.resp, nil
	}
	return &Response{Status: RespOK}, nil
}

func (m *mockSender) Broadcast(cmd Command) error {
	m.mu.Lock()
	m.broadcast = append(m.broadcast, cmd)
	m.mu.Unlock()
	return m.err
}

func (m *mockSender) IsRunning() bool    { return true }
func (m *mockSender) Stats() ClientStats { return ClientStats{Running: true} }
func (m *mockSender) Close() error       { return nil }

func (m *mockSender) lastSent() (sentCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentCommand{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// mockEvents captures the registered handler so tests can inject events.
type mockEvents struct {
	handler EventHandler
}

func (m *mockEvents) AddHandler(handler EventHandler) { m.handler = handler }

// mockMQTT records publishes and subscriptions.
type mockMQTT struct {
	mu        sync.Mutex
	published []publishedMessage
	handlers  map[string]mqtt.MessageHandler
}

type publishedMessage struct {
	topic    string
	payload  []byte
	retained bool
}

func newMockMQTT() *mockMQTT {
	return &mockMQTT{handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *mockMQTT) Publish(topic string, payload []byte, _ byte, retained bool) error {
	m.mu.Lock()
	m.published = append(m.published, publishedMessage{topic: topic, payload: payload, retained: retained})
	m.mu.Unlock()
	return nil
}

func (m *mockMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	m.handlers[topic] = handler
	m.mu.Unlock()
	return nil
}

func (m *mockMQTT) IsConnected() bool { return true }

func (m *mockMQTT) messagesOn(topic string) []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []publishedMessage
	for _, msg := range m.published {
		if msg.topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

// mockBroadcaster records WebSocket broadcasts.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []wsBroadcast
}

type wsBroadcast struct {
	channel string
	payload any
}

func (m *mockBroadcaster) Broadcast(channel string, payload any) {
	m.mu.Lock()
	m.events = append(m.events, wsBroadcast{channel: channel, payload: payload})
	m.mu.Unlock()
}

func (m *mockBroadcaster) count(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if ev.channel == channel {
			n++
		}
	}
	return n
}

// mockMetrics counts time-series writes.
type mockMetrics struct {
	mu           sync.Mutex
	lightWrites  int
	sensorWrites int
	availWrites  int
	buttonWrites int
	lastReady    bool
}

func (m *mockMetrics) WriteLightState(string, bool, int) {
	m.mu.Lock()
	m.lightWrites++
	m.mu.Unlock()
}

func (m *mockMetrics) WriteSensorActivity(string, string, bool) {
	m.mu.Lock()
	m.sensorWrites++
	m.mu.Unlock()
}

func (m *mockMetrics) WriteControllerAvailability(_ string, ready bool) {
	m.mu.Lock()
	m.availWrites++
	m.lastReady = ready
	m.mu.Unlock()
}

func (m *mockMetrics) WriteButtonEvent(string, int, string) {
	m.mu.Lock()
	m.buttonWrites++
	m.mu.Unlock()
}

// mockDeviceStore is an in-memory DeviceStore. Like the real registry
// it hands out deep copies and merges state patches.
type mockDeviceStore struct {
	mu      sync.Mutex
	devices map[string]*device.Device
	patches []device.State
}

func newMockDeviceStore(devices ...*device.Device) *mockDeviceStore {
	s := &mockDeviceStore{devices: make(map[string]*device.Device)}
	for _, d := range devices {
		s.devices[d.ID] = d
	}
	return s
}

func (s *mockDeviceStore) GetDevice(_ context.Context, id string) (*device.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, device.ErrDeviceNotFound)
	}
	return d.DeepCopy(), nil
}

func (s *mockDeviceStore) SetDeviceState(_ context.Context, id string, patch device.State) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return false, fmt.Errorf("%s: %w", id, device.ErrDeviceNotFound)
	}
	if d.State == nil {
		d.State = device.State{}
	}
	for k, v := range patch {
		d.State[k] = v
	}
	s.patches = append(s.patches, patch)
	return true, nil
}

func (s *mockDeviceStore) patchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patches)
}

// mockScenes records button activations.
type mockScenes struct {
	mu        sync.Mutex
	activated chan struct{}
	deviceID  string
	button    int
}

func newMockScenes() *mockScenes {
	return &mockScenes{activated: make(chan struct{}, 1)}
}

func (m *mockScenes) ActivateForButton(_ context.Context, deviceID string, button int) error {
	m.mu.Lock()
	m.deviceID = deviceID
	m.button = button
	m.mu.Unlock()
	select {
	case m.activated <- struct{}{}:
	default:
	}
	return nil
}

type bridgeFixture struct {
	bridge      *Bridge
	sender      *mockSender
	events      *mockEvents
	mqtt        *mockMQTT
	ws          *mockBroadcaster
	metrics     *mockMetrics
	controllers *controller.Registry
	devices     *mockDeviceStore
	scenes      *mockScenes
}

func newBridgeFixture(t *testing.T, devices ...*device.Device) *bridgeFixture {
	t.Helper()

	f := &bridgeFixture{
		sender:      &mockSender{},
		events:      &mockEvents{},
		mqtt:        newMockMQTT(),
		ws:          &mockBroadcaster{},
		metrics:     &mockMetrics{},
		controllers: controller.NewRegistry(),
		devices:     newMockDeviceStore(devices...),
		scenes:      newMockScenes(),
	}

	bridge, err := NewBridge(BridgeOptions{
		UDP:         f.sender,
		Events:      f.events,
		Controllers: f.controllers,
		Devices:     f.devices,
		MQTT:        f.mqtt,
		WS:          f.ws,
		Metrics:     f.metrics,
		Scenes:      f.scenes,
	})
	if err != nil {
		t.Fatalf("NewBridge: %v", err)
	}
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(bridge.Stop)

	f.bridge = bridge
	return f
}

// readyController seeds a ready controller into the fixture registry.
func (f *bridgeFixture) readyController(t *testing.T, uid, ip string) {
	t.Helper()
	f.controllers.AddOrUpdate(uid, ip)
	if err := f.controllers.MarkReady(uid); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
}

func testLight(id, ctrl string) *device.Device {
	return &device.Device{
		ID:           id,
		Name:         "Test Light",
		ControllerID: ctrl,
		Type:         device.TypeLight,
		Capabilities: device.DefaultCapabilities(device.TypeLight),
	}
}

func testColorLight(id, ctrl string) *device.Device {
	return &device.Device{
		ID:           id,
		Name:         "Test Colour Light",
		ControllerID: ctrl,
		Type:         device.TypeLightColor,
		Capabilities: device.DefaultCapabilities(device.TypeLightColor),
	}
}

func testSwitch(id, ctrl, mode string, buttons int) *device.Device {
	return &device.Device{
		ID:           id,
		Name:         "Test Switch",
		ControllerID: ctrl,
		Type:         device.TypeSwitch,
		Config:       device.Config{"buttons": buttons, "mode": mode},
		Capabilities: device.DefaultCapabilities(device.TypeSwitch),
	}
}

func testMotionSensor(id, ctrl string) *device.Device {
	return &device.Device{
		ID:           id,
		Name:         "Test PIR",
		ControllerID: ctrl,
		Type:         device.TypeMotionSensor,
		Capabilities: device.DefaultCapabilities(device.TypeMotionSensor),
	}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestBridgeControllerLifecycle(t *testing.T) {
	f := newBridgeFixture(t)

	f.events.handler(Event{
		Type:         EventControllerStatus,
		ControllerID: "zc-001",
		IPAddress:    "192.168.1.50",
		Status:       StatusStartupComplete,
	})

	ctrl, err := f.controllers.Get("zc-001")
	if err != nil {
		t.Fatalf("controller not registered: %v", err)
	}
	if !ctrl.Ready {
		t.Error("controller not ready after startup_complete")
	}
	if ctrl.IP != "192.168.1.50" {
		t.Errorf("IP = %q, want 192.168.1.50", ctrl.IP)
	}

	topics := mqtt.Topics{}
	msgs := f.mqtt.messagesOn(topics.ControllerStatus("zc-001"))
	if len(msgs) != 1 {
		t.Fatalf("published %d status messages, want 1", len(msgs))
	}
	if !msgs[0].retained {
		t.Error("controller status not retained")
	}
	var status map[string]any
	if err := json.Unmarshal(msgs[0].payload, &status); err != nil {
		t.Fatalf("unmarshalling status: %v", err)
	}
	if status["ready"] != true {
		t.Errorf("status.ready = %v, want true", status["ready"])
	}

	if f.ws.count("controllers") != 1 {
		t.Errorf("ws broadcasts = %d, want 1", f.ws.count("controllers"))
	}
	if f.metrics.availWrites != 1 || !f.metrics.lastReady {
		t.Errorf("availability writes = %d ready=%v, want 1/true", f.metrics.availWrites, f.metrics.lastReady)
	}

	f.events.handler(Event{
		Type:         EventControllerStatus,
		ControllerID: "zc-001",
		IPAddress:    "192.168.1.50",
		Status:       StatusShutdown,
	})

	ctrl, _ = f.controllers.Get("zc-001")
	if ctrl.Ready {
		t.Error("controller still ready after shutdown")
	}
}

func TestBridgeHeartbeatMarksReady(t *testing.T) {
	f := newBridgeFixture(t)

	// A heartbeat from a controller the gateway has never seen both
	// registers it and marks it ready.
	f.events.handler(Event{
		Type:         EventControllerStatus,
		ControllerID: "zc-002",
		IPAddress:    "192.168.1.51",
		Status:       StatusHeartbeat,
	})

	ctrl, err := f.controllers.Get("zc-002")
	if err != nil {
		t.Fatalf("controller not registered: %v", err)
	}
	if !ctrl.Ready {
		t.Error("controller not ready after heartbeat")
	}
}

func TestBridgeButtonEventMomentary(t *testing.T) {
	sw := testSwitch("switch-1", "zc-001", device.ModeMomentary, 4)
	f := newBridgeFixture(t, sw)

	f.events.handler(Event{
		Type:     EventDeviceEvent,
		DeviceID: "switch-1",
		Subtype:  SubtypeButton,
		Button:   intPtr(2),
		Action:   device.ActionPress,
	})

	if f.devices.patchCount() != 1 {
		t.Fatalf("state patches = %d, want 1", f.devices.patchCount())
	}

	dev, _ := f.devices.GetDevice(context.Background(), "switch-1")
	buttons, _ := dev.State["buttons"].(map[string]any)
	if pressed, _ := buttons["2"].(bool); !pressed {
		t.Errorf("button 2 state = %v, want true", buttons["2"])
	}

	topics := mqtt.Topics{}
	if n := len(f.mqtt.messagesOn(topics.DeviceEvent(SubtypeButton, "switch-1"))); n != 1 {
		t.Errorf("button event publishes = %d, want 1", n)
	}
	if f.metrics.buttonWrites != 1 {
		t.Errorf("button metric writes = %d, want 1", f.metrics.buttonWrites)
	}

	// Press triggers scene activation
	select {
	case <-f.scenes.activated:
	case <-time.After(time.Second):
		t.Fatal("scene activation not triggered")
	}
	if f.scenes.deviceID != "switch-1" || f.scenes.button != 2 {
		t.Errorf("scene activated for %s/%d, want switch-1/2", f.scenes.deviceID, f.scenes.button)
	}
}

func TestBridgeButtonEventReleasePersisted(t *testing.T) {
	sw := testSwitch("switch-1", "zc-001", device.ModeMomentary, 4)
	f := newBridgeFixture(t, sw)

	buttonEvent := func(action string) Event {
		return Event{
			Type:     EventDeviceEvent,
			DeviceID: "switch-1",
			Subtype:  SubtypeButton,
			Button:   intPtr(0),
			Action:   action,
		}
	}

	f.events.handler(buttonEvent(device.ActionPress))
	f.events.handler(buttonEvent(device.ActionRelease))

	// Both transitions change state, so both must be persisted
	if f.devices.patchCount() != 2 {
		t.Fatalf("state patches = %d, want 2 (press and release)", f.devices.patchCount())
	}

	dev, _ := f.devices.GetDevice(context.Background(), "switch-1")
	buttons, _ := dev.State["buttons"].(map[string]any)
	if pressed, _ := buttons["0"].(bool); pressed {
		t.Errorf("button 0 state = %v after release, want false", buttons["0"])
	}

	// The retained state topic must reflect the release too
	topics := mqtt.Topics{}
	msgs := f.mqtt.messagesOn(topics.DeviceState("switch-1"))
	if len(msgs) != 2 {
		t.Fatalf("state publishes = %d, want 2", len(msgs))
	}
	var published map[string]any
	if err := json.Unmarshal(msgs[len(msgs)-1].payload, &published); err != nil {
		t.Fatalf("unmarshalling state: %v", err)
	}
	pubButtons, _ := published["buttons"].(map[string]any)
	if pressed, _ := pubButtons["0"].(bool); pressed {
		t.Error("retained state still reports button pressed after release")
	}
}

func TestBridgeButtonEventToggleOffPersisted(t *testing.T) {
	sw := testSwitch("switch-1", "zc-001", device.ModeToggle, 4)
	f := newBridgeFixture(t, sw)

	press := Event{
		Type:     EventDeviceEvent,
		DeviceID: "switch-1",
		Subtype:  SubtypeButton,
		Button:   intPtr(1),
		Action:   device.ActionPress,
	}

	f.events.handler(press) // toggles on
	f.events.handler(press) // toggles off

	if f.devices.patchCount() != 2 {
		t.Fatalf("state patches = %d, want 2 (on and off)", f.devices.patchCount())
	}

	dev, _ := f.devices.GetDevice(context.Background(), "switch-1")
	buttons, _ := dev.State["buttons"].(map[string]any)
	if pressed, _ := buttons["1"].(bool); pressed {
		t.Errorf("button 1 state = %v after second press, want false", buttons["1"])
	}
}

func TestBridgeButtonEventReleaseNoScene(t *testing.T) {
	sw := testSwitch("switch-1", "zc-001", device.ModeMomentary, 4)
	f := newBridgeFixture(t, sw)

	f.events.handler(Event{
		Type:     EventDeviceEvent,
		DeviceID: "switch-1",
		Subtype:  SubtypeButton,
		Button:   intPtr(0),
		Action:   device.ActionRelease,
	})

	select {
	case <-f.scenes.activated:
		t.Fatal("release triggered scene activation")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBridgeButtonEventInvalidIndex(t *testing.T) {
	sw := testSwitch("switch-1", "zc-001", device.ModeMomentary, 2)
	f := newBridgeFixture(t, sw)

	f.events.handler(Event{
		Type:     EventDeviceEvent,
		DeviceID: "switch-1",
		Subtype:  SubtypeButton,
		Button:   intPtr(7),
		Action:   device.ActionPress,
	})

	if f.devices.patchCount() != 0 {
		t.Errorf("state patches = %d, want 0 for invalid button", f.devices.patchCount())
	}
	if got := f.bridge.Stats().EventsDropped; got != 1 {
		t.Errorf("EventsDropped = %d, want 1", got)
	}
}

func TestBridgeUnknownDeviceIgnored(t *testing.T) {
	f := newBridgeFixture(t)

	f.events.handler(Event{
		Type:     EventDeviceEvent,
		DeviceID: "ghost",
		Subtype:  SubtypeMotion,
		Active:   boolPtr(true),
	})

	if got := f.bridge.Stats().UnknownDevices; got != 1 {
		t.Errorf("UnknownDevices = %d, want 1", got)
	}
	if len(f.mqtt.published) != 0 {
		t.Errorf("published %d messages for unknown device, want 0", len(f.mqtt.published))
	}
}

func TestBridgeSensorEvent(t *testing.T) {
	pir := testMotionSensor("pir-1", "zc-001")
	f := newBridgeFixture(t, pir)

	f.events.handler(Event{
		Type:     EventDeviceEvent,
		DeviceID: "pir-1",
		Subtype:  SubtypeMotion,
		Active:   boolPtr(true),
	})

	dev, _ := f.devices.GetDevice(context.Background(), "pir-1")
	if active, _ := dev.State["active"].(bool); !active {
		t.Error("sensor not active after motion event")
	}
	if dev.State["last_triggered"] == nil {
		t.Error("last_triggered not set for active sensor")
	}
	if f.metrics.sensorWrites != 1 {
		t.Errorf("sensor metric writes = %d, want 1", f.metrics.sensorWrites)
	}

	f.events.handler(Event{
		Type:     EventDeviceEvent,
		DeviceID: "pir-1",
		Subtype:  SubtypeMotion,
		Active:   boolPtr(false),
	})

	dev, _ = f.devices.GetDevice(context.Background(), "pir-1")
	if active, _ := dev.State["active"].(bool); active {
		t.Error("sensor still active after clear event")
	}
}

func TestBridgeSensorTypeMismatch(t *testing.T) {
	pir := testMotionSensor("pir-1", "zc-001")
	f := newBridgeFixture(t, pir)

	// Occupancy event for a motion sensor is rejected
	f.events.handler(Event{
		Type:     EventDeviceEvent,
		DeviceID: "pir-1",
		Subtype:  SubtypeOccupancy,
		Active:   boolPtr(true),
	})

	if f.devices.patchCount() != 0 {
		t.Errorf("state patches = %d, want 0 for mismatched sensor event", f.devices.patchCount())
	}
	if got := f.bridge.Stats().EventsDropped; got != 1 {
		t.Errorf("EventsDropped = %d, want 1", got)
	}
}

func TestBridgeLightStateEvent(t *testing.T) {
	light := testLight("light-1", "zc-001")
	f := newBridgeFixture(t, light)

	ev := Event{
		Type:     EventDeviceEvent,
		DeviceID: "light-1",
		Subtype:  SubtypeLightState,
		State:    map[string]any{"on": true, "brightness": float64(128)},
	}
	f.events.handler(ev)

	if f.devices.patchCount() != 1 {
		t.Fatalf("state patches = %d, want 1", f.devices.patchCount())
	}

	topics := mqtt.Topics{}
	msgs := f.mqtt.messagesOn(topics.DeviceState("light-1"))
	if len(msgs) != 1 || !msgs[0].retained {
		t.Fatalf("state publishes = %d retained=%v, want 1 retained", len(msgs), len(msgs) > 0 && msgs[0].retained)
	}
	if f.metrics.lightWrites != 1 {
		t.Errorf("light metric writes = %d, want 1", f.metrics.lightWrites)
	}

	// Identical state is not persisted or republished
	f.events.handler(ev)
	if f.devices.patchCount() != 1 {
		t.Errorf("state patches after duplicate = %d, want 1", f.devices.patchCount())
	}
}

func TestBridgeTurnOn(t *testing.T) {
	light := testLight("light-1", "zc-001")
	f := newBridgeFixture(t, light)
	f.readyController(t, "zc-001", "192.168.1.50")

	err := f.bridge.TurnOn(context.Background(), "light-1", LightOptions{Brightness: intPtr(200)})
	if err != nil {
		t.Fatalf("TurnOn: %v", err)
	}

	sent, ok := f.sender.lastSent()
	if !ok {
		t.Fatal("no command sent")
	}
	if sent.ip != "192.168.1.50" {
		t.Errorf("sent to %q, want 192.168.1.50", sent.ip)
	}
	if sent.cmd.Command != CmdLightOn || sent.cmd.DeviceID != "light-1" {
		t.Errorf("sent %s/%s, want LIGHT_ON/light-1", sent.cmd.Command, sent.cmd.DeviceID)
	}
	if sent.cmd.Brightness == nil || *sent.cmd.Brightness != 200 {
		t.Errorf("Brightness = %v, want 200", sent.cmd.Brightness)
	}

	// Optimistic state update applied
	dev, _ := f.devices.GetDevice(context.Background(), "light-1")
	if on, _ := dev.State["on"].(bool); !on {
		t.Error("device not marked on after successful command")
	}
	if dev.State["brightness"] != 200 {
		t.Errorf("brightness = %v, want 200", dev.State["brightness"])
	}
}

func TestBridgeTurnOnColorRejected(t *testing.T) {
	light := testLight("light-1", "zc-001")
	f := newBridgeFixture(t, light)
	f.readyController(t, "zc-001", "192.168.1.50")

	err := f.bridge.TurnOn(context.Background(), "light-1", LightOptions{RGBColor: []int{255, 0, 0}})
	if !errors.Is(err, device.ErrColorNotSupported) {
		t.Fatalf("error = %v, want ErrColorNotSupported", err)
	}
	if _, sent := f.sender.lastSent(); sent {
		t.Error("command sent for rejected colour operation")
	}
}

func TestBridgeTurnOnColorLight(t *testing.T) {
	light := testColorLight("light-rgb", "zc-001")
	f := newBridgeFixture(t, light)
	f.readyController(t, "zc-001", "192.168.1.50")

	err := f.bridge.TurnOn(context.Background(), "light-rgb", LightOptions{RGBColor: []int{255, 128, 0}})
	if err != nil {
		t.Fatalf("TurnOn: %v", err)
	}

	sent, _ := f.sender.lastSent()
	if len(sent.cmd.RGBColor) != 3 || sent.cmd.RGBColor[0] != 255 {
		t.Errorf("RGBColor = %v, want [255 128 0]", sent.cmd.RGBColor)
	}
}

func TestBridgeTurnOffControllerNotReady(t *testing.T) {
	light := testLight("light-1", "zc-001")
	f := newBridgeFixture(t, light)
	f.controllers.AddOrUpdate("zc-001", "192.168.1.50") // known but not ready

	err := f.bridge.TurnOff(context.Background(), "light-1")
	if !errors.Is(err, ErrControllerNotReady) {
		t.Fatalf("error = %v, want ErrControllerNotReady", err)
	}
}

func TestBridgeTurnOnNotALight(t *testing.T) {
	sw := testSwitch("switch-1", "zc-001", device.ModeToggle, 4)
	f := newBridgeFixture(t, sw)
	f.readyController(t, "zc-001", "192.168.1.50")

	err := f.bridge.TurnOn(context.Background(), "switch-1", LightOptions{})
	if !errors.Is(err, device.ErrNotALight) {
		t.Fatalf("error = %v, want ErrNotALight", err)
	}
}

func TestBridgePressButton(t *testing.T) {
	sw := testSwitch("switch-1", "zc-001", device.ModeMomentary, 4)
	f := newBridgeFixture(t, sw)
	f.readyController(t, "zc-001", "192.168.1.50")

	if err := f.bridge.PressButton(context.Background(), "switch-1", 1, device.ActionPress); err != nil {
		t.Fatalf("PressButton: %v", err)
	}

	sent, _ := f.sender.lastSent()
	if sent.cmd.Command != CmdButtonAction || *sent.cmd.Button != 1 {
		t.Errorf("sent %s button %v, want BUTTON_ACTION button 1", sent.cmd.Command, sent.cmd.Button)
	}

	// Validation failures
	if err := f.bridge.PressButton(context.Background(), "switch-1", 9, device.ActionPress); !errors.Is(err, device.ErrInvalidButton) {
		t.Errorf("out-of-range button error = %v, want ErrInvalidButton", err)
	}
	if err := f.bridge.PressButton(context.Background(), "switch-1", 0, "wiggle"); !errors.Is(err, device.ErrInvalidButtonAction) {
		t.Errorf("bad action error = %v, want ErrInvalidButtonAction", err)
	}
}

func TestBridgeQueryDevices(t *testing.T) {
	f := newBridgeFixture(t)
	f.readyController(t, "zc-001", "192.168.1.50")
	f.sender.resp = &Response{
		Status: RespOK,
		Devices: []InventoryDevice{
			{ID: "light-1", Name: "Lobby", Type: "light"},
			{ID: "pir-1", Name: "Lobby PIR", Type: "motion_sensor"},
		},
	}

	devices, err := f.bridge.QueryDevices(context.Background(), "zc-001")
	if err != nil {
		t.Fatalf("QueryDevices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}

	sent, _ := f.sender.lastSent()
	if sent.cmd.Command != CmdQueryDevices {
		t.Errorf("sent %s, want QUERY_DEVICES", sent.cmd.Command)
	}
}

func TestBridgeSolicit(t *testing.T) {
	f := newBridgeFixture(t)

	if err := f.bridge.Solicit(); err != nil {
		t.Fatalf("Solicit: %v", err)
	}
	if len(f.sender.broadcast) != 1 || f.sender.broadcast[0].Command != CmdDiscover {
		t.Errorf("broadcast = %+v, want one DISCOVER", f.sender.broadcast)
	}
}

func TestBridgeMQTTDeviceCommand(t *testing.T) {
	light := testLight("light-1", "zc-001")
	f := newBridgeFixture(t, light)
	f.readyController(t, "zc-001", "192.168.1.50")

	topics := mqtt.Topics{}
	handler := f.mqtt.handlers[topics.AllDeviceCommands()]
	if handler == nil {
		t.Fatal("bridge did not subscribe to device commands")
	}

	payload := []byte(`{"command":"turn_on","params":{"brightness":128}}`)
	if err := handler(topics.CommandDevice("light-1"), payload); err != nil {
		t.Fatalf("command handler: %v", err)
	}

	sent, ok := f.sender.lastSent()
	if !ok {
		t.Fatal("no command sent")
	}
	if sent.cmd.Command != CmdLightOn || *sent.cmd.Brightness != 128 {
		t.Errorf("sent %s brightness=%v, want LIGHT_ON/128", sent.cmd.Command, sent.cmd.Brightness)
	}

	// Malformed inputs are rejected
	if err := handler("zencontrol/command/device", payload); err == nil {
		t.Error("handler accepted topic without device id")
	}
	if err := handler(topics.CommandDevice("light-1"), []byte("{bad")); err == nil {
		t.Error("handler accepted malformed payload")
	}
	if err := handler(topics.CommandDevice("light-1"), []byte(`{"command":"explode"}`)); err == nil {
		t.Error("handler accepted unknown command")
	}
}

func TestBridgeMQTTDiscoveryCommand(t *testing.T) {
	triggered := make(chan bool, 1)

	f := &bridgeFixture{
		sender:      &mockSender{},
		events:      &mockEvents{},
		mqtt:        newMockMQTT(),
		controllers: controller.NewRegistry(),
		devices:     newMockDeviceStore(),
	}
	bridge, err := NewBridge(BridgeOptions{
		UDP:                f.sender,
		Events:             f.events,
		Controllers:        f.controllers,
		Devices:            f.devices,
		MQTT:               f.mqtt,
		OnDiscoveryCommand: func(force bool) { triggered <- force },
	})
	if err != nil {
		t.Fatalf("NewBridge: %v", err)
	}
	if err := bridge.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer bridge.Stop()

	topics := mqtt.Topics{}
	handler := f.mqtt.handlers[topics.CommandDiscovery()]
	if handler == nil {
		t.Fatal("bridge did not subscribe to discovery commands")
	}

	if err := handler(topics.CommandDiscovery(), []byte(`{"force":true}`)); err != nil {
		t.Fatalf("discovery handler: %v", err)
	}

	select {
	case force := <-triggered:
		if !force {
			t.Error("force = false, want true")
		}
	case <-time.After(time.Second):
		t.Fatal("discovery not triggered")
	}
}

func TestNewBridgeValidation(t *testing.T) {
	valid := BridgeOptions{
		UDP:         &mockSender{},
		Events:      &mockEvents{},
		Controllers: controller.NewRegistry(),
		Devices:     newMockDeviceStore(),
	}

	tests := []struct {
		name   string
		mutate func(*BridgeOptions)
	}{
		{"missing udp", func(o *BridgeOptions) { o.UDP = nil }},
		{"missing events", func(o *BridgeOptions) { o.Events = nil }},
		{"missing controllers", func(o *BridgeOptions) { o.Controllers = nil }},
		{"missing devices", func(o *BridgeOptions) { o.Devices = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := valid
			tt.mutate(&opts)
			if _, err := NewBridge(opts); err == nil {
				t.Error("NewBridge succeeded, want error")
			}
		})
	}
}
