package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// mockRepository is an in-memory scene store.
type mockRepository struct {
	mu          sync.Mutex
	scenes      map[string]*Scene
	assignments map[string]string // "device/button" -> scene id
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		scenes:      make(map[string]*Scene),
		assignments: make(map[string]string),
	}
}

func assignmentKey(deviceID string, button int) string {
	return fmt.Sprintf("%s/%d", deviceID, button)
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scenes[id]
	if !ok {
		return nil, ErrSceneNotFound
	}
	return s, nil
}

func (m *mockRepository) List(context.Context) ([]Scene, error) { return nil, nil }

func (m *mockRepository) Create(_ context.Context, s *Scene) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenes[s.ID] = s
	return nil
}

func (m *mockRepository) Update(context.Context, *Scene) error { return nil }
func (m *mockRepository) Delete(context.Context, string) error { return nil }

func (m *mockRepository) Assign(_ context.Context, deviceID string, button int, sceneID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[assignmentKey(deviceID, button)] = sceneID
	return nil
}

func (m *mockRepository) Unassign(context.Context, string, int) error { return nil }

func (m *mockRepository) GetAssignment(_ context.Context, deviceID string, button int) (*Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sceneID, ok := m.assignments[assignmentKey(deviceID, button)]
	if !ok {
		return nil, ErrNoAssignment
	}
	return &Assignment{DeviceID: deviceID, Button: button, SceneID: sceneID}, nil
}

func (m *mockRepository) ListAssignments(context.Context) ([]Assignment, error) { return nil, nil }

// mockSender records executed commands and fails configured devices.
type mockSender struct {
	mu       sync.Mutex
	executed []string
	failFor  map[string]bool
}

func (m *mockSender) Execute(_ context.Context, deviceID, command string, _ map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executed = append(m.executed, deviceID+":"+command)
	if m.failFor[deviceID] {
		return errors.New("controller unreachable")
	}
	return nil
}

// mockPublisher records published topics.
type mockPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (m *mockPublisher) Publish(topic string, _ []byte, _ byte, _ bool) error {
	m.mu.Lock()
	m.topics = append(m.topics, topic)
	m.mu.Unlock()
	return nil
}

// mockBroadcaster records channels.
type mockBroadcaster struct {
	mu       sync.Mutex
	channels []string
}

func (m *mockBroadcaster) Broadcast(channel string, _ any) {
	m.mu.Lock()
	m.channels = append(m.channels, channel)
	m.mu.Unlock()
}

func newTestEngine(t *testing.T, repo Repository, sender CommandSender) (*Engine, *mockPublisher, *mockBroadcaster) {
	t.Helper()

	pub := &mockPublisher{}
	ws := &mockBroadcaster{}
	engine, err := NewEngine(EngineOptions{
		Repository: repo,
		Sender:     sender,
		MQTT:       pub,
		WS:         ws,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine, pub, ws
}

func TestEngineActivate(t *testing.T) {
	repo := newMockRepository()
	sender := &mockSender{}
	engine, pub, ws := newTestEngine(t, repo, sender)

	repo.scenes["cinema"] = &Scene{
		ID:   "cinema",
		Name: "Cinema Mode",
		Actions: []Action{
			{DeviceID: "light-1", Command: "turn_on", Params: map[string]any{"brightness": float64(30)}},
			{DeviceID: "light-2", Command: "turn_off"},
		},
	}

	if err := engine.Activate(context.Background(), "cinema"); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	want := []string{"light-1:turn_on", "light-2:turn_off"}
	if len(sender.executed) != len(want) {
		t.Fatalf("executed %d actions, want %d", len(sender.executed), len(want))
	}
	for i, cmd := range want {
		if sender.executed[i] != cmd {
			t.Errorf("action %d = %q, want %q", i, sender.executed[i], cmd)
		}
	}

	if len(pub.topics) != 1 || pub.topics[0] != "zencontrol/scene/cinema/activated" {
		t.Errorf("published topics = %v, want scene activation topic", pub.topics)
	}
	if len(ws.channels) != 1 || ws.channels[0] != "scenes" {
		t.Errorf("ws channels = %v, want [scenes]", ws.channels)
	}
	if got := engine.Stats().Activations; got != 1 {
		t.Errorf("Activations = %d, want 1", got)
	}
}

func TestEngineActivateContinuesPastFailures(t *testing.T) {
	repo := newMockRepository()
	sender := &mockSender{failFor: map[string]bool{"light-1": true}}
	engine, _, _ := newTestEngine(t, repo, sender)

	repo.scenes["s1"] = &Scene{
		ID:   "s1",
		Name: "Partial",
		Actions: []Action{
			{DeviceID: "light-1", Command: "turn_on"},
			{DeviceID: "light-2", Command: "turn_on"},
		},
	}

	if err := engine.Activate(context.Background(), "s1"); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if len(sender.executed) != 2 {
		t.Errorf("executed %d actions, want 2 despite failure", len(sender.executed))
	}
	if got := engine.Stats().ActionsFailed; got != 1 {
		t.Errorf("ActionsFailed = %d, want 1", got)
	}
}

func TestEngineActivateUnknownScene(t *testing.T) {
	engine, _, _ := newTestEngine(t, newMockRepository(), &mockSender{})

	err := engine.Activate(context.Background(), "ghost")
	if !errors.Is(err, ErrSceneNotFound) {
		t.Errorf("Activate unknown scene = %v, want ErrSceneNotFound", err)
	}
}

func TestEngineActivateForButton(t *testing.T) {
	repo := newMockRepository()
	sender := &mockSender{}
	engine, _, _ := newTestEngine(t, repo, sender)

	repo.scenes["s1"] = &Scene{
		ID:      "s1",
		Name:    "Hall",
		Actions: []Action{{DeviceID: "light-1", Command: "turn_on"}},
	}
	repo.assignments[assignmentKey("switch-1", 2)] = "s1"

	if err := engine.ActivateForButton(context.Background(), "switch-1", 2); err != nil {
		t.Fatalf("ActivateForButton: %v", err)
	}
	if len(sender.executed) != 1 {
		t.Errorf("executed %d actions, want 1", len(sender.executed))
	}

	// Unassigned button is a quiet no-op
	if err := engine.ActivateForButton(context.Background(), "switch-1", 3); err != nil {
		t.Errorf("unassigned button = %v, want nil", err)
	}
	if len(sender.executed) != 1 {
		t.Errorf("unassigned button executed actions")
	}
}

func TestNewEngineValidation(t *testing.T) {
	if _, err := NewEngine(EngineOptions{Sender: &mockSender{}}); err == nil {
		t.Error("NewEngine without repository succeeded")
	}
	if _, err := NewEngine(EngineOptions{Repository: newMockRepository()}); err == nil {
		t.Error("NewEngine without sender succeeded")
	}
}
