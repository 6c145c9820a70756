package zen

import (
	"fmt"
	"sync"
	"testing"
)

// testLogger captures log calls for assertions.
type testLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *testLogger) log(level, msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, level+": "+msg)
	l.mu.Unlock()
}

func (l *testLogger) Debug(msg string, _ ...any) { l.log("debug", msg) }
func (l *testLogger) Info(msg string, _ ...any)  { l.log("info", msg) }
func (l *testLogger) Warn(msg string, _ ...any)  { l.log("warn", msg) }
func (l *testLogger) Error(msg string, _ ...any) { l.log("error", msg) }

func (l *testLogger) has(entry string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e == entry {
			return true
		}
	}
	return false
}

func TestDispatchDeliversToAllHandlers(t *testing.T) {
	l := &Listener{}

	var got []string
	for i := 0; i < 3; i++ {
		i := i
		l.AddHandler(func(ev Event) {
			got = append(got, fmt.Sprintf("h%d:%s", i, ev.ControllerID))
		})
	}

	l.dispatch(Event{Type: EventControllerStatus, ControllerID: "zc-001"})

	if len(got) != 3 {
		t.Fatalf("delivered to %d handlers, want 3", len(got))
	}
	for i, entry := range got {
		want := fmt.Sprintf("h%d:zc-001", i)
		if entry != want {
			t.Errorf("handler %d got %q, want %q", i, entry, want)
		}
	}
}

func TestDispatchRecoversHandlerPanic(t *testing.T) {
	l := &Listener{}
	logger := &testLogger{}
	l.SetLogger(logger)

	afterPanic := false
	l.AddHandler(func(Event) { panic("boom") })
	l.AddHandler(func(Event) { afterPanic = true })

	l.dispatch(Event{Type: EventControllerStatus, ControllerID: "zc-001"})

	if !afterPanic {
		t.Error("handler after panicking handler was not called")
	}
	if !logger.has("error: event handler panic") {
		t.Errorf("panic not logged, entries: %v", logger.entries)
	}
}

func TestShardForKeepsDeviceOnOneShard(t *testing.T) {
	press := Event{Type: EventDeviceEvent, ControllerID: "zc-001", DeviceID: "sw-01", Subtype: SubtypeButton}
	release := press
	release.ControllerID = "zc-002" // Controller identity must not matter for device events

	if shardFor(press) != shardFor(release) {
		t.Error("events for the same device landed on different shards")
	}

	status := Event{Type: EventControllerStatus, ControllerID: "zc-001"}
	heartbeat := Event{Type: EventControllerStatus, ControllerID: "zc-001", Status: StatusHeartbeat}
	if shardFor(status) != shardFor(heartbeat) {
		t.Error("status events for the same controller landed on different shards")
	}

	for _, id := range []string{"sw-01", "l1", "ms-01", "zc-001"} {
		ev := Event{DeviceID: id}
		if shard := shardFor(ev); shard < 0 || shard >= eventShardCount {
			t.Errorf("shardFor(%s) = %d, out of range", id, shard)
		}
	}
}

func TestStartListenerRejectsNonMulticastGroup(t *testing.T) {
	for _, group := range []string{"", "192.168.1.10", "not-an-ip"} {
		_, err := StartListener(ListenerConfig{Group: group, Port: 5110})
		if err == nil {
			t.Errorf("StartListener(%q) succeeded, want error", group)
		}
	}
}
