package zen

import (
	"context"
	"errors"
	"testing"
	"time"
)

// startTestClient binds a client on an ephemeral port.
func startTestClient(t *testing.T) *UDPClient {
	t.Helper()

	client, err := StartClient(ClientConfig{ListenPort: 0, Timeout: time.Second})
	if err != nil {
		t.Fatalf("StartClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClientLifecycle(t *testing.T) {
	client := startTestClient(t)

	if !client.IsRunning() {
		t.Error("IsRunning = false after start")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if client.IsRunning() {
		t.Error("IsRunning = true after Close")
	}

	// Close is idempotent
	if err := client.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestClientSendAfterClose(t *testing.T) {
	client := startTestClient(t)
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err := client.SendCommand(context.Background(), "127.0.0.1", NewPing())
	if !errors.Is(err, ErrClosed) {
		t.Errorf("SendCommand after close = %v, want ErrClosed", err)
	}

	if err := client.Broadcast(NewDiscover()); !errors.Is(err, ErrClosed) {
		t.Errorf("Broadcast after close = %v, want ErrClosed", err)
	}
}

func TestClientRejectsInvalidAddress(t *testing.T) {
	client := startTestClient(t)

	_, err := client.SendCommand(context.Background(), "not-an-ip", NewPing())
	if err == nil {
		t.Error("SendCommand with invalid address succeeded, want error")
	}
}

func TestClientTimeoutClamping(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"zero uses default", 0, defaultCommandTimeout},
		{"below minimum", 100 * time.Millisecond, minCommandTimeout},
		{"above maximum", time.Minute, maxCommandTimeout},
		{"in range", 3 * time.Second, 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := StartClient(ClientConfig{ListenPort: 0, Timeout: tt.in})
			if err != nil {
				t.Fatalf("StartClient: %v", err)
			}
			defer client.Close()

			if client.cfg.Timeout != tt.want {
				t.Errorf("Timeout = %v, want %v", client.cfg.Timeout, tt.want)
			}
		})
	}
}

func TestClientStats(t *testing.T) {
	client := startTestClient(t)

	stats := client.Stats()
	if stats.CommandsTx != 0 || stats.ResponsesRx != 0 {
		t.Errorf("fresh client stats = %+v, want zeros", stats)
	}
	if !stats.Running {
		t.Error("stats.Running = false for running client")
	}
}
