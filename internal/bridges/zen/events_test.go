package zen

import (
	"errors"
	"testing"
)

func TestParseEventControllerStatus(t *testing.T) {
	data := []byte(`{"type":"controller_status","controller_id":"zc-001","ip_address":"192.168.1.50","status":"startup_complete"}`)

	ev, err := ParseEvent(data)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.Type != EventControllerStatus {
		t.Errorf("Type = %q, want %q", ev.Type, EventControllerStatus)
	}
	if ev.ControllerID != "zc-001" || ev.IPAddress != "192.168.1.50" {
		t.Errorf("controller = %s@%s, want zc-001@192.168.1.50", ev.ControllerID, ev.IPAddress)
	}
	if ev.Status != StatusStartupComplete {
		t.Errorf("Status = %q, want %q", ev.Status, StatusStartupComplete)
	}
}

func TestParseEventButton(t *testing.T) {
	data := []byte(`{"type":"device_event","controller_id":"zc-001","device_id":"switch-hall","subtype":"button","button":2,"action":"press"}`)

	ev, err := ParseEvent(data)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.DeviceID != "switch-hall" || ev.Subtype != SubtypeButton {
		t.Errorf("got %s/%s, want switch-hall/button", ev.DeviceID, ev.Subtype)
	}
	if ev.Button == nil || *ev.Button != 2 {
		t.Errorf("Button = %v, want 2", ev.Button)
	}
	if ev.Action != "press" {
		t.Errorf("Action = %q, want press", ev.Action)
	}
}

func TestParseEventMotion(t *testing.T) {
	data := []byte(`{"type":"device_event","device_id":"pir-lobby","subtype":"motion","active":true}`)

	ev, err := ParseEvent(data)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.Active == nil || !*ev.Active {
		t.Errorf("Active = %v, want true", ev.Active)
	}
}

func TestParseEventLightState(t *testing.T) {
	data := []byte(`{"type":"device_event","device_id":"light-1","subtype":"light_state","state":{"on":true,"brightness":128}}`)

	ev, err := ParseEvent(data)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if ev.State == nil {
		t.Fatal("State is nil")
	}
	if on, _ := ev.State["on"].(bool); !on {
		t.Errorf("state.on = %v, want true", ev.State["on"])
	}
}

func TestParseEventInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not utf8", []byte{0xFF, 0xFE, 0xFD}},
		{"not json", []byte("hello")},
		{"empty object", []byte(`{}`)},
		{"unknown type", []byte(`{"type":"mystery"}`)},
		{"status missing ip", []byte(`{"type":"controller_status","controller_id":"zc-1"}`)},
		{"device missing id", []byte(`{"type":"device_event","subtype":"motion","active":true}`)},
		{"button missing action", []byte(`{"type":"device_event","device_id":"d1","subtype":"button","button":0}`)},
		{"motion missing active", []byte(`{"type":"device_event","device_id":"d1","subtype":"motion"}`)},
		{"light missing state", []byte(`{"type":"device_event","device_id":"d1","subtype":"light_state"}`)},
		{"missing subtype", []byte(`{"type":"device_event","device_id":"d1"}`)},
		{"unknown subtype", []byte(`{"type":"device_event","device_id":"d1","subtype":"smoke"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseEvent(tt.data); !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("ParseEvent error = %v, want ErrInvalidEvent", err)
			}
		})
	}
}

func TestParseResponse(t *testing.T) {
	resp, err := ParseResponse([]byte(`{"status":"ok","devices":[{"id":"light-1","name":"Lobby","type":"light"}]}`))
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if resp.Status != RespOK {
		t.Errorf("Status = %q, want ok", resp.Status)
	}
	if len(resp.Devices) != 1 || resp.Devices[0].ID != "light-1" {
		t.Errorf("Devices = %+v, want one entry light-1", resp.Devices)
	}
}

func TestParseResponseError(t *testing.T) {
	_, err := ParseResponse([]byte(`{"status":"error","error":"unknown device"}`))
	if !errors.Is(err, ErrCommandRejected) {
		t.Errorf("error = %v, want ErrCommandRejected", err)
	}
}
