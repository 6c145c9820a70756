package api

import (
	"net/http"
	"testing"

	"github.com/zencontrol/zengateway/internal/bridges/zen"
	"github.com/zencontrol/zengateway/internal/device"
)

func TestListDevices(t *testing.T) {
	f := newAPIFixture(t,
		testLightDevice("light-1", "zc-001"),
		testLightDevice("light-2", "zc-002"),
	)

	rec := f.do(t, http.MethodGet, "/api/v1/devices/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Devices []device.Device `json:"devices"`
		Count   int             `json:"count"`
	}
	decode(t, rec, &resp)
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
}

func TestListDevicesByController(t *testing.T) {
	f := newAPIFixture(t,
		testLightDevice("light-1", "zc-001"),
		testLightDevice("light-2", "zc-002"),
	)

	rec := f.do(t, http.MethodGet, "/api/v1/devices/?controller=zc-001", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Devices []device.Device `json:"devices"`
		Count   int             `json:"count"`
	}
	decode(t, rec, &resp)
	if resp.Count != 1 || resp.Devices[0].ID != "light-1" {
		t.Errorf("filtered result = %+v, want only light-1", resp.Devices)
	}
}

func TestGetDevice(t *testing.T) {
	f := newAPIFixture(t, testLightDevice("light-1", "zc-001"))

	rec := f.do(t, http.MethodGet, "/api/v1/devices/light-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var dev device.Device
	decode(t, rec, &dev)
	if dev.ID != "light-1" || dev.Type != device.TypeLight {
		t.Errorf("device = %+v, want light-1", dev)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/devices/no-such-device", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown device status = %d, want 404", rec.Code)
	}
}

func TestGetDeviceState(t *testing.T) {
	f := newAPIFixture(t, testLightDevice("light-1", "zc-001"))

	rec := f.do(t, http.MethodGet, "/api/v1/devices/light-1/state", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		DeviceID string       `json:"device_id"`
		State    device.State `json:"state"`
	}
	decode(t, rec, &resp)
	if resp.DeviceID != "light-1" {
		t.Errorf("device_id = %q, want light-1", resp.DeviceID)
	}
	if on, ok := resp.State["on"].(bool); !ok || on {
		t.Errorf("state on = %v, want false", resp.State["on"])
	}
}

func TestSetDeviceState(t *testing.T) {
	f := newAPIFixture(t, testLightDevice("light-1", "zc-001"))

	rec := f.do(t, http.MethodPut, "/api/v1/devices/light-1/state", map[string]any{"on": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Changed bool `json:"changed"`
	}
	decode(t, rec, &resp)
	if !resp.Changed {
		t.Error("expected changed = true")
	}
	if len(f.devices.patches) != 1 {
		t.Fatalf("patches = %d, want 1", len(f.devices.patches))
	}

	rec = f.do(t, http.MethodPut, "/api/v1/devices/light-1/state", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty patch status = %d, want 400", rec.Code)
	}

	rec = f.do(t, http.MethodPut, "/api/v1/devices/no-such-device/state", map[string]any{"on": true})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown device status = %d, want 404", rec.Code)
	}
}

func TestDeviceCommand(t *testing.T) {
	f := newAPIFixture(t, testLightDevice("light-1", "zc-001"))

	rec := f.do(t, http.MethodPost, "/api/v1/devices/light-1/command", map[string]any{
		"command": "turn_on",
		"params":  map[string]any{"brightness": 200},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	if len(f.bridge.executed) != 1 {
		t.Fatalf("executed = %d commands, want 1", len(f.bridge.executed))
	}
	got := f.bridge.executed[0]
	if got.deviceID != "light-1" || got.command != "turn_on" {
		t.Errorf("executed = %+v, want turn_on on light-1", got)
	}
	if got.params["brightness"] != float64(200) {
		t.Errorf("brightness param = %v, want 200", got.params["brightness"])
	}
}

func TestDeviceCommandMissingCommand(t *testing.T) {
	f := newAPIFixture(t, testLightDevice("light-1", "zc-001"))

	rec := f.do(t, http.MethodPost, "/api/v1/devices/light-1/command", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(f.bridge.executed) != 0 {
		t.Errorf("executed = %d commands, want 0", len(f.bridge.executed))
	}
}

func TestDeviceCommandErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"device not found", device.ErrDeviceNotFound, http.StatusNotFound},
		{"not a light", device.ErrNotALight, http.StatusBadRequest},
		{"colour not supported", device.ErrColorNotSupported, http.StatusBadRequest},
		{"invalid button", device.ErrInvalidButton, http.StatusBadRequest},
		{"unknown command", zen.ErrUnknownCommand, http.StatusBadRequest},
		{"controller not ready", zen.ErrControllerNotReady, http.StatusConflict},
		{"timeout", zen.ErrTimeout, http.StatusGatewayTimeout},
		{"rejected", zen.ErrCommandRejected, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAPIFixture(t, testLightDevice("light-1", "zc-001"))
			f.bridge.execErr = tc.err

			rec := f.do(t, http.MethodPost, "/api/v1/devices/light-1/command", map[string]any{
				"command": "turn_on",
			})
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
