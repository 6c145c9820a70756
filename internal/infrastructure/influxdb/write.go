package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// boolToFloat converts an activity flag to a plottable 0/1 value.
func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// WriteLightState records a light's state after a change.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Unique identifier for the light (e.g., "light-lobby-1")
//   - on: Whether the light is on
//   - brightness: DALI arc level mapped to 0-255
//
// Example:
//
//	client.WriteLightState("light-lobby-1", true, 180)
func (c *Client) WriteLightState(deviceID string, on bool, brightness int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"light_state",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"on":         boolToFloat(on),
			"brightness": float64(brightness),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSensorActivity records a motion or occupancy transition.
//
// Parameters:
//   - deviceID: Sensor identifier
//   - sensorType: "motion" or "occupancy"
//   - active: The new activity state
func (c *Client) WriteSensorActivity(deviceID string, sensorType string, active bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_activity",
		map[string]string{
			"device_id": deviceID,
			"sensor":    sensorType,
		},
		map[string]interface{}{
			"active": boolToFloat(active),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteControllerAvailability records a controller readiness transition.
// Useful for plotting controller uptime and spotting flapping gateways.
func (c *Client) WriteControllerAvailability(uid string, ready bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"controller_availability",
		map[string]string{
			"controller_id": uid,
		},
		map[string]interface{}{
			"ready": boolToFloat(ready),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteButtonEvent records a button press for usage analytics.
func (c *Client) WriteButtonEvent(deviceID string, button int, action string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"button_events",
		map[string]string{
			"device_id": deviceID,
			"action":    action,
		},
		map[string]interface{}{
			"button": float64(button),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
