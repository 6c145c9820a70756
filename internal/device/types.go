package device

import "time"

// Device represents an entity managed by a ZenControl controller: a DALI
// light, a multi-button wall switch, or a motion/occupancy sensor.
type Device struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// ControllerID is the uid of the owning controller.
	ControllerID string `json:"controller_id"`

	// Classification
	Type DeviceType `json:"type"`

	// Capabilities and configuration
	Capabilities []Capability `json:"capabilities"`
	Config       Config       `json:"config"`

	// Current state
	State          State      `json:"state"`
	StateUpdatedAt *time.Time `json:"state_updated_at,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the Device.
// All map and slice fields are cloned so modifications to the copy
// do not affect the original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	cpy.Config = deepCopyMap(d.Config)
	cpy.State = deepCopyMap(d.State)

	if d.Capabilities != nil {
		cpy.Capabilities = make([]Capability, len(d.Capabilities))
		copy(cpy.Capabilities, d.Capabilities)
	}

	// Pointer fields (*time.Time) don't need deep copy
	// because time.Time is immutable in Go

	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives (string, bool, int, float64, etc.) are safe to copy by value
		return v
	}
}

// Config holds device-specific configuration as a JSON map.
//
// Examples:
//   - Switch: {"buttons": 4, "mode": "momentary"}
//   - Light: {"min_brightness": 10}
type Config map[string]any

// State holds the current device state as a JSON map.
//
// Examples:
//   - Light: {"state": "on", "brightness": 200, "color_temp": 350}
//   - Switch: {"buttons": {"0": false, "1": true}}
//   - Sensor: {"active": true, "last_triggered": "2026-08-30T10:15:00Z"}
type State map[string]any

// DeviceType represents the specific kind of device.
type DeviceType string //nolint:revive // device.DeviceType is clearer than device.Type in calling code

// Device type constants.
const (
	// TypeLight is a white-only DALI light.
	TypeLight DeviceType = "light"

	// TypeLightColor is a DALI light with RGB and colour temperature support.
	TypeLightColor DeviceType = "light_color"

	// TypeSwitch is a multi-button wall switch.
	TypeSwitch DeviceType = "switch"

	// TypeMotionSensor detects movement.
	TypeMotionSensor DeviceType = "motion_sensor"

	// TypeOccupancySensor detects sustained presence.
	TypeOccupancySensor DeviceType = "occupancy_sensor"
)

// AllDeviceTypes returns all valid device type values.
func AllDeviceTypes() []DeviceType {
	return []DeviceType{
		TypeLight, TypeLightColor, TypeSwitch,
		TypeMotionSensor, TypeOccupancySensor,
	}
}

// IsLight reports whether the device is a light of any kind.
func (d *Device) IsLight() bool {
	return d.Type == TypeLight || d.Type == TypeLightColor
}

// IsSensor reports whether the device is a motion or occupancy sensor.
func (d *Device) IsSensor() bool {
	return d.Type == TypeMotionSensor || d.Type == TypeOccupancySensor
}

// SupportsColor reports whether colour commands are valid for this device.
func (d *Device) SupportsColor() bool {
	return d.Type == TypeLightColor
}

// Switch configuration defaults.
const (
	// DefaultButtonCount is used when a switch config omits "buttons".
	DefaultButtonCount = 4

	// MaxButtonCount bounds the per-switch button count.
	MaxButtonCount = 8
)

// Switch modes.
const (
	// ModeMomentary switches report press (true) and release (false).
	ModeMomentary = "momentary"

	// ModeToggle switches invert their state on each press.
	ModeToggle = "toggle"
)

// ButtonCount returns the number of buttons configured for a switch.
// Falls back to DefaultButtonCount when the config omits it.
func (d *Device) ButtonCount() int {
	if v, ok := d.Config["buttons"]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64: // JSON numbers decode as float64
			return int(n)
		}
	}
	return DefaultButtonCount
}

// SwitchMode returns the configured switch mode (momentary or toggle).
// Falls back to momentary when the config omits it.
func (d *Device) SwitchMode() string {
	if mode, ok := d.Config["mode"].(string); ok && mode != "" {
		return mode
	}
	return ModeMomentary
}

// Capability represents what a device can do.
type Capability string

// Capability constants.
const (
	CapOnOff           Capability = "on_off"
	CapDim             Capability = "dim"
	CapColorTemp       Capability = "color_temp"
	CapColorRGB        Capability = "color_rgb"
	CapButtonEvents    Capability = "button_events"
	CapMotionDetect    Capability = "motion_detect"
	CapOccupancyDetect Capability = "occupancy_detect"
)

// AllCapabilities returns all valid capability values.
func AllCapabilities() []Capability {
	return []Capability{
		CapOnOff, CapDim, CapColorTemp, CapColorRGB,
		CapButtonEvents, CapMotionDetect, CapOccupancyDetect,
	}
}

// DefaultCapabilities returns the capabilities implied by a device type.
// Used when discovery registers a device without an explicit capability list.
func DefaultCapabilities(t DeviceType) []Capability {
	switch t {
	case TypeLight:
		return []Capability{CapOnOff, CapDim}
	case TypeLightColor:
		return []Capability{CapOnOff, CapDim, CapColorTemp, CapColorRGB}
	case TypeSwitch:
		return []Capability{CapButtonEvents}
	case TypeMotionSensor:
		return []Capability{CapMotionDetect}
	case TypeOccupancySensor:
		return []Capability{CapOccupancyDetect}
	default:
		return nil
	}
}
