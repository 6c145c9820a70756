package mqtt

import "fmt"

// Topic prefixes for the ZenControl gateway.
//
// Everything the gateway publishes lives under "zencontrol/". Consumers
// (Home Assistant, Node-RED, dashboards) subscribe with the wildcard
// patterns below.
const (
	// TopicPrefix is the base for all gateway topics.
	TopicPrefix = "zencontrol"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "zencontrol/system"
)

// Topics provides builders for ZenControl MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("light-lobby-1")
//	// Returns: "zencontrol/device/light-lobby-1/state"
type Topics struct{}

// DeviceState returns the retained state topic for a device.
//
// Example: zencontrol/device/light-lobby-1/state
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/state", TopicPrefix, deviceID)
}

// DeviceEvent returns the topic for real-time device events
// (button presses, motion, occupancy).
//
// Example: zencontrol/event/button/switch-hall-4g
func (Topics) DeviceEvent(subtype, deviceID string) string {
	return fmt.Sprintf("%s/event/%s/%s", TopicPrefix, subtype, deviceID)
}

// ControllerStatus returns the retained status topic for a controller.
//
// Example: zencontrol/controller/zc-001/status
func (Topics) ControllerStatus(uid string) string {
	return fmt.Sprintf("%s/controller/%s/status", TopicPrefix, uid)
}

// SceneActivated returns the topic for scene activation events.
//
// Example: zencontrol/scene/cinema-mode/activated
func (Topics) SceneActivated(sceneID string) string {
	return fmt.Sprintf("%s/scene/%s/activated", TopicPrefix, sceneID)
}

// Discovery returns the topic for discovery progress events.
//
// Example: zencontrol/discovery
func (Topics) Discovery() string {
	return fmt.Sprintf("%s/discovery", TopicPrefix)
}

// CommandDevice returns the inbound command topic for a device.
// External systems publish here to control lights and simulate buttons.
//
// Example: zencontrol/command/device/light-lobby-1
func (Topics) CommandDevice(deviceID string) string {
	return fmt.Sprintf("%s/command/device/%s", TopicPrefix, deviceID)
}

// CommandDiscovery returns the inbound topic that triggers a discovery run.
//
// Example: zencontrol/command/discovery
func (Topics) CommandDiscovery() string {
	return fmt.Sprintf("%s/command/discovery", TopicPrefix)
}

// SystemStatus returns the gateway status topic (also used for the LWT).
//
// Example: zencontrol/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllDeviceStates returns a pattern matching all device state topics.
//
// Pattern: zencontrol/device/+/state
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/device/+/state", TopicPrefix)
}

// AllDeviceEvents returns a pattern matching all device events.
//
// Pattern: zencontrol/event/+/+
func (Topics) AllDeviceEvents() string {
	return fmt.Sprintf("%s/event/+/+", TopicPrefix)
}

// AllControllerStatuses returns a pattern matching all controller statuses.
//
// Pattern: zencontrol/controller/+/status
func (Topics) AllControllerStatuses() string {
	return fmt.Sprintf("%s/controller/+/status", TopicPrefix)
}

// AllDeviceCommands returns a pattern matching all inbound device commands.
//
// Pattern: zencontrol/command/device/+
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/command/device/+", TopicPrefix)
}

// AllTopics returns a pattern matching all gateway topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: zencontrol/#
func (Topics) AllTopics() string {
	return "zencontrol/#"
}
