package zen

import (
	"encoding/json"
	"fmt"
)

// Command names understood by ZenControl controllers.
const (
	CmdLightOn      = "LIGHT_ON"
	CmdLightOff     = "LIGHT_OFF"
	CmdButtonAction = "BUTTON_ACTION"
	CmdQueryDevices = "QUERY_DEVICES"
	CmdPing         = "PING"
	CmdDiscover     = "DISCOVER"
)

// Command is the JSON payload of a command frame.
type Command struct {
	Command  string `json:"command"`
	DeviceID string `json:"device_id,omitempty"`

	// Light parameters (LIGHT_ON)
	Brightness *int   `json:"brightness,omitempty"`
	RGBColor   []int  `json:"rgb_color,omitempty"`
	ColorTemp  *int   `json:"color_temp,omitempty"`

	// Button parameters (BUTTON_ACTION)
	Button *int   `json:"button,omitempty"`
	Action string `json:"action,omitempty"`
}

// LightOptions holds the optional parameters of a LIGHT_ON command.
// Nil fields are omitted from the wire payload and leave the
// controller's current values untouched.
type LightOptions struct {
	// Brightness 0-255.
	Brightness *int

	// RGBColor as [r, g, b], each 0-255.
	RGBColor []int

	// ColorTemp in mireds.
	ColorTemp *int
}

// NewLightOn builds a LIGHT_ON command.
func NewLightOn(deviceID string, opts LightOptions) Command {
	return Command{
		Command:    CmdLightOn,
		DeviceID:   deviceID,
		Brightness: opts.Brightness,
		RGBColor:   opts.RGBColor,
		ColorTemp:  opts.ColorTemp,
	}
}

// NewLightOff builds a LIGHT_OFF command.
func NewLightOff(deviceID string) Command {
	return Command{Command: CmdLightOff, DeviceID: deviceID}
}

// NewButtonAction builds a BUTTON_ACTION command simulating a physical press.
func NewButtonAction(deviceID string, button int, action string) Command {
	return Command{
		Command:  CmdButtonAction,
		DeviceID: deviceID,
		Button:   &button,
		Action:   action,
	}
}

// NewQueryDevices builds a QUERY_DEVICES command requesting the
// controller's device inventory.
func NewQueryDevices() Command {
	return Command{Command: CmdQueryDevices}
}

// NewPing builds a PING health probe.
func NewPing() Command {
	return Command{Command: CmdPing}
}

// NewDiscover builds the broadcast discovery solicitation. Controllers
// answer it with controller_status announcements on the multicast group.
func NewDiscover() Command {
	return Command{Command: CmdDiscover}
}

// Response statuses returned by controllers.
const (
	RespOK    = "ok"
	RespError = "error"
)

// Response is the JSON payload of a response frame.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`

	// Devices is populated for QUERY_DEVICES responses.
	Devices []InventoryDevice `json:"devices,omitempty"`
}

// InventoryDevice is one entry of a controller's device inventory.
type InventoryDevice struct {
	ID     string         `json:"id"`
	Name   string         `json:"name,omitempty"`
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// ParseResponse decodes a response payload and converts controller-side
// errors into ErrCommandRejected.
func ParseResponse(payload []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("zen: decoding response: %w", err)
	}

	if resp.Status == RespError {
		return &resp, fmt.Errorf("%w: %s", ErrCommandRejected, resp.Error)
	}
	return &resp, nil
}
