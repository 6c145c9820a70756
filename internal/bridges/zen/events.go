package zen

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Event types carried in the multicast envelope.
const (
	// EventControllerStatus announces controller lifecycle changes.
	EventControllerStatus = "controller_status"

	// EventDeviceEvent carries device activity.
	EventDeviceEvent = "device_event"
)

// Controller status values.
const (
	StatusStartupComplete = "startup_complete"
	StatusShutdown        = "shutdown"
	StatusHeartbeat       = "heartbeat"
)

// Device event subtypes.
const (
	SubtypeButton     = "button"
	SubtypeMotion     = "motion"
	SubtypeOccupancy  = "occupancy"
	SubtypeLightState = "light_state"
)

// Event is a decoded multicast datagram.
//
// The Type discriminator selects which fields are meaningful:
//
//	controller_status: ControllerID, IPAddress, Status
//	device_event:      ControllerID, DeviceID, Subtype, plus the
//	                   subtype's payload (Button/Action, Active, State)
type Event struct {
	Type string `json:"type"`

	// Controller fields
	ControllerID string `json:"controller_id,omitempty"`
	IPAddress    string `json:"ip_address,omitempty"`
	Status       string `json:"status,omitempty"`

	// Device fields
	DeviceID string `json:"device_id,omitempty"`
	Subtype  string `json:"subtype,omitempty"`

	// Button payload
	Button *int   `json:"button,omitempty"`
	Action string `json:"action,omitempty"`

	// Motion/occupancy payload
	Active *bool `json:"active,omitempty"`

	// Light state payload
	State map[string]any `json:"state,omitempty"`
}

// ParseEvent decodes and validates a multicast datagram.
// Returns ErrInvalidEvent for non-UTF-8 data, malformed JSON, or an
// envelope missing required fields for its type.
func ParseEvent(data []byte) (Event, error) {
	if !utf8.Valid(data) {
		return Event{}, fmt.Errorf("%w: not valid UTF-8", ErrInvalidEvent)
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	if err := ev.validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// validate checks the envelope's required fields per type.
func (e *Event) validate() error {
	switch e.Type {
	case EventControllerStatus:
		if e.ControllerID == "" || e.IPAddress == "" {
			return fmt.Errorf("%w: controller_status missing controller_id or ip_address",
				ErrInvalidEvent)
		}
	case EventDeviceEvent:
		if e.DeviceID == "" {
			return fmt.Errorf("%w: device_event missing device_id", ErrInvalidEvent)
		}
		if err := e.validateSubtype(); err != nil {
			return err
		}
	case "":
		return fmt.Errorf("%w: missing type", ErrInvalidEvent)
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	return nil
}

// validateSubtype checks the subtype payload of a device event.
func (e *Event) validateSubtype() error {
	switch e.Subtype {
	case SubtypeButton:
		if e.Button == nil || e.Action == "" {
			return fmt.Errorf("%w: button event missing button or action", ErrInvalidEvent)
		}
	case SubtypeMotion, SubtypeOccupancy:
		if e.Active == nil {
			return fmt.Errorf("%w: %s event missing active", ErrInvalidEvent, e.Subtype)
		}
	case SubtypeLightState:
		if e.State == nil {
			return fmt.Errorf("%w: light_state event missing state", ErrInvalidEvent)
		}
	case "":
		return fmt.Errorf("%w: device_event missing subtype", ErrInvalidEvent)
	default:
		return fmt.Errorf("%w: unknown subtype %q", ErrInvalidEvent, e.Subtype)
	}
	return nil
}
