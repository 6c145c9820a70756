package device

import (
	"fmt"
	"time"
)

// Button actions delivered by controllers.
const (
	ActionPress       = "press"
	ActionRelease     = "release"
	ActionDoublePress = "double_press"
	ActionHold        = "hold"
)

// ValidButtonAction reports whether the action string is recognised.
func ValidButtonAction(action string) bool {
	switch action {
	case ActionPress, ActionRelease, ActionDoublePress, ActionHold:
		return true
	default:
		return false
	}
}

// ApplyLightState merges a light state update into the device state and
// returns true if anything changed. Keys not present in the update are
// preserved.
func (d *Device) ApplyLightState(update State) bool {
	if d.State == nil {
		d.State = make(State)
	}

	changed := false
	for key, value := range update {
		if !valuesEqual(d.State[key], value) {
			d.State[key] = deepCopyValue(value)
			changed = true
		}
	}

	if changed {
		now := time.Now().UTC()
		d.StateUpdatedAt = &now
	}
	return changed
}

// ApplyButtonAction applies a button event to a switch and returns true
// if the button's state changed, matching ApplyLightState.
//
// Momentary switches track press (true) and release (false). Toggle
// switches invert their state on press and double_press; release and
// hold leave the state untouched.
//
// Returns ErrNotASwitch, ErrInvalidButton, or ErrInvalidButtonAction
// when the event cannot apply.
func (d *Device) ApplyButtonAction(button int, action string) (bool, error) {
	if d.Type != TypeSwitch {
		return false, fmt.Errorf("%w: %s is %s", ErrNotASwitch, d.ID, d.Type)
	}
	if button < 0 || button >= d.ButtonCount() {
		return false, fmt.Errorf("%w: button %d on %s (have %d)",
			ErrInvalidButton, button, d.ID, d.ButtonCount())
	}
	if !ValidButtonAction(action) {
		return false, fmt.Errorf("%w: %q", ErrInvalidButtonAction, action)
	}

	states := d.buttonStates()
	key := fmt.Sprintf("%d", button)
	current, _ := states[key].(bool)

	next := current
	switch d.SwitchMode() {
	case ModeToggle:
		// Press and double press both invert; release/hold are stateless.
		if action == ActionPress || action == ActionDoublePress {
			next = !current
		}
	default: // momentary
		switch action {
		case ActionPress:
			next = true
		case ActionRelease:
			next = false
		}
	}

	if next == current {
		return false, nil
	}

	states[key] = next
	now := time.Now().UTC()
	d.StateUpdatedAt = &now
	return true, nil
}

// buttonStates returns the mutable per-button state map, creating it
// (with all buttons released) on first use.
func (d *Device) buttonStates() map[string]any {
	if d.State == nil {
		d.State = make(State)
	}
	if states, ok := d.State["buttons"].(map[string]any); ok {
		return states
	}

	states := make(map[string]any, d.ButtonCount())
	for i := 0; i < d.ButtonCount(); i++ {
		states[fmt.Sprintf("%d", i)] = false
	}
	d.State["buttons"] = states
	return states
}

// ApplySensorActivity applies a motion or occupancy event to a sensor.
// The sensorType parameter names the event's kind (TypeMotionSensor or
// TypeOccupancySensor); a mismatch with the device type is rejected with
// ErrSensorTypeMismatch and the state is left untouched.
//
// When active, last_triggered is set to the event time; when inactive it
// is cleared.
func (d *Device) ApplySensorActivity(sensorType DeviceType, active bool, at time.Time) error {
	if !d.IsSensor() {
		return fmt.Errorf("%w: %s is %s", ErrSensorTypeMismatch, d.ID, d.Type)
	}
	if d.Type != sensorType {
		return fmt.Errorf("%w: %s event for %s sensor %s",
			ErrSensorTypeMismatch, sensorType, d.Type, d.ID)
	}

	if d.State == nil {
		d.State = make(State)
	}

	d.State["active"] = active
	if active {
		d.State["last_triggered"] = at.UTC().Format(time.RFC3339)
	} else {
		d.State["last_triggered"] = nil
	}

	now := time.Now().UTC()
	d.StateUpdatedAt = &now
	return nil
}

// valuesEqual compares two state values, handling nested maps and slices
// which Go's == operator cannot compare directly.
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if !valuesEqual(v, bv[k]) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
