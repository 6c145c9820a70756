package device

import "fmt"

// Validation limits.
const (
	maxNameLength = 100
	maxIDLength   = 64
)

// Validate checks that a device is well-formed before persistence.
// Returns a wrapped sentinel error describing the first problem found.
func Validate(d *Device) error {
	if d == nil {
		return fmt.Errorf("%w: nil device", ErrInvalidDevice)
	}

	if d.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}
	if len(d.ID) > maxIDLength {
		return fmt.Errorf("%w: id exceeds %d characters", ErrInvalidDevice, maxIDLength)
	}

	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(d.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}

	if d.ControllerID == "" {
		return fmt.Errorf("%w: controller_id is required", ErrInvalidDevice)
	}

	if !validDeviceType(d.Type) {
		return fmt.Errorf("%w: %q", ErrInvalidDeviceType, d.Type)
	}

	if d.Type == TypeSwitch {
		if err := validateSwitchConfig(d); err != nil {
			return err
		}
	}

	for _, c := range d.Capabilities {
		if !validCapability(c) {
			return fmt.Errorf("%w: unknown capability %q", ErrInvalidDevice, c)
		}
	}

	return nil
}

// validateSwitchConfig checks switch-specific configuration.
func validateSwitchConfig(d *Device) error {
	buttons := d.ButtonCount()
	if buttons < 1 || buttons > MaxButtonCount {
		return fmt.Errorf("%w: buttons must be 1-%d, got %d",
			ErrInvalidDevice, MaxButtonCount, buttons)
	}

	mode := d.SwitchMode()
	if mode != ModeMomentary && mode != ModeToggle {
		return fmt.Errorf("%w: mode must be %q or %q, got %q",
			ErrInvalidDevice, ModeMomentary, ModeToggle, mode)
	}

	return nil
}

// validDeviceType reports whether t is a recognised device type.
func validDeviceType(t DeviceType) bool {
	for _, valid := range AllDeviceTypes() {
		if t == valid {
			return true
		}
	}
	return false
}

// validCapability reports whether c is a recognised capability.
func validCapability(c Capability) bool {
	for _, valid := range AllCapabilities() {
		if c == valid {
			return true
		}
	}
	return false
}
