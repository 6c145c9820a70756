package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device with an ID that already exists.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidDeviceType is returned when a device type is not recognised.
	ErrInvalidDeviceType = errors.New("device: invalid type")

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrColorNotSupported is returned when a colour operation targets a
	// light without colour support.
	ErrColorNotSupported = errors.New("device: colour not supported")

	// ErrInvalidButton is returned when a button index is outside the
	// switch's configured range.
	ErrInvalidButton = errors.New("device: invalid button index")

	// ErrInvalidButtonAction is returned when a button action is not recognised.
	ErrInvalidButtonAction = errors.New("device: invalid button action")

	// ErrSensorTypeMismatch is returned when a motion event targets an
	// occupancy sensor or vice versa.
	ErrSensorTypeMismatch = errors.New("device: sensor type mismatch")

	// ErrNotASwitch is returned when a button operation targets a non-switch device.
	ErrNotASwitch = errors.New("device: not a switch")

	// ErrNotALight is returned when a light operation targets a non-light device.
	ErrNotALight = errors.New("device: not a light")
)
