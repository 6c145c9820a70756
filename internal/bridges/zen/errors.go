package zen

import "errors"

// Domain errors for the ZenControl bridge package.
var (
	// ErrClosed is returned when an operation is attempted after Close.
	ErrClosed = errors.New("zen: client closed")

	// ErrTimeout is returned when a controller does not respond within
	// the command timeout.
	ErrTimeout = errors.New("zen: command timed out")

	// ErrInvalidFrame is returned when a datagram is too short to carry
	// a sequence number.
	ErrInvalidFrame = errors.New("zen: invalid frame")

	// ErrInvalidEvent is returned when a multicast datagram is not a
	// well-formed event.
	ErrInvalidEvent = errors.New("zen: invalid event")

	// ErrControllerNotReady is returned when a command targets a
	// controller that has not announced readiness.
	ErrControllerNotReady = errors.New("zen: controller not ready")

	// ErrCommandRejected is returned when a controller responds with an
	// error status.
	ErrCommandRejected = errors.New("zen: command rejected by controller")

	// ErrUnknownCommand is returned when Execute is given a command name
	// it does not recognise.
	ErrUnknownCommand = errors.New("zen: unknown command")
)
