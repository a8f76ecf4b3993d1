package light

import "errors"

var (
	// ErrUnavailable indicates the session lost contact with the device
	// and needs a fresh Setup (or the next command to reconnect lazily).
	ErrUnavailable = errors.New("device unavailable")

	// ErrDetectionFailed indicates no dialect produced a valid state
	// response during setup.
	ErrDetectionFailed = errors.New("protocol dialect detection failed")

	// ErrTimeout indicates a pending request expired without a matching
	// response. The device may still have applied the command.
	ErrTimeout = errors.New("response timed out")

	// ErrPowerChangeFailed indicates the power-retry protocol exhausted
	// every attempt without a usable confirmation. Non-fatal; the caller
	// may retry.
	ErrPowerChangeFailed = errors.New("power state change unconfirmed")

	// ErrUnsupported indicates the command requires a capability this
	// model lacks. Rejected before any I/O.
	ErrUnsupported = errors.New("unsupported by this model")

	// ErrClosed indicates the session was stopped by the caller.
	ErrClosed = errors.New("session closed")
)
