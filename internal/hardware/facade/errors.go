package facade

import "errors"

// Domain errors for the command facade.
var (
	// ErrTimeout is returned when no reply arrived within the command timeout.
	ErrTimeout = errors.New("facade: command timed out")

	// ErrProtocolViolation is the panic value raised when a device answers a
	// command with something other than OK or KO.
	ErrProtocolViolation = errors.New("facade: protocol violation")

	// ErrNoResponder is returned when nothing serves the target device.
	ErrNoResponder = errors.New("facade: no responder for device")

	// ErrRejected is returned by queries the device answered with KO.
	ErrRejected = errors.New("facade: rejected by device")

	// ErrClosed is returned when the transport has been closed.
	ErrClosed = errors.New("facade: transport closed")
)
