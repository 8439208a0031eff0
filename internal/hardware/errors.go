package hardware

import "errors"

// Domain errors for the hardware package.
//
// Validation failures are returned as *validation.Error values wrapping one
// of these sentinels, so both of the following work:
//
//	if errors.Is(err, hardware.ErrNameAlreadyUsed) { ... }
//	if list, ok := validation.Collect(err); ok { ... }
var (
	// ErrNotFound is returned when a device ID or name does not exist.
	ErrNotFound = errors.New("hardware: not found")

	// ErrNameAlreadyUsed is returned when another device already has the name.
	ErrNameAlreadyUsed = errors.New("hardware: name already used")

	// ErrEmptyName is returned when a device name is blank.
	ErrEmptyName = errors.New("hardware: empty name")

	// ErrInvalidDevice is returned when subtype attributes are invalid.
	ErrInvalidDevice = errors.New("hardware: invalid device")

	// ErrInvalidReference is returned when a device points at a missing device
	// or at a device of the wrong class.
	ErrInvalidReference = errors.New("hardware: invalid reference")

	// ErrVersionConflict is returned when an update was based on a stale version.
	ErrVersionConflict = errors.New("hardware: version conflict")

	// ErrDeviceInUse is returned when deleting a device another device refers to.
	ErrDeviceInUse = errors.New("hardware: device in use")

	// ErrUnknownClass is returned when decoding a device of an unknown class.
	ErrUnknownClass = errors.New("hardware: unknown device class")
)

// Source pointers used in validation errors.
const (
	PointerName  = "data/attributes/name"
	PointerClass = "data/attributes/class"
	pointerSpec  = "data/attributes/spec/"
)
