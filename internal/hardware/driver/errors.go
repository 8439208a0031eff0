package driver

import "errors"

var (
	// ErrPinUnavailable is returned when a GPIO number cannot be opened.
	ErrPinUnavailable = errors.New("driver: gpio pin unavailable")

	// ErrNotConnected is returned by external server operations before CONNECT.
	ErrNotConnected = errors.New("driver: external server not connected")

	// ErrUnresolvedDevice is returned when a device references an ID the
	// manager was not given.
	ErrUnresolvedDevice = errors.New("driver: unresolved device reference")
)
