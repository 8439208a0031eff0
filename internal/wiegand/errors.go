package wiegand

import "errors"

// Domain errors for Wiegand decoding.
var (
	// ErrBufferOverflow is the panic value raised when a frame is wider than
	// the buffer. It means the reader and its configuration disagree.
	ErrBufferOverflow = errors.New("wiegand: buffer overflow")

	// ErrInvalidMaxBits is returned when a buffer width is outside 1..MaxBufferBits.
	ErrInvalidMaxBits = errors.New("wiegand: invalid buffer width")

	// ErrInvalidMode is returned for an unknown reader mode.
	ErrInvalidMode = errors.New("wiegand: invalid reader mode")

	// ErrInvalidEndKey is returned when the PIN end key is not a keypad character.
	ErrInvalidEndKey = errors.New("wiegand: invalid pin end key")
)
