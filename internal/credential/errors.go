package credential

import "errors"

// Domain errors for credentials.
var (
	// ErrInvalidCardID is returned when a card id is not colon-separated hex bytes.
	ErrInvalidCardID = errors.New("credential: invalid card id")

	// ErrInvalidNbBits is returned when a card's bit count is not strictly positive.
	ErrInvalidNbBits = errors.New("credential: invalid number of bits")

	// ErrInvalidPin is returned when a PIN code is empty or holds non-keypad characters.
	ErrInvalidPin = errors.New("credential: invalid pin code")
)

// Source pointers used in validation errors.
const (
	PointerCardID = "data/attributes/cardId"
	PointerNbBits = "data/attributes/nbBits"
	PointerPin    = "data/attributes/code"
)
