package credential

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-access/internal/validation"
)

// Wiegand frame widths with a known integer layout.
const (
	Wiegand26 = 26
	Wiegand34 = 34
)

// cardIDPattern accepts "aa", "aa:bb", "aa:bb:cc:11" and so on.
var cardIDPattern = regexp.MustCompile(`^[0-9A-Fa-f]{2}(:[0-9A-Fa-f]{2})*$`)

// RFIDCard is a card read off a Wiegand (or compatible) reader.
//
// CardID is the raw frame rendered as colon-separated hex bytes, most
// significant byte first, and NbBits is how many bits the reader actually
// clocked in. The last byte is zero-padded on the right when NbBits is not a
// multiple of 8.
type RFIDCard struct {
	CardID string `json:"card_id"`
	NbBits int    `json:"nb_bits"`
}

// NewRFIDCard validates and returns a card.
func NewRFIDCard(cardID string, nbBits int) (RFIDCard, error) {
	c := RFIDCard{CardID: cardID, NbBits: nbBits}
	if err := c.Validate(); err != nil {
		return RFIDCard{}, err
	}
	return c, nil
}

// Validate checks both fields and reports every failure.
func (c RFIDCard) Validate() error {
	var errs validation.List
	if err := ValidateCardID(c.CardID); err != nil {
		errs = append(errs, err.(*validation.Error)) //nolint:errorlint // concrete type from this package
	}
	if err := ValidateNbBits(c.NbBits); err != nil {
		errs = append(errs, err.(*validation.Error)) //nolint:errorlint // concrete type from this package
	}
	return errs.Err()
}

// ValidateCardID checks the aa:bb:cc:11 format.
func ValidateCardID(cardID string) error {
	if !cardIDPattern.MatchString(cardID) {
		return validation.New(PointerCardID, "Card id must have aa:bb:cc:11 format.", ErrInvalidCardID)
	}
	return nil
}

// ValidateNbBits checks that the bit count is strictly positive.
func ValidateNbBits(nbBits int) error {
	if nbBits <= 0 {
		return validation.New(PointerNbBits, "The number of bits must be > 0", ErrInvalidNbBits)
	}
	return nil
}

// ToRawInt returns the frame as an integer with byte-alignment padding removed.
//
// The hex digits are read as one big-endian uint64 and shifted right by
// (64 - NbBits) mod 8. Frames wider than 64 bits do not fit and return an
// error, as does an id that fails validation.
func (c RFIDCard) ToRawInt() (uint64, error) {
	if err := ValidateCardID(c.CardID); err != nil {
		return 0, err
	}
	hex := strings.ReplaceAll(c.CardID, ":", "")
	raw, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s does not fit in 64 bits", ErrInvalidCardID, c.CardID)
	}
	trailingZero := ((64-c.NbBits)%8 + 8) % 8
	return raw >> uint(trailingZero), nil
}

// ToInt returns the card number using the layout matching NbBits.
//
// Wiegand 26 drops the trailing parity bit and keeps 16 bits. Wiegand 34
// drops the trailing parity bit and keeps 24 bits. Any other width is the raw
// integer.
func (c RFIDCard) ToInt() (uint64, error) {
	raw, err := c.ToRawInt()
	if err != nil {
		return 0, err
	}
	switch c.NbBits {
	case Wiegand26:
		return (raw >> 1) & 0xFFFF, nil
	case Wiegand34:
		return (raw >> 1) & 0xFFFFFF, nil
	default:
		return raw, nil
	}
}

// HasFormat reports whether ToInt applies a frame layout instead of the raw value.
func (c RFIDCard) HasFormat() bool {
	return c.NbBits == Wiegand26 || c.NbBits == Wiegand34
}

// FormatCardID renders the first ceil(nbBits/8) bytes of frame as "aa:bb:..".
func FormatCardID(frame []byte, nbBits int) string {
	n := (nbBits + 7) / 8
	if n > len(frame) {
		n = len(frame)
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(':')
		}
		fmt.Fprintf(&b, "%02x", frame[i])
	}
	return b.String()
}
