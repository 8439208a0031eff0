package wiegand

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how a reader interprets its frames.
type Mode string

// Reader modes.
const (
	ModeSimpleWiegand      Mode = "SIMPLE_WIEGAND"
	ModePin4Bits           Mode = "WIEGAND_PIN_4BITS"
	ModePin4BitStream      Mode = "WIEGAND_PIN_4BITS_STREAM"
	ModePin8Bits           Mode = "WIEGAND_PIN_8BITS"
	ModePinBuffered        Mode = "WIEGAND_PIN_BUFFERED"
	ModeCardAndPin4Bits    Mode = "WIEGAND_CARD_PIN_4BITS"
	ModeCardAndPin8Bits    Mode = "WIEGAND_CARD_PIN_8BITS"
	ModeCardAndPinBuffered Mode = "WIEGAND_CARD_PIN_BUFFERED"
	ModeAutodetect         Mode = "AUTODETECT"
)

// Defaults for PIN entry.
const (
	DefaultPinTimeout = 2500 * time.Millisecond
	DefaultPinEndKey  = '#'
)

var allModes = []Mode{
	ModeSimpleWiegand,
	ModePin4Bits,
	ModePin4BitStream,
	ModePin8Bits,
	ModePinBuffered,
	ModeCardAndPin4Bits,
	ModeCardAndPin8Bits,
	ModeCardAndPinBuffered,
	ModeAutodetect,
}

// Modes returns every supported mode.
func Modes() []Mode {
	out := make([]Mode, len(allModes))
	copy(out, allModes)
	return out
}

// ParseMode returns the Mode named by s, case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	for _, known := range allModes {
		if m == known {
			return true
		}
	}
	return false
}

// StrategyOptions tunes the strategies built by NewStrategy.
type StrategyOptions struct {
	// PinTimeout ends PIN entry after this much keypad inactivity, and bounds
	// the wait for a PIN after a card in the card-and-PIN modes.
	PinTimeout time.Duration

	// PinEndKey terminates PIN entry early.
	PinEndKey byte

	Logger Logger
}

func (o StrategyOptions) withDefaults() StrategyOptions {
	if o.PinTimeout <= 0 {
		o.PinTimeout = DefaultPinTimeout
	}
	if o.PinEndKey == 0 {
		o.PinEndKey = DefaultPinEndKey
	}
	o.Logger = orNoop(o.Logger)
	return o
}

// NewStrategy builds the strategy for mode over buf.
func NewStrategy(mode Mode, buf *Buffer, opts StrategyOptions) (Strategy, error) {
	opts = opts.withDefaults()
	if !strings.ContainsRune(keypadKeys, rune(opts.PinEndKey)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndKey, opts.PinEndKey)
	}

	switch mode {
	case ModeSimpleWiegand:
		return NewCardStrategy(buf, opts.Logger), nil
	case ModePin4Bits:
		return NewPinStrategy(buf, 4, opts.PinTimeout, opts.PinEndKey, opts.Logger), nil
	case ModePin4BitStream:
		// Fixed framing: 1500ms flush, nibble 1 is '#'. End key and
		// pin timeout do not apply.
		return NewPin4BitStream(buf, opts.Logger), nil
	case ModePin8Bits:
		return NewPinStrategy(buf, 8, opts.PinTimeout, opts.PinEndKey, opts.Logger), nil
	case ModePinBuffered:
		return NewBufferedPinStrategy(buf, opts.Logger), nil
	case ModeCardAndPin4Bits:
		pin := NewPinStrategy(buf, 4, opts.PinTimeout, opts.PinEndKey, opts.Logger)
		return NewCardAndPinStrategy(buf, pin, opts.PinTimeout, opts.Logger), nil
	case ModeCardAndPin8Bits:
		pin := NewPinStrategy(buf, 8, opts.PinTimeout, opts.PinEndKey, opts.Logger)
		return NewCardAndPinStrategy(buf, pin, opts.PinTimeout, opts.Logger), nil
	case ModeCardAndPinBuffered:
		pin := NewBufferedPinStrategy(buf, opts.Logger)
		return NewCardAndPinStrategy(buf, pin, opts.PinTimeout, opts.Logger), nil
	case ModeAutodetect:
		return NewAutodetectStrategy(buf, opts.Logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}
