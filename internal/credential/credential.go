package credential

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-access/internal/validation"
)

// Kind tags the credential variants a reader can produce.
type Kind string

// Credential kinds.
const (
	KindRFIDCard   Kind = "rfid_card"
	KindPinCode    Kind = "pin_code"
	KindCardAndPin Kind = "card_and_pin"
)

// PinCode is a code typed on a reader keypad.
type PinCode struct {
	Code string `json:"code"`
}

// pinAlphabet is what a Wiegand keypad can send.
const pinAlphabet = "0123456789*#"

// NewPinCode validates and returns a PIN code.
func NewPinCode(code string) (PinCode, error) {
	p := PinCode{Code: code}
	if err := p.Validate(); err != nil {
		return PinCode{}, err
	}
	return p, nil
}

// Validate checks the code is non-empty and keypad-only.
func (p PinCode) Validate() error {
	if p.Code == "" {
		return validation.New(PointerPin, "PIN code must be non-empty", ErrInvalidPin)
	}
	if strings.Trim(p.Code, pinAlphabet) != "" {
		return validation.New(PointerPin, "PIN code may only contain 0-9, * and #", ErrInvalidPin)
	}
	return nil
}

// Credential is a closed variant over the credential kinds.
// Exactly the fields matching Kind are meaningful.
type Credential struct {
	Kind Kind      `json:"kind"`
	Card *RFIDCard `json:"card,omitempty"`
	Pin  *PinCode  `json:"pin,omitempty"`
}

// FromCard wraps a card.
func FromCard(c RFIDCard) Credential {
	return Credential{Kind: KindRFIDCard, Card: &c}
}

// FromPin wraps a PIN code.
func FromPin(p PinCode) Credential {
	return Credential{Kind: KindPinCode, Pin: &p}
}

// FromCardAndPin wraps a card presented together with a PIN.
func FromCardAndPin(c RFIDCard, p PinCode) Credential {
	return Credential{Kind: KindCardAndPin, Card: &c, Pin: &p}
}

// Validate checks the variant is well formed and its members are valid.
func (c Credential) Validate() error {
	switch c.Kind {
	case KindRFIDCard:
		if c.Card == nil {
			return fmt.Errorf("%w: card credential without card", ErrInvalidCardID)
		}
		return c.Card.Validate()
	case KindPinCode:
		if c.Pin == nil {
			return fmt.Errorf("%w: pin credential without code", ErrInvalidPin)
		}
		return c.Pin.Validate()
	case KindCardAndPin:
		if c.Card == nil || c.Pin == nil {
			return fmt.Errorf("%w: card-and-pin credential is incomplete", ErrInvalidPin)
		}
		if err := c.Card.Validate(); err != nil {
			return err
		}
		return c.Pin.Validate()
	default:
		return fmt.Errorf("credential: unknown kind %q", c.Kind)
	}
}

// String renders the credential without exposing PIN digits.
func (c Credential) String() string {
	switch c.Kind {
	case KindRFIDCard:
		return fmt.Sprintf("card %s/%d", c.Card.CardID, c.Card.NbBits)
	case KindPinCode:
		return fmt.Sprintf("pin (%d keys)", len(c.Pin.Code))
	case KindCardAndPin:
		return fmt.Sprintf("card %s/%d + pin (%d keys)", c.Card.CardID, c.Card.NbBits, len(c.Pin.Code))
	default:
		return "unknown credential"
	}
}
