package wiegand

import (
	"time"

	"github.com/nerrad567/gray-logic-access/internal/credential"
)

// CardAndPinStrategy requires a card followed by a PIN. If the PIN is not
// complete within the delay after the card, the attempt is dropped.
type CardAndPinStrategy struct {
	buf         *Buffer
	logger      Logger
	card        *CardStrategy
	pin         pinReader
	delay       time.Duration
	readingCard bool
	cardReadAt  time.Time
	ready       bool
}

// NewCardAndPinStrategy combines a card strategy over buf with pin.
func NewCardAndPinStrategy(buf *Buffer, pin pinReader, delay time.Duration, logger Logger) *CardAndPinStrategy {
	return &CardAndPinStrategy{
		buf:         buf,
		logger:      orNoop(logger),
		card:        NewCardStrategy(buf, logger),
		pin:         pin,
		delay:       delay,
		readingCard: true,
	}
}

// Timeout implements Strategy.
func (s *CardAndPinStrategy) Timeout(now time.Time) {
	if s.readingCard {
		s.card.Timeout(now)
		if s.card.Completed() {
			s.logger.Debug("card read, waiting for pin", "card_id", s.card.cardID)
			s.readingCard = false
			s.cardReadAt = now
			s.buf.Reset()
		}
		return
	}

	if now.Sub(s.cardReadAt) > s.delay {
		s.logger.Debug("pin entry too slow, dropping card")
		s.Reset()
		return
	}
	s.pin.Timeout(now)
	if s.pin.Completed() {
		s.ready = true
	}
}

// Completed implements Strategy.
func (s *CardAndPinStrategy) Completed() bool { return s.ready }

// Result implements Strategy.
func (s *CardAndPinStrategy) Result() credential.Credential {
	return credential.FromCardAndPin(s.card.Card(), credential.PinCode{Code: s.pin.Pin()})
}

// Reset implements Strategy.
func (s *CardAndPinStrategy) Reset() {
	s.ready = false
	s.readingCard = true
	s.cardReadAt = time.Time{}
	s.card.Reset()
	s.pin.Reset()
}

// Autodetect timings.
const (
	autodetectPinTimeout = 2000 * time.Millisecond
	autodetectIdle       = 3000 * time.Millisecond
)

// AutodetectStrategy accepts a card, a 4-bit PIN, or both, without knowing in
// advance which the user will present.
//
// Four-bit frames are keys; anything else is a card. A PIN completes on '#'
// or two seconds after the last key. A card alone completes after three
// seconds with neither keys nor cards.
type AutodetectStrategy struct {
	buf         *Buffer
	logger      Logger
	card        *CardStrategy
	pin         *PinStrategy
	readingPin  bool
	cardReadAt  time.Time
	lastPinRead time.Time
	ready       bool
}

// NewAutodetectStrategy returns an autodetect strategy over buf.
func NewAutodetectStrategy(buf *Buffer, logger Logger) *AutodetectStrategy {
	return &AutodetectStrategy{
		buf:    buf,
		logger: orNoop(logger),
		card:   NewCardStrategy(buf, logger),
		pin:    NewPinStrategy(buf, 4, autodetectPinTimeout, '#', logger),
	}
}

// Timeout implements Strategy.
func (s *AutodetectStrategy) Timeout(now time.Time) {
	switch count := s.buf.BitCount(); {
	case count == 4:
		s.readingPin = true
		s.pin.Timeout(now)
		s.lastPinRead = now
		s.checkPin()
	case count > 0:
		s.card.Timeout(now)
		s.cardReadAt = now
		if s.card.Completed() {
			s.logger.Debug("card read", "card_id", s.card.cardID)
			s.buf.Reset()
		}
	}

	if s.readingPin && now.Sub(s.lastPinRead) > autodetectPinTimeout {
		s.pin.Timeout(now)
		s.checkPin()
	}

	if now.Sub(s.cardReadAt) > autodetectIdle && now.Sub(s.lastPinRead) > autodetectIdle {
		if s.card.Completed() && s.card.nbBits > 0 {
			s.ready = true
		}
	}
}

func (s *AutodetectStrategy) checkPin() {
	if s.pin.Completed() {
		s.ready = true
		s.readingPin = false
		s.buf.Reset()
	}
}

// Completed implements Strategy.
func (s *AutodetectStrategy) Completed() bool { return s.ready }

// Result implements Strategy.
func (s *AutodetectStrategy) Result() credential.Credential {
	withCard := s.card.Completed() && s.card.nbBits > 0
	withPin := s.pin.Completed()

	switch {
	case withCard && withPin:
		return credential.FromCardAndPin(s.card.Card(), credential.PinCode{Code: s.pin.Pin()})
	case withPin:
		return credential.FromPin(credential.PinCode{Code: s.pin.Pin()})
	default:
		return credential.FromCard(s.card.Card())
	}
}

// Reset implements Strategy.
func (s *AutodetectStrategy) Reset() {
	s.ready = false
	s.readingPin = false
	s.cardReadAt = time.Time{}
	s.lastPinRead = time.Time{}
	s.card.Reset()
	s.pin.Reset()
}
