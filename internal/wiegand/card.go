package wiegand

import (
	"time"

	"github.com/nerrad567/gray-logic-access/internal/credential"
)

// CardStrategy treats every frame as one card read. Cards arrive as a single
// burst, so the first quiet tick with bits pending completes the read.
type CardStrategy struct {
	buf    *Buffer
	logger Logger
	cardID string
	nbBits int
	ready  bool
}

// NewCardStrategy returns a full-frame card strategy over buf.
func NewCardStrategy(buf *Buffer, logger Logger) *CardStrategy {
	return &CardStrategy{buf: buf, logger: orNoop(logger)}
}

// Timeout implements Strategy.
func (s *CardStrategy) Timeout(time.Time) {
	count := s.buf.BitCount()
	if count == 0 {
		return
	}
	s.cardID = credential.FormatCardID(s.buf.Bytes(), count)
	s.nbBits = count
	s.ready = true
	s.logger.Debug("card frame read", "card_id", s.cardID, "nb_bits", count)
}

// Completed implements Strategy.
func (s *CardStrategy) Completed() bool { return s.ready }

// Card returns the last card read.
func (s *CardStrategy) Card() credential.RFIDCard {
	return credential.RFIDCard{CardID: s.cardID, NbBits: s.nbBits}
}

// Result implements Strategy.
func (s *CardStrategy) Result() credential.Credential {
	return credential.FromCard(s.Card())
}

// Reset implements Strategy.
func (s *CardStrategy) Reset() {
	s.buf.Reset()
	s.cardID = ""
	s.nbBits = 0
	s.ready = false
}
