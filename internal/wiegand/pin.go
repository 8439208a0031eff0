package wiegand

import (
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-access/internal/credential"
)

// keypadKeys are the characters a Wiegand keypad can produce.
const keypadKeys = "0123456789*#"

// Pin4InactivityTimeout is how long a Pin4BitStream waits after the last key
// before flushing the digits collected so far.
const Pin4InactivityTimeout = 1500 * time.Millisecond

// nibble reads the first four bits of the frame, first pulse as MSB.
func nibble(buf *Buffer) uint8 {
	var n uint8
	for i := 0; i < 4; i++ {
		n |= uint8(buf.Bit(i)) << (3 - i)
	}
	return n
}

// Pin4BitStream reads PIN digits sent as one 4-bit frame per key and flushes
// them once the keypad has been idle for Pin4InactivityTimeout.
//
// Key 10 is '*' and key 1 is '#'. Every other value is appended as its
// decimal digits.
type Pin4BitStream struct {
	buf        *Buffer
	logger     Logger
	lastUpdate time.Time
	digits     []byte
	flushed    string
	ready      bool
}

// NewPin4BitStream returns a 4-bit digit stream strategy over buf.
func NewPin4BitStream(buf *Buffer, logger Logger) *Pin4BitStream {
	return &Pin4BitStream{buf: buf, logger: orNoop(logger)}
}

// Timeout implements Strategy.
func (s *Pin4BitStream) Timeout(now time.Time) {
	count := s.buf.BitCount()
	if count == 0 {
		if now.Sub(s.lastUpdate) > Pin4InactivityTimeout && len(s.digits) > 0 {
			s.flushed = string(s.digits)
			s.digits = s.digits[:0]
			s.ready = true
			s.logger.Debug("pin digit stream flushed", "keys", len(s.flushed))
		}
		return
	}

	if count != 4 {
		s.logger.Warn("unexpected frame width for pin digit", "bits", count, "expected", 4)
		s.buf.Reset()
		return
	}

	s.lastUpdate = now
	switch n := nibble(s.buf); n {
	case 10:
		s.digits = append(s.digits, '*')
	case 1:
		s.digits = append(s.digits, '#')
	default:
		s.digits = strconv.AppendUint(s.digits, uint64(n), 10)
	}
	s.buf.Reset()
}

// Completed implements Strategy.
func (s *Pin4BitStream) Completed() bool { return s.ready }

// Pending returns the digits collected since the last flush.
func (s *Pin4BitStream) Pending() string { return string(s.digits) }

// Pin returns the last flushed sequence.
func (s *Pin4BitStream) Pin() string { return s.flushed }

// Result implements Strategy.
func (s *Pin4BitStream) Result() credential.Credential {
	return credential.FromPin(credential.PinCode{Code: s.flushed})
}

// Reset implements Strategy.
func (s *Pin4BitStream) Reset() {
	s.buf.Reset()
	s.flushed = ""
	s.ready = false
}

// PinStrategy reads one frame of 4 or 8 bits per key.
//
// In 8-bit mode the upper nibble carries the complement of the key, so it is
// inverted before decoding. Key 10 is '*' and key 11 is '#'. Entry completes
// on the end key or after PinTimeout without a key, provided at least one
// key was read.
type PinStrategy struct {
	buf        *Buffer
	logger     Logger
	bitsPerKey int
	timeout    time.Duration
	endKey     byte
	lastUpdate time.Time
	inputs     []byte
	ready      bool
}

// NewPinStrategy returns a PIN strategy. bitsPerKey must be 4 or 8.
func NewPinStrategy(buf *Buffer, bitsPerKey int, timeout time.Duration, endKey byte, logger Logger) *PinStrategy {
	if bitsPerKey != 4 && bitsPerKey != 8 {
		panic("wiegand: PinStrategy supports 4 or 8 bits per key")
	}
	return &PinStrategy{
		buf:        buf,
		logger:     orNoop(logger),
		bitsPerKey: bitsPerKey,
		timeout:    timeout,
		endKey:     endKey,
	}
}

func (s *PinStrategy) decodeKey() byte {
	n := nibble(s.buf)
	if s.bitsPerKey == 8 {
		n = ^n & 0x0F
	}
	switch n {
	case 10:
		return '*'
	case 11:
		return '#'
	default:
		return strconv.Itoa(int(n))[0]
	}
}

// Timeout implements Strategy.
func (s *PinStrategy) Timeout(now time.Time) {
	count := s.buf.BitCount()
	if count == 0 {
		if now.Sub(s.lastUpdate) > s.timeout {
			s.endOfInput()
		}
		return
	}

	if count != s.bitsPerKey {
		s.logger.Warn("unexpected frame width for pin key", "bits", count, "expected", s.bitsPerKey)
		s.Reset()
		return
	}

	s.lastUpdate = now
	key := s.decodeKey()
	if key == s.endKey {
		s.endOfInput()
	} else {
		s.inputs = append(s.inputs, key)
	}
	s.buf.Reset()
}

func (s *PinStrategy) endOfInput() {
	s.ready = len(s.inputs) > 0
}

// Completed implements Strategy.
func (s *PinStrategy) Completed() bool { return s.ready }

// Pin returns the keys read so far.
func (s *PinStrategy) Pin() string { return string(s.inputs) }

// Result implements Strategy.
func (s *PinStrategy) Result() credential.Credential {
	return credential.FromPin(credential.PinCode{Code: string(s.inputs)})
}

// Reset implements Strategy.
func (s *PinStrategy) Reset() {
	s.buf.Reset()
	s.ready = false
	s.inputs = s.inputs[:0]
	s.lastUpdate = time.Time{}
}

// BufferedPinFrameBits is the frame width of a keypad that sends the whole
// PIN at once.
const BufferedPinFrameBits = 26

// bufferedPinInvalid is the value such keypads send for a rejected entry.
const bufferedPinInvalid = 0xFFFF

// BufferedPinStrategy reads a PIN sent as one 26-bit frame. Bits 9 to 24
// hold the value, MSB first. The last bit is parity.
type BufferedPinStrategy struct {
	buf    *Buffer
	logger Logger
	pin    string
	ready  bool
}

// NewBufferedPinStrategy returns a buffered PIN strategy over buf.
func NewBufferedPinStrategy(buf *Buffer, logger Logger) *BufferedPinStrategy {
	return &BufferedPinStrategy{buf: buf, logger: orNoop(logger)}
}

// Timeout implements Strategy.
func (s *BufferedPinStrategy) Timeout(time.Time) {
	count := s.buf.BitCount()
	if count == 0 || s.ready {
		return
	}
	if count != BufferedPinFrameBits {
		s.logger.Warn("unexpected frame width for buffered pin", "bits", count, "expected", BufferedPinFrameBits)
		s.Reset()
		return
	}

	var n uint32
	for i := 9; i < 25; i++ {
		n |= uint32(s.buf.Bit(i)) << (15 - (i - 9))
	}
	if n == bufferedPinInvalid {
		s.logger.Warn("invalid pin code")
		s.buf.Reset()
		return
	}
	s.pin = strconv.FormatUint(uint64(n), 10)
	s.ready = true
}

// Completed implements Strategy.
func (s *BufferedPinStrategy) Completed() bool { return s.ready }

// Pin returns the decoded PIN.
func (s *BufferedPinStrategy) Pin() string { return s.pin }

// Result implements Strategy.
func (s *BufferedPinStrategy) Result() credential.Credential {
	return credential.FromPin(credential.PinCode{Code: s.pin})
}

// Reset implements Strategy.
func (s *BufferedPinStrategy) Reset() {
	s.buf.Reset()
	s.pin = ""
	s.ready = false
}
