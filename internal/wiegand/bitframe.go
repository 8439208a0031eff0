package wiegand

import "fmt"

// Buffer widths in bits.
const (
	DefaultBufferBits = 64
	MaxBufferBits     = 256
)

// Bit is one Wiegand pulse: a pulse on D0 is 0, a pulse on D1 is 1.
type Bit uint8

// Pulse values.
const (
	Bit0 Bit = 0
	Bit1 Bit = 1
)

// Buffer accumulates pulses into a frame, first pulse in the most
// significant bit of the first byte.
//
// A Buffer has exactly one owner and is not safe for concurrent use.
type Buffer struct {
	data    []byte
	counter int
	maxBits int
}

// NewBuffer returns an empty buffer holding up to maxBits pulses.
// Zero selects DefaultBufferBits.
func NewBuffer(maxBits int) (*Buffer, error) {
	if maxBits == 0 {
		maxBits = DefaultBufferBits
	}
	if maxBits < 0 || maxBits > MaxBufferBits {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrInvalidMaxBits, maxBits, MaxBufferBits)
	}
	return &Buffer{
		data:    make([]byte, (maxBits+7)/8),
		maxBits: maxBits,
	}, nil
}

// IngestPulse stores bit at the current position and advances the counter.
//
// Ingesting into a full buffer panics with an error wrapping
// ErrBufferOverflow. The caller must discard the frame before that happens.
func (b *Buffer) IngestPulse(bit Bit) {
	if b.counter >= b.maxBits {
		panic(fmt.Errorf("%w: frame exceeds %d bits", ErrBufferOverflow, b.maxBits))
	}
	if bit != Bit0 {
		b.data[b.counter/8] |= 1 << (7 - uint(b.counter%8))
	}
	b.counter++
}

// Reset discards the current frame.
func (b *Buffer) Reset() {
	clear(b.data)
	b.counter = 0
}

// BitCount returns how many pulses the current frame holds.
func (b *Buffer) BitCount() int {
	return b.counter
}

// Capacity returns the maximum frame width in bits.
func (b *Buffer) Capacity() int {
	return b.maxBits
}

// Bit returns the i-th received bit of the current frame.
func (b *Buffer) Bit(i int) Bit {
	if i < 0 || i >= b.counter {
		return Bit0
	}
	return Bit((b.data[i/8] >> (7 - uint(i%8))) & 0x01)
}

// Bytes returns a copy of the bytes covering the current frame.
// The last byte is zero-padded on the right.
func (b *Buffer) Bytes() []byte {
	n := (b.counter + 7) / 8
	out := make([]byte, n)
	copy(out, b.data[:n])
	return out
}
