// Package wiegand decodes the pulse trains of Wiegand card readers and
// keypads into credentials.
//
// # Pipeline
//
//	D0/D1 edges ──▶ Reader.Pulses() ──▶ Buffer ──▶ Strategy ──▶ EventSink
//	 (GPIOSource,                       (bits)    (on quiet     (access
//	  RemoteSource)                                 ticks)       dispatcher)
//
// A Reader owns one Buffer and one Strategy and runs them on a single
// goroutine, so neither needs locking. Pulses are appended to the Buffer as
// they arrive. Once the data lines have been quiet for the tick interval the
// Strategy's Timeout is called; when it reports Completed the credential is
// sent to the sink and the Strategy is reset.
//
// # Strategies
//
// The Mode of a reader picks its Strategy:
//
//   - SIMPLE_WIEGAND: every frame is a card (CardStrategy)
//   - WIEGAND_PIN_4BITS / WIEGAND_PIN_8BITS: one frame per key (PinStrategy)
//   - WIEGAND_PIN_4BITS_STREAM: 4-bit keys flushed on inactivity (Pin4BitStream)
//   - WIEGAND_PIN_BUFFERED: the whole PIN in one 26-bit frame
//   - WIEGAND_CARD_PIN_*: a card followed by a PIN
//   - AUTODETECT: card, PIN, or both
//
// Pin4BitStream is the plain digit stream used by older keypads: it flushes
// whatever was typed after 1.5s of inactivity and reads nibble 1 as '#'.
//
// A frame wider than the Buffer is a configuration error. IngestPulse panics
// with ErrBufferOverflow, and the Reader recovers, logs, and drops the frame.
package wiegand
