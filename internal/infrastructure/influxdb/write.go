package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by this package.
const (
	MeasurementAccessEvent    = "access_events"
	MeasurementCommandLatency = "command_latency"
)

// AccessEvent is one credential presented at a reader.
type AccessEvent struct {
	Reader string
	Kind   string // card, pin or card_and_pin
	Format string // wiegand26, wiegand34, raw, pin
	Bits   int
	Number uint64
	At     time.Time
}

// WriteAccessEvent records a decoded credential.
//
// The card number is a field, not a tag, to keep series cardinality bounded
// by the number of readers.
//
// Example:
//
//	client.WriteAccessEvent(influxdb.AccessEvent{Reader: "front", Kind: "card", Format: "wiegand26", Bits: 26, Number: 103})
func (c *Client) WriteAccessEvent(ev AccessEvent) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(accessEventPoint(ev))
}

// WriteCommandLatency records how long a device took to acknowledge a
// command and whether it accepted it.
func (c *Client) WriteCommandLatency(device, verb string, ok bool, elapsed time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(commandLatencyPoint(device, verb, ok, elapsed, time.Now()))
}

// WritePoint writes a custom point with full control over tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func accessEventPoint(ev AccessEvent) *write.Point {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return write.NewPoint(
		MeasurementAccessEvent,
		map[string]string{
			"reader": ev.Reader,
			"kind":   ev.Kind,
			"format": ev.Format,
		},
		map[string]interface{}{
			"bits":   ev.Bits,
			"number": ev.Number,
		},
		at,
	)
}

func commandLatencyPoint(device, verb string, ok bool, elapsed time.Duration, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementCommandLatency,
		map[string]string{
			"device": device,
			"verb":   verb,
		},
		map[string]interface{}{
			"ok":         ok,
			"elapsed_ms": float64(elapsed) / float64(time.Millisecond),
		},
		at,
	)
}
