package wiegand

import (
	"context"
	"fmt"
)

// Subscriber is the part of the MQTT client a RemoteSource needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
}

// RemoteSource feeds pulses received over MQTT into a reader. Each message
// payload is a string of '0' and '1' characters, one per pulse, in arrival
// order. This serves readers wired to another host and replayed traces.
type RemoteSource struct {
	sub   Subscriber
	topic string
	qos   byte
}

// NewRemoteSource returns a source listening on topic.
func NewRemoteSource(sub Subscriber, topic string, qos byte) *RemoteSource {
	return &RemoteSource{sub: sub, topic: topic, qos: qos}
}

// Start subscribes and forwards pulses until ctx is cancelled.
// Messages that arrive after cancellation are dropped.
func (s *RemoteSource) Start(ctx context.Context, pulses chan<- Bit) error {
	handler := func(_ string, payload []byte) error {
		bits, err := ParsePulses(payload)
		if err != nil {
			return err
		}
		for _, b := range bits {
			select {
			case pulses <- b:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}
	if err := s.sub.Subscribe(s.topic, s.qos, handler); err != nil {
		return fmt.Errorf("subscribing to %s: %w", s.topic, err)
	}
	return nil
}

// ParsePulses decodes a '0'/'1' pulse string. Whitespace is ignored.
func ParsePulses(payload []byte) ([]Bit, error) {
	bits := make([]Bit, 0, len(payload))
	for i, c := range payload {
		switch c {
		case '0':
			bits = append(bits, Bit0)
		case '1':
			bits = append(bits, Bit1)
		case ' ', '\n', '\r', '\t':
		default:
			return nil, fmt.Errorf("wiegand: invalid pulse %q at offset %d", c, i)
		}
	}
	return bits, nil
}
