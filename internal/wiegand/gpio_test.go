package wiegand

import (
	"context"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestGPIOSource_ForwardsFallingEdges(t *testing.T) {
	d0 := &gpiotest.Pin{N: "D0", EdgesChan: make(chan gpio.Level)}
	d1 := &gpiotest.Pin{N: "D1", EdgesChan: make(chan gpio.Level)}

	src, err := NewGPIOSource(d0, d1)
	if err != nil {
		t.Fatalf("NewGPIOSource() error = %v", err)
	}
	if d0.P != gpio.PullUp || d1.P != gpio.PullUp {
		t.Errorf("pulls = %s/%s, want PullUp", d0.P, d1.P)
	}

	ctx, cancel := context.WithCancel(context.Background())
	pulses := make(chan Bit, 4)
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, pulses) }()

	d1.EdgesChan <- gpio.Low
	d0.EdgesChan <- gpio.Low
	// A rising edge is not a pulse.
	d1.EdgesChan <- gpio.High

	want := []Bit{Bit1, Bit0}
	for i, w := range want {
		select {
		case got := <-pulses:
			if got != w {
				t.Errorf("pulse %d = %d, want %d", i, got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("pulse %d not received", i)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if len(pulses) != 0 {
		t.Errorf("unexpected extra pulses: %d", len(pulses))
	}
}

func TestNewGPIOSource_RequiresBothLines(t *testing.T) {
	if _, err := NewGPIOSource(nil, &gpiotest.Pin{N: "D1", EdgesChan: make(chan gpio.Level)}); err == nil {
		t.Error("NewGPIOSource() with a nil pin should fail")
	}
}

// stubSubscriber records the handler registered for a topic.
type stubSubscriber struct {
	topic   string
	handler func(topic string, payload []byte) error
}

func (s *stubSubscriber) Subscribe(topic string, _ byte, handler func(topic string, payload []byte) error) error {
	s.topic = topic
	s.handler = handler
	return nil
}

func TestRemoteSource(t *testing.T) {
	sub := &stubSubscriber{}
	src := NewRemoteSource(sub, "graylogic/access/pulses/r1", 1)
	pulses := make(chan Bit, 8)

	if err := src.Start(context.Background(), pulses); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if sub.topic != "graylogic/access/pulses/r1" {
		t.Errorf("topic = %q", sub.topic)
	}
	if err := sub.handler(sub.topic, []byte("1010")); err != nil {
		t.Fatalf("handler() error = %v", err)
	}
	if len(pulses) != 4 {
		t.Errorf("pulses = %d, want 4", len(pulses))
	}
	if err := sub.handler(sub.topic, []byte("12")); err == nil {
		t.Error("handler() should reject a bad payload")
	}
}
