package driver

import (
	"context"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/nerrad567/gray-logic-access/internal/hardware"
	"github.com/nerrad567/gray-logic-access/internal/hardware/facade"
)

const testTimeout = time.Second

// recordingPin is a MemoryPin that remembers every write.
type recordingPin struct {
	MemoryPin
	mu     sync.Mutex
	writes []gpio.Level
}

func (p *recordingPin) Out(l gpio.Level) error {
	p.mu.Lock()
	p.writes = append(p.writes, l)
	p.mu.Unlock()
	return p.MemoryPin.Out(l)
}

func (p *recordingPin) writeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.writes)
}

func (p *recordingPin) reset() {
	p.mu.Lock()
	p.writes = nil
	p.mu.Unlock()
}

func newTransport(t *testing.T) *facade.LocalTransport {
	t.Helper()
	tr := facade.NewLocalTransport()
	t.Cleanup(func() { tr.Close() })
	return tr
}

// addGPIO registers an output GPIO actor called name on a recordingPin.
func addGPIO(t *testing.T, tr *facade.LocalTransport, name string) *recordingPin {
	t.Helper()
	pin := &recordingPin{}
	g, err := NewGPIO(name, pin, hardware.GPIOSpec{Direction: hardware.DirectionOut})
	if err != nil {
		t.Fatalf("NewGPIO() error = %v", err)
	}
	if err := tr.Handle(name, g); err != nil {
		t.Fatalf("Handle(%s) error = %v", name, err)
	}
	pin.reset()
	return pin
}

// addBlinker registers a Blinker called name over a new GPIO called name+"-gpio".
func addBlinker(t *testing.T, tr *facade.LocalTransport, name string) (*Blinker, *recordingPin) {
	t.Helper()
	pin := addGPIO(t, tr, name+"-gpio")
	b := NewBlinker(name, tr, name+"-gpio", testTimeout, time.Second, 100*time.Millisecond)
	t.Cleanup(b.Close)
	if err := tr.Handle(name, b); err != nil {
		t.Fatalf("Handle(%s) error = %v", name, err)
	}
	return b, pin
}

func request(t *testing.T, h facade.Handler, frames ...string) string {
	t.Helper()
	return h.Handle(context.Background(), frames)
}

// eventually polls cond until it holds or a second passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
