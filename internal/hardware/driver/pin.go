package driver

import (
	"fmt"
	"strconv"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Pin is the part of a GPIO line an actor drives. periph's gpio.PinIO
// satisfies it.
type Pin interface {
	Out(l gpio.Level) error
	Read() gpio.Level
}

// PinOpener opens GPIO number for the given direction.
type PinOpener func(number int, output bool) (Pin, error)

// MemoryPin is a GPIO line held in memory, for hosts without GPIO and for
// tests.
type MemoryPin struct {
	mu    sync.Mutex
	level gpio.Level
}

// Out implements Pin.
func (p *MemoryPin) Out(l gpio.Level) error {
	p.mu.Lock()
	p.level = l
	p.mu.Unlock()
	return nil
}

// Read implements Pin.
func (p *MemoryPin) Read() gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// MemoryPins returns an opener handing out one MemoryPin per number.
func MemoryPins() PinOpener {
	var mu sync.Mutex
	pins := make(map[int]*MemoryPin)
	return func(number int, _ bool) (Pin, error) {
		mu.Lock()
		defer mu.Unlock()
		p, ok := pins[number]
		if !ok {
			p = &MemoryPin{}
			pins[number] = p
		}
		return p, nil
	}
}

// PeriphPins returns an opener backed by the host's GPIO registry.
func PeriphPins() (PinOpener, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialising periph host: %w", err)
	}
	return func(number int, output bool) (Pin, error) {
		p := gpioreg.ByName(strconv.Itoa(number))
		if p == nil {
			return nil, fmt.Errorf("%w: %d", ErrPinUnavailable, number)
		}
		if !output {
			if err := p.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
				return nil, fmt.Errorf("configuring gpio %d as input: %w", number, err)
			}
		}
		return p, nil
	}, nil
}
