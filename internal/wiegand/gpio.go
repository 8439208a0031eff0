package wiegand

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgeWait bounds each WaitForEdge call so cancellation is noticed.
const edgeWait = 500 * time.Millisecond

// GPIOSource turns falling edges on the D0 and D1 data lines into pulses.
// Both lines idle high and are pulled low for each bit.
type GPIOSource struct {
	d0, d1 gpio.PinIn
	logger Logger
}

// NewGPIOSource configures d0 and d1 as pulled-up inputs with falling-edge
// detection.
func NewGPIOSource(d0, d1 gpio.PinIn) (*GPIOSource, error) {
	if d0 == nil || d1 == nil {
		return nil, errors.New("wiegand: both data lines are required")
	}
	if err := d0.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("configuring D0 %s: %w", d0, err)
	}
	if err := d1.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, fmt.Errorf("configuring D1 %s: %w", d1, err)
	}
	return &GPIOSource{d0: d0, d1: d1, logger: noopLogger{}}, nil
}

// OpenGPIOSource initialises the host drivers and opens the named pins.
//
// Parameters:
//   - d0Name, d1Name: pin names as known to gpioreg, e.g. "GPIO17"
//
// Returns:
//   - *GPIOSource: ready to Run
//   - error: if the host cannot be initialised or a pin is unknown
func OpenGPIOSource(d0Name, d1Name string) (*GPIOSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialising periph host: %w", err)
	}
	d0 := gpioreg.ByName(d0Name)
	if d0 == nil {
		return nil, fmt.Errorf("wiegand: unknown D0 pin %q", d0Name)
	}
	d1 := gpioreg.ByName(d1Name)
	if d1 == nil {
		return nil, fmt.Errorf("wiegand: unknown D1 pin %q", d1Name)
	}
	return NewGPIOSource(d0, d1)
}

// SetLogger sets the logger for the source.
func (s *GPIOSource) SetLogger(logger Logger) {
	s.logger = orNoop(logger)
}

// Run forwards pulses until ctx is cancelled, then halts both pins.
func (s *GPIOSource) Run(ctx context.Context, pulses chan<- Bit) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.watch(ctx, s.d0, Bit0, pulses)
	}()
	go func() {
		defer wg.Done()
		s.watch(ctx, s.d1, Bit1, pulses)
	}()
	wg.Wait()

	var errs []error
	if err := s.d0.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halting D0: %w", err))
	}
	if err := s.d1.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halting D1: %w", err))
	}
	return errors.Join(errs...)
}

func (s *GPIOSource) watch(ctx context.Context, pin gpio.PinIn, bit Bit, pulses chan<- Bit) {
	for ctx.Err() == nil {
		if !pin.WaitForEdge(edgeWait) {
			continue
		}
		if pin.Read() != gpio.Low {
			continue
		}
		select {
		case pulses <- bit:
		case <-ctx.Done():
			return
		}
	}
}
