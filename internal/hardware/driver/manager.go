package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-access/internal/hardware"
	"github.com/nerrad567/gray-logic-access/internal/hardware/facade"
)

// Options configures a Manager.
type Options struct {
	Transport facade.Transport
	Pins      PinOpener
	Timeout   time.Duration
	Connect   Connector
	Sink      VirtualSink
	Logger    Logger
}

// Manager creates one actor per enabled device and registers it on the
// transport under the device name.
type Manager struct {
	opts     Options
	logger   Logger
	blinkers []*Blinker
	servers  []*ExternalServer
	actors   map[string]facade.Handler
}

// NewManager creates a manager. Pins defaults to in-memory lines and Connect
// to MQTTConnector.
func NewManager(opts Options) *Manager {
	if opts.Pins == nil {
		opts.Pins = MemoryPins()
	}
	if opts.Connect == nil {
		opts.Connect = MQTTConnector
	}
	if opts.Timeout <= 0 {
		opts.Timeout = facade.DefaultTimeout
	}
	return &Manager{opts: opts, logger: orNoop(opts.Logger), actors: make(map[string]facade.Handler)}
}

// Start builds and registers actors for devices.
func (m *Manager) Start(_ context.Context, devices []hardware.Device) error {
	byID := make(map[string]*hardware.Device, len(devices))
	for i := range devices {
		byID[devices[i].ID] = &devices[i]
	}
	name := func(id string) (string, error) {
		if id == "" {
			return "", nil
		}
		dev, ok := byID[id]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnresolvedDevice, id)
		}
		return dev.Name, nil
	}

	var errs []error
	for i := range devices {
		dev := &devices[i]
		if !dev.Enabled {
			continue
		}
		if err := m.startDevice(dev, devices, name); err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", dev.Class(), dev.Name, err))
		}
	}
	m.logger.Info("device actors started", "count", len(m.actors), "transport", m.opts.Transport.Scheme())
	return errors.Join(errs...)
}

func (m *Manager) startDevice(dev *hardware.Device, all []hardware.Device, name func(string) (string, error)) error {
	t, timeout := m.opts.Transport, m.opts.Timeout

	switch spec := dev.Spec.(type) {
	case hardware.GPIOSpec:
		pin, err := m.opts.Pins(spec.Number, spec.Direction == hardware.DirectionOut)
		if err != nil {
			return err
		}
		g, err := NewGPIO(dev.Name, pin, spec)
		if err != nil {
			return err
		}
		g.SetLogger(m.logger)
		return m.register(dev.Name, g)

	case hardware.LEDSpec:
		return m.startBlinker(dev.Name, spec.GPIOID, spec.DefaultBlinkDuration, spec.DefaultBlinkSpeed, name)

	case hardware.BuzzerSpec:
		return m.startBlinker(dev.Name, spec.GPIOID, spec.DefaultBlinkDuration, spec.DefaultBlinkSpeed, name)

	case hardware.AlarmSpec:
		gpioName, err := name(spec.GPIOID)
		if err != nil {
			return err
		}
		a := NewAlarm(dev.Name, spec, t, gpioName, timeout)
		a.SetLogger(m.logger)
		return m.register(dev.Name, a)

	case hardware.RFIDReaderSpec:
		ledName, err := name(spec.GreenLEDID)
		if err != nil {
			return err
		}
		buzzerName, err := name(spec.BuzzerID)
		if err != nil {
			return err
		}
		r := NewReaderFeedback(dev.Name, t, ledName, buzzerName, timeout)
		r.SetLogger(m.logger)
		return m.register(dev.Name, r)

	case hardware.ExternalServerSpec:
		var messages []ExternalMessage
		for i := range all {
			if ms, ok := all[i].Spec.(hardware.ExternalMessageSpec); ok && ms.ServerID == dev.ID && all[i].Enabled {
				messages = append(messages, ExternalMessage{Name: all[i].Name, Spec: ms})
			}
		}
		s := NewExternalServer(dev.Name, spec, messages, m.opts.Connect, m.opts.Sink)
		s.SetLogger(m.logger)
		m.servers = append(m.servers, s)
		if err := m.register(dev.Name, s); err != nil {
			return err
		}
		for _, msg := range messages {
			if msg.Spec.Direction != hardware.DirectionPublish {
				continue
			}
			if err := m.register(msg.Name, s.MessageHandler(msg)); err != nil {
				return err
			}
		}
		return nil

	case hardware.ExternalMessageSpec:
		// Served by its server.
		return nil

	default:
		return fmt.Errorf("%w: %T", hardware.ErrUnknownClass, spec)
	}
}

func (m *Manager) startBlinker(devName, gpioID string, duration, speed int64, name func(string) (string, error)) error {
	gpioName, err := name(gpioID)
	if err != nil {
		return err
	}
	b := NewBlinker(devName, m.opts.Transport, gpioName, m.opts.Timeout,
		time.Duration(duration)*time.Millisecond, time.Duration(speed)*time.Millisecond)
	b.SetLogger(m.logger)
	m.blinkers = append(m.blinkers, b)
	return m.register(devName, b)
}

func (m *Manager) register(name string, h facade.Handler) error {
	if err := m.opts.Transport.Handle(name, h); err != nil {
		return err
	}
	m.actors[name] = h
	return nil
}

// Actors returns the names of registered actors.
func (m *Manager) Actors() []string {
	names := make([]string, 0, len(m.actors))
	for name := range m.actors {
		names = append(names, name)
	}
	return names
}

// Close stops running blinks and disconnects external servers. The
// transport is owned by the caller.
func (m *Manager) Close() error {
	for _, b := range m.blinkers {
		b.Close()
	}
	var errs []error
	for _, s := range m.servers {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
