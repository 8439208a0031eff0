package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/nerrad567/gray-logic-access/internal/hardware/driver"
	"github.com/nerrad567/gray-logic-access/internal/hardware/facade"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-access/internal/wiegand"
)

// openTransport builds the facade transport named in cfg. The returned
// function closes the transport and any connection opened for it.
func openTransport(cfg *config.Config, mqttClient *mqtt.Client) (facade.Transport, func() error, error) {
	switch cfg.Hardware.Transport {
	case config.TransportMQTT:
		if mqttClient == nil {
			return nil, nil, errors.New("mqtt transport needs an MQTT connection")
		}
		t := facade.NewMQTTTransport(mqttClient, byte(cfg.MQTT.QoS))
		return t, t.Close, nil

	case config.TransportNATS:
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name(cfg.NATS.Name),
			nats.MaxReconnects(cfg.NATS.MaxReconnects),
			nats.ReconnectWait(cfg.NATS.ReconnectWait),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to NATS: %w", err)
		}
		t := facade.NewNATSTransport(nc)
		return t, func() error {
			err := t.Close()
			nc.Close()
			return err
		}, nil

	case config.TransportLocal, "":
		t := facade.NewLocalTransport()
		return t, t.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown transport %q", cfg.Hardware.Transport)
	}
}

// openPins returns the GPIO line opener for the configured driver.
func openPins(gpioDriver string) (driver.PinOpener, error) {
	if gpioDriver == config.GPIODriverPeriph {
		pins, err := driver.PeriphPins()
		if err != nil {
			return nil, fmt.Errorf("opening GPIO driver: %w", err)
		}
		return pins, nil
	}
	return driver.MemoryPins(), nil
}

// startReader builds one Wiegand reader and its pulse source and runs them
// until ctx is cancelled.
//
// With the periph driver pulses come from the D0/D1 lines. Otherwise they
// are read from graylogic/access/pulses/{reader} when MQTT is available.
func startReader(ctx context.Context, wg *sync.WaitGroup, rc config.ReaderConfig, cfg *config.Config, sub wiegand.Subscriber, sink wiegand.EventSink, log *logging.Logger) error {
	mode, err := wiegand.ParseMode(rc.Mode)
	if err != nil {
		return err
	}
	reader, err := wiegand.NewReader(wiegand.ReaderConfig{
		Name:         rc.Name,
		Mode:         mode,
		MaxBits:      rc.MaxBits,
		PinTimeout:   rc.PinTimeout,
		PinEndKey:    rc.PinEndKey[0],
		TickInterval: cfg.Hardware.TickInterval,
	}, sink)
	if err != nil {
		return err
	}
	readerLog := log.Component("wiegand").With("reader", rc.Name)
	reader.SetLogger(readerLog)

	switch {
	case cfg.Hardware.GPIODriver == config.GPIODriverPeriph:
		src, err := wiegand.OpenGPIOSource(rc.D0Pin, rc.D1Pin)
		if err != nil {
			return err
		}
		src.SetLogger(readerLog)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := src.Run(ctx, reader.Pulses()); err != nil {
				readerLog.Error("gpio pulse source stopped", "error", err)
			}
		}()

	case sub != nil:
		topic := mqtt.Topics{}.AccessPulses(rc.Name)
		if err := wiegand.NewRemoteSource(sub, topic, byte(cfg.MQTT.QoS)).Start(ctx, reader.Pulses()); err != nil {
			return err
		}
		readerLog.Info("listening for remote pulses", "topic", topic)

	default:
		readerLog.Warn("reader has no pulse source: enable the periph GPIO driver or MQTT")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := reader.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			readerLog.Error("reader stopped", "error", err)
		}
	}()
	return nil
}
