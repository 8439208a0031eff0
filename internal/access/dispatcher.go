package access

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nerrad567/gray-logic-access/internal/audit"
	"github.com/nerrad567/gray-logic-access/internal/credential"
	"github.com/nerrad567/gray-logic-access/internal/hardware"
	"github.com/nerrad567/gray-logic-access/internal/hardware/driver"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-access/internal/wiegand"
)

// ChannelAccess is the WebSocket channel access events are broadcast on.
const ChannelAccess = "access"

// ChannelDevices is the WebSocket channel virtual device values are
// broadcast on.
const ChannelDevices = "devices"

const credentialQoS = 1

// Publisher sends MQTT messages.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Telemetry stores access events.
type Telemetry interface {
	WriteAccessEvent(ev influxdb.AccessEvent)
}

// Broadcaster pushes events to WebSocket clients.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Auditor records audit entries.
type Auditor interface {
	Record(ctx context.Context, action, entityType, entityID string, details map[string]any)
}

// Logger defines the logging interface used by the dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options wires a Dispatcher. Every collaborator is optional.
type Options struct {
	Publisher   Publisher
	Telemetry   Telemetry
	Broadcaster Broadcaster
	Auditor     Auditor
	Logger      Logger
}

// Event is the payload published for one credential.
type Event struct {
	Reader    string          `json:"reader"`
	Time      time.Time       `json:"time"`
	Kind      credential.Kind `json:"kind"`
	Source    string          `json:"source"`
	Card      *CardInfo       `json:"card,omitempty"`
	Pin       string          `json:"pin,omitempty"`
	PinLength int             `json:"pin_length,omitempty"`
}

// Event sources.
const (
	SourceWiegand = "wiegand"
	SourceVirtual = "virtual"
)

// Dispatcher fans decoded credentials out to the bus, telemetry, WebSocket
// clients and the audit log. It implements wiegand.EventSink and
// driver.VirtualSink and is safe for concurrent use.
type Dispatcher struct {
	pub       Publisher
	telemetry Telemetry
	hub       Broadcaster
	audit     Auditor
	logger    Logger
	now       func() time.Time
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{
		pub:       opts.Publisher,
		telemetry: opts.Telemetry,
		hub:       opts.Broadcaster,
		audit:     opts.Auditor,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleEvent implements wiegand.EventSink.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev wiegand.Event) {
	d.Dispatch(ctx, ev.Reader, SourceWiegand, ev.Time, ev.Credential)
}

// HandleVirtual implements driver.VirtualSink. Serial numbers received for
// virtual RFID readers become card credentials. Other virtual values are
// broadcast to WebSocket clients as device state.
func (d *Dispatcher) HandleVirtual(ctx context.Context, ev driver.VirtualEvent) {
	if ev.Class != hardware.ClassRFIDReader || ev.Direction != hardware.DirectionSubscribe {
		if d.hub != nil {
			d.hub.Broadcast(ChannelDevices, ev)
		}
		return
	}
	card, err := CardFromSerial(ev.Value)
	if err != nil {
		d.logger.Warn("virtual reader sent an invalid card serial",
			"server", ev.Server,
			"message", ev.Message,
			"error", err,
		)
		return
	}
	d.Dispatch(ctx, ev.Message, SourceVirtual, d.now(), credential.FromCard(card))
}

// Dispatch publishes one credential presented at reader.
func (d *Dispatcher) Dispatch(ctx context.Context, reader, source string, at time.Time, cred credential.Credential) {
	if at.IsZero() {
		at = d.now()
	}
	out := Event{Reader: reader, Time: at.UTC(), Kind: cred.Kind, Source: source}

	switch cred.Kind {
	case credential.KindRFIDCard, credential.KindCardAndPin:
		info, err := DescribeCard(*cred.Card)
		if err != nil {
			d.logger.Warn("dropping undecodable card", "reader", reader, "error", err)
			return
		}
		if !cred.Card.HasFormat() {
			d.logger.Debug("no matching format for card, using raw value",
				"reader", reader,
				"bits", info.Bits,
			)
		}
		out.Card = &info
		if cred.Kind == credential.KindCardAndPin {
			out.Pin = cred.Pin.Code
			out.PinLength = len(cred.Pin.Code)
		}
	case credential.KindPinCode:
		out.Pin = cred.Pin.Code
		out.PinLength = len(cred.Pin.Code)
	default:
		d.logger.Warn("dropping credential of unknown kind", "reader", reader, "kind", cred.Kind)
		return
	}

	d.logger.Info("credential presented",
		"reader", reader,
		"source", source,
		"credential", cred.String(),
	)

	d.publish(reader, out)
	d.record(ctx, out)
}

func (d *Dispatcher) publish(reader string, out Event) {
	if d.pub != nil {
		payload, err := json.Marshal(out)
		if err != nil {
			d.logger.Error("encoding access event", "reader", reader, "error", err)
		} else if err := d.pub.Publish(mqtt.Topics{}.AccessCredential(reader), payload, credentialQoS, false); err != nil {
			d.logger.Error("publishing access event", "reader", reader, "error", err)
		}
	}

	if d.hub != nil {
		redacted := out
		redacted.Pin = ""
		d.hub.Broadcast(ChannelAccess, redacted)
	}
}

func (d *Dispatcher) record(ctx context.Context, out Event) {
	point := influxdb.AccessEvent{
		Reader: out.Reader,
		Kind:   string(out.Kind),
		Format: "pin",
		At:     out.Time,
	}
	details := map[string]any{
		"kind":   string(out.Kind),
		"source": out.Source,
	}
	if out.Card != nil {
		point.Format = out.Card.Format
		point.Bits = out.Card.Bits
		point.Number = out.Card.Number
		details["card_id"] = out.Card.CardID
		details["number"] = out.Card.Number
		details["format"] = out.Card.Format
	}
	if out.PinLength > 0 {
		details["pin_length"] = out.PinLength
	}

	if d.telemetry != nil {
		d.telemetry.WriteAccessEvent(point)
	}
	if d.audit != nil {
		d.audit.Record(ctx, audit.ActionCredential, audit.EntityReader, out.Reader, details)
	}
}
