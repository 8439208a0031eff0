package facade

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// base is the part every facade shares: a device name, its channel and the
// per-command timeout.
type base struct {
	name    string
	ch      Channel
	timeout time.Duration
}

func newBase(t Transport, name string, timeout time.Duration) base {
	return base{name: name, ch: t.Channel(name), timeout: timeout}
}

// Name returns the device the facade talks to.
func (b base) Name() string { return b.name }

func (b base) send(ctx context.Context, verb string, params ...Param) (bool, error) {
	return SendCommand(ctx, b.ch, b.timeout, NewCommand(verb, params...))
}

func (b base) query(ctx context.Context, verb string, params ...Param) (string, error) {
	return Query(ctx, b.ch, b.timeout, NewCommand(verb, params...))
}

// output holds the ON/OFF/TOGGLE verbs shared by every output device.
type output struct{ base }

// TurnOn switches the output on.
func (o output) TurnOn(ctx context.Context) (bool, error) { return o.send(ctx, VerbOn) }

// TurnOnFor switches the output on for d, after which the actor turns it off.
func (o output) TurnOnFor(ctx context.Context, d time.Duration) (bool, error) {
	return o.send(ctx, VerbOn, Millis(d))
}

// TurnOff switches the output off.
func (o output) TurnOff(ctx context.Context) (bool, error) { return o.send(ctx, VerbOff) }

// Toggle flips the output.
func (o output) Toggle(ctx context.Context) (bool, error) { return o.send(ctx, VerbToggle) }

// blinker adds BLINK to an output.
type blinker struct{ output }

// Blink blinks with the device's configured duration and speed.
func (b blinker) Blink(ctx context.Context) (bool, error) { return b.send(ctx, VerbBlink) }

// BlinkFor blinks for duration, toggling every speed.
func (b blinker) BlinkFor(ctx context.Context, duration, speed time.Duration) (bool, error) {
	return b.send(ctx, VerbBlink, Millis(duration), Millis(speed))
}

// GPIO drives a single GPIO line.
type GPIO struct{ output }

// NewGPIO returns a facade for the named GPIO device.
func NewGPIO(t Transport, name string, timeout time.Duration) *GPIO {
	return &GPIO{output{newBase(t, name, timeout)}}
}

// IsOn reports whether the line is currently high. KO returns ErrRejected.
func (g *GPIO) IsOn(ctx context.Context) (bool, error) {
	reply, err := g.query(ctx, VerbState)
	if err != nil {
		return false, err
	}
	switch reply {
	case VerbOn:
		return true, nil
	case VerbOff:
		return false, nil
	case ReplyKO:
		return false, fmt.Errorf("%w: %s", ErrRejected, VerbState)
	default:
		panic(fmt.Errorf("%w: %q in reply to %s", ErrProtocolViolation, reply, VerbState))
	}
}

// IsOff reports whether the line is currently low.
func (g *GPIO) IsOff(ctx context.Context) (bool, error) {
	on, err := g.IsOn(ctx)
	return !on, err
}

// LED drives an LED wired to a GPIO.
type LED struct{ blinker }

// NewLED returns a facade for the named LED device.
func NewLED(t Transport, name string, timeout time.Duration) *LED {
	return &LED{blinker{output{newBase(t, name, timeout)}}}
}

// LEDState is the answer to a STATE query.
type LEDState struct {
	Blinking bool
	On       bool

	// Duration and Speed are only set while Blinking.
	Duration time.Duration
	Speed    time.Duration
}

func (s LEDState) String() string {
	onOff := VerbOff
	if s.On {
		onOff = VerbOn
	}
	if !s.Blinking {
		return onOff
	}
	return fmt.Sprintf("%s %d %d %s", ReplyBlinking, s.Duration.Milliseconds(), s.Speed.Milliseconds(), onOff)
}

// ParseLEDState parses a STATE reply: ON, OFF or
// "BLINKING <duration> <speed> <ON|OFF>".
func ParseLEDState(reply string) (LEDState, error) {
	fields := strings.Fields(reply)
	switch {
	case len(fields) == 1 && fields[0] == VerbOn:
		return LEDState{On: true}, nil
	case len(fields) == 1 && fields[0] == VerbOff:
		return LEDState{}, nil
	case len(fields) == 4 && fields[0] == ReplyBlinking:
		duration, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return LEDState{}, fmt.Errorf("parsing blink duration: %w", err)
		}
		speed, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return LEDState{}, fmt.Errorf("parsing blink speed: %w", err)
		}
		if fields[3] != VerbOn && fields[3] != VerbOff {
			return LEDState{}, fmt.Errorf("unexpected blink phase %q", fields[3])
		}
		return LEDState{
			Blinking: true,
			On:       fields[3] == VerbOn,
			Duration: time.Duration(duration) * time.Millisecond,
			Speed:    time.Duration(speed) * time.Millisecond,
		}, nil
	default:
		return LEDState{}, fmt.Errorf("unexpected state %q", reply)
	}
}

// State queries the LED. KO means the actor could not read its GPIO and
// returns ErrRejected; any other reply that is not a state panics.
func (l *LED) State(ctx context.Context) (LEDState, error) {
	reply, err := l.query(ctx, VerbState)
	if err != nil {
		return LEDState{}, err
	}
	if reply == ReplyKO {
		return LEDState{}, fmt.Errorf("%w: %s", ErrRejected, VerbState)
	}
	st, err := ParseLEDState(reply)
	if err != nil {
		panic(fmt.Errorf("%w: %w", ErrProtocolViolation, err))
	}
	return st, nil
}

// Buzzer drives a buzzer wired to a GPIO. Blinking a buzzer beeps it.
type Buzzer struct{ blinker }

// NewBuzzer returns a facade for the named buzzer device.
func NewBuzzer(t Transport, name string, timeout time.Duration) *Buzzer {
	return &Buzzer{blinker{output{newBase(t, name, timeout)}}}
}

// WiegandReader controls the feedback devices attached to a reader.
type WiegandReader struct{ base }

// NewWiegandReader returns a facade for the named reader.
func NewWiegandReader(t Transport, name string, timeout time.Duration) *WiegandReader {
	return &WiegandReader{newBase(t, name, timeout)}
}

// Beep sounds the reader's buzzer for d.
func (r *WiegandReader) Beep(ctx context.Context, d time.Duration) (bool, error) {
	return r.send(ctx, VerbBeep, Millis(d))
}

// BuzzerOn switches the reader's buzzer on.
func (r *WiegandReader) BuzzerOn(ctx context.Context) (bool, error) {
	return r.send(ctx, VerbBuzzerOn)
}

// BuzzerOff switches the reader's buzzer off.
func (r *WiegandReader) BuzzerOff(ctx context.Context) (bool, error) {
	return r.send(ctx, VerbBuzzerOff)
}

// GreenLedOn switches the reader's green LED on.
func (r *WiegandReader) GreenLedOn(ctx context.Context) (bool, error) {
	return r.send(ctx, VerbGreenLED, Str(VerbOn))
}

// GreenLedOff switches the reader's green LED off.
func (r *WiegandReader) GreenLedOff(ctx context.Context) (bool, error) {
	return r.send(ctx, VerbGreenLED, Str(VerbOff))
}

// GreenLedBlink blinks the reader's green LED for duration, toggling every
// speed.
func (r *WiegandReader) GreenLedBlink(ctx context.Context, duration, speed time.Duration) (bool, error) {
	return r.send(ctx, VerbGreenLED, Str(VerbBlink), Millis(duration), Millis(speed))
}

// ExternalServer controls the connection to a remote MQTT server.
type ExternalServer struct{ base }

// NewExternalServer returns a facade for the named external server.
func NewExternalServer(t Transport, name string, timeout time.Duration) *ExternalServer {
	return &ExternalServer{newBase(t, name, timeout)}
}

// Connect asks the actor to connect to the server.
func (s *ExternalServer) Connect(ctx context.Context) (bool, error) { return s.send(ctx, VerbConnect) }

// Disconnect asks the actor to drop its connection.
func (s *ExternalServer) Disconnect(ctx context.Context) (bool, error) {
	return s.send(ctx, VerbDisconnect)
}

// Alarm raises and manages alarms on an alarm device.
type Alarm struct{ base }

// NewAlarm returns a facade for the named alarm device.
func NewAlarm(t Transport, name string, timeout time.Duration) *Alarm {
	return &Alarm{newBase(t, name, timeout)}
}

// Raise raises an alarm and returns its identifier. A KO reply returns
// ErrRejected.
func (a *Alarm) Raise(ctx context.Context, alarmType, reason string) (string, error) {
	reply, err := a.query(ctx, VerbRaise, Str(alarmType), Str(reason))
	if err != nil {
		return "", err
	}
	if reply == ReplyKO {
		return "", fmt.Errorf("%w: %s", ErrRejected, VerbRaise)
	}
	id, ok := strings.CutPrefix(reply, ReplyOK+" ")
	if !ok || id == "" {
		panic(fmt.Errorf("%w: %q in reply to %s", ErrProtocolViolation, reply, VerbRaise))
	}
	return id, nil
}

// State returns the state of alarm id. A KO reply returns ErrRejected.
func (a *Alarm) State(ctx context.Context, id string) (string, error) {
	reply, err := a.query(ctx, VerbGetState, Str(id))
	if err != nil {
		return "", err
	}
	if reply == ReplyKO {
		return "", fmt.Errorf("%w: %s %s", ErrRejected, VerbGetState, id)
	}
	return reply, nil
}

// SetState moves alarm id to state.
func (a *Alarm) SetState(ctx context.Context, id, state string) (bool, error) {
	return a.send(ctx, VerbSetState, Str(id), Str(state))
}

// Disarm disarms alarm id.
func (a *Alarm) Disarm(ctx context.Context, id string) (bool, error) {
	return a.send(ctx, VerbDisarm, Str(id))
}
