package driver

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-access/internal/hardware/facade"
)

// ReaderFeedback is the actor behind a Wiegand reader's name. It drives the
// reader's green LED and buzzer, either of which may be absent.
type ReaderFeedback struct {
	name   string
	led    *facade.LED
	buzzer *facade.Buzzer
	logger Logger
}

// NewReaderFeedback creates the actor. An empty ledName or buzzerName means
// the reader has no such device and commands for it answer KO.
func NewReaderFeedback(name string, t facade.Transport, ledName, buzzerName string, timeout time.Duration) *ReaderFeedback {
	r := &ReaderFeedback{name: name, logger: noopLogger{}}
	if ledName != "" {
		r.led = facade.NewLED(t, ledName, timeout)
	}
	if buzzerName != "" {
		r.buzzer = facade.NewBuzzer(t, buzzerName, timeout)
	}
	return r
}

// SetLogger sets the logger.
func (r *ReaderFeedback) SetLogger(l Logger) { r.logger = orNoop(l) }

// Handle implements facade.Handler.
func (r *ReaderFeedback) Handle(ctx context.Context, frames []string) string {
	var (
		ok  bool
		err error
	)
	switch verb := frames[0]; {
	case verb == facade.VerbGreenLED && r.led != nil && len(frames) > 1:
		ok, err = r.greenLED(ctx, frames[1:])
	case verb == facade.VerbBeep && r.buzzer != nil:
		d := time.Second
		if len(frames) > 1 {
			if d, err = parseMillis(frames[1]); err != nil {
				break
			}
		}
		// One toggle on, then the blinker restores the buzzer to off.
		ok, err = r.buzzer.BlinkFor(ctx, d, d)
	case verb == facade.VerbBuzzerOn && r.buzzer != nil:
		ok, err = r.buzzer.TurnOn(ctx)
	case verb == facade.VerbBuzzerOff && r.buzzer != nil:
		ok, err = r.buzzer.TurnOff(ctx)
	default:
		r.logger.Warn("unsupported reader command", "reader", r.name, "verb", verb)
		return facade.ReplyKO
	}
	if err != nil {
		r.logger.Warn("reader command failed", "reader", r.name, "verb", frames[0], "error", err)
		return facade.ReplyKO
	}
	if !ok {
		return facade.ReplyKO
	}
	return facade.ReplyOK
}

func (r *ReaderFeedback) greenLED(ctx context.Context, args []string) (bool, error) {
	switch args[0] {
	case facade.VerbOn:
		return r.led.TurnOn(ctx)
	case facade.VerbOff:
		return r.led.TurnOff(ctx)
	case facade.VerbBlink:
		if len(args) < 3 {
			return r.led.Blink(ctx)
		}
		duration, err := parseMillis(args[1])
		if err != nil {
			return false, err
		}
		speed, err := parseMillis(args[2])
		if err != nil {
			return false, err
		}
		return r.led.BlinkFor(ctx, duration, speed)
	default:
		return false, nil
	}
}
