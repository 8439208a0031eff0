package driver

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-access/internal/hardware/facade"
)

// Blinker is the actor for an LED or a buzzer. It drives the underlying
// GPIO through its facade.
//
// ON, OFF and TOGGLE are forwarded to the GPIO and cancel a running blink.
// BLINK [duration speed] toggles the GPIO duration/speed times, once every
// speed, then puts the GPIO back in the state it had before blinking.
type Blinker struct {
	name            string
	gpio            *facade.GPIO
	gpioCh          facade.Channel
	timeout         time.Duration
	defaultDuration time.Duration
	defaultSpeed    time.Duration
	logger          Logger

	mu  sync.Mutex
	run *blinkRun
}

type blinkRun struct {
	duration time.Duration
	speed    time.Duration
	wasOn    bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewBlinker creates the actor for device name driving gpioName over t.
// Zero blink defaults fall back to one second at 100ms.
func NewBlinker(name string, t facade.Transport, gpioName string, timeout, defaultDuration, defaultSpeed time.Duration) *Blinker {
	if defaultDuration <= 0 {
		defaultDuration = 1000 * time.Millisecond
	}
	if defaultSpeed <= 0 {
		defaultSpeed = 100 * time.Millisecond
	}
	return &Blinker{
		name:            name,
		gpio:            facade.NewGPIO(t, gpioName, timeout),
		gpioCh:          t.Channel(gpioName),
		timeout:         timeout,
		defaultDuration: defaultDuration,
		defaultSpeed:    defaultSpeed,
		logger:          noopLogger{},
	}
}

// SetLogger sets the logger.
func (b *Blinker) SetLogger(l Logger) { b.logger = orNoop(l) }

// Handle implements facade.Handler.
func (b *Blinker) Handle(ctx context.Context, frames []string) string {
	switch frames[0] {
	case facade.VerbState:
		return b.state(ctx)
	case facade.VerbOn, facade.VerbOff, facade.VerbToggle:
		b.stop()
		return b.forward(ctx, frames)
	case facade.VerbBlink:
		duration, speed, err := b.blinkParams(frames[1:])
		if err != nil {
			b.logger.Warn("invalid blink", "device", b.name, "error", err)
			return facade.ReplyKO
		}
		if err := b.start(ctx, duration, speed); err != nil {
			b.logger.Error("starting blink failed", "device", b.name, "error", err)
			return facade.ReplyKO
		}
		return facade.ReplyOK
	default:
		b.logger.Warn("unknown command", "device", b.name, "verb", frames[0])
		return facade.ReplyKO
	}
}

func (b *Blinker) blinkParams(params []string) (duration, speed time.Duration, err error) {
	duration, speed = b.defaultDuration, b.defaultSpeed
	if len(params) > 0 {
		if duration, err = parseMillis(params[0]); err != nil {
			return 0, 0, err
		}
	}
	if len(params) > 1 {
		if speed, err = parseMillis(params[1]); err != nil {
			return 0, 0, err
		}
	}
	if speed > duration {
		return 0, 0, fmt.Errorf("speed %v exceeds duration %v", speed, duration)
	}
	return duration, speed, nil
}

func parseMillis(s string) (time.Duration, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", s, err)
	}
	if ms <= 0 {
		return 0, fmt.Errorf("%d ms is not positive", ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (b *Blinker) state(ctx context.Context) string {
	on, err := b.gpio.IsOn(ctx)
	if err != nil {
		b.logger.Error("reading gpio failed", "device", b.name, "error", err)
		return facade.ReplyKO
	}
	b.mu.Lock()
	run := b.run
	b.mu.Unlock()

	st := facade.LEDState{On: on}
	if run != nil {
		st.Blinking = true
		st.Duration = run.duration
		st.Speed = run.speed
	}
	return st.String()
}

func (b *Blinker) forward(ctx context.Context, frames []string) string {
	params := make([]facade.Param, 0, len(frames)-1)
	for _, f := range frames[1:] {
		params = append(params, facade.Str(f))
	}
	ok, err := facade.SendCommand(ctx, b.gpioCh, b.timeout, facade.NewCommand(frames[0], params...))
	if err != nil {
		b.logger.Error("forwarding to gpio failed", "device", b.name, "verb", frames[0], "error", err)
		return facade.ReplyKO
	}
	if !ok {
		return facade.ReplyKO
	}
	return facade.ReplyOK
}

// stop cancels a running blink without restoring the GPIO and returns it.
func (b *Blinker) stop() *blinkRun {
	b.mu.Lock()
	run := b.run
	b.run = nil
	b.mu.Unlock()
	if run != nil {
		run.cancel()
		<-run.done
	}
	return run
}

func (b *Blinker) start(ctx context.Context, duration, speed time.Duration) error {
	prev := b.stop()

	// A blink replacing another restores the state from before the first.
	var wasOn bool
	if prev != nil {
		wasOn = prev.wasOn
	} else {
		on, err := b.gpio.IsOn(ctx)
		if err != nil {
			return err
		}
		wasOn = on
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &blinkRun{duration: duration, speed: speed, wasOn: wasOn, cancel: cancel, done: make(chan struct{})}
	b.mu.Lock()
	b.run = run
	b.mu.Unlock()

	go b.blink(runCtx, run)
	return nil
}

func (b *Blinker) blink(ctx context.Context, run *blinkRun) {
	defer close(run.done)
	defer run.cancel()

	count := int(run.duration / run.speed)
	ticker := time.NewTicker(run.speed)
	defer ticker.Stop()

	for i := 0; i < count; i++ {
		if _, err := b.gpio.Toggle(ctx); err != nil && ctx.Err() == nil {
			b.logger.Warn("blink toggle failed", "device", b.name, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	b.mu.Lock()
	current := b.run == run
	if current {
		b.run = nil
	}
	b.mu.Unlock()
	if !current {
		return
	}

	var err error
	if run.wasOn {
		_, err = b.gpio.TurnOn(ctx)
	} else {
		_, err = b.gpio.TurnOff(ctx)
	}
	if err != nil {
		b.logger.Warn("restoring state after blink failed", "device", b.name, "error", err)
	}
}

// Close stops a running blink.
func (b *Blinker) Close() {
	b.stop()
}
