package driver

import (
	"context"
	"strconv"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/nerrad567/gray-logic-access/internal/hardware"
	"github.com/nerrad567/gray-logic-access/internal/hardware/facade"
)

// GPIO is the actor owning one GPIO line.
//
// It answers ON [ms], OFF, TOGGLE and STATE. Input lines only answer STATE.
type GPIO struct {
	name   string
	pin    Pin
	output bool
	logger Logger

	mu sync.Mutex
	// gen invalidates a pending "ON <ms>" switch-off when another command
	// arrives first.
	gen      uint64
	offTimer *time.Timer
}

// NewGPIO creates the actor for dev and drives an output line to its
// default value.
func NewGPIO(name string, pin Pin, spec hardware.GPIOSpec) (*GPIO, error) {
	g := &GPIO{
		name:   name,
		pin:    pin,
		output: spec.Direction == hardware.DirectionOut,
		logger: noopLogger{},
	}
	if g.output {
		if err := pin.Out(gpio.Level(spec.DefaultValue)); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// SetLogger sets the logger.
func (g *GPIO) SetLogger(l Logger) { g.logger = orNoop(l) }

// Handle implements facade.Handler.
func (g *GPIO) Handle(_ context.Context, frames []string) string {
	verb := frames[0]
	if verb == facade.VerbState {
		if g.pin.Read() == gpio.High {
			return facade.VerbOn
		}
		return facade.VerbOff
	}
	if !g.output {
		g.logger.Warn("command to input gpio", "gpio", g.name, "verb", verb)
		return facade.ReplyKO
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch verb {
	case facade.VerbOn:
		var d time.Duration
		if len(frames) > 1 {
			ms, err := strconv.ParseInt(frames[1], 10, 64)
			if err != nil || ms <= 0 {
				g.logger.Warn("invalid ON duration", "gpio", g.name, "value", frames[1])
				return facade.ReplyKO
			}
			d = time.Duration(ms) * time.Millisecond
		}
		if !g.set(gpio.High) {
			return facade.ReplyKO
		}
		if d > 0 {
			gen := g.gen
			g.offTimer = time.AfterFunc(d, func() { g.expire(gen) })
		}
	case facade.VerbOff:
		if !g.set(gpio.Low) {
			return facade.ReplyKO
		}
	case facade.VerbToggle:
		if !g.set(!g.pin.Read()) {
			return facade.ReplyKO
		}
	default:
		g.logger.Warn("unknown gpio command", "gpio", g.name, "verb", verb)
		return facade.ReplyKO
	}
	return facade.ReplyOK
}

// set drives the line and cancels any pending switch-off. Caller holds mu.
func (g *GPIO) set(l gpio.Level) bool {
	g.gen++
	if g.offTimer != nil {
		g.offTimer.Stop()
		g.offTimer = nil
	}
	if err := g.pin.Out(l); err != nil {
		g.logger.Error("gpio write failed", "gpio", g.name, "error", err)
		return false
	}
	return true
}

func (g *GPIO) expire(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen {
		return
	}
	g.offTimer = nil
	if err := g.pin.Out(gpio.Low); err != nil {
		g.logger.Error("gpio write failed", "gpio", g.name, "error", err)
	}
}
