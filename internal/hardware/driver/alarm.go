package driver

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-access/internal/hardware"
	"github.com/nerrad567/gray-logic-access/internal/hardware/facade"
)

// Alarm states.
const (
	AlarmActive       = "ACTIVE"
	AlarmAcknowledged = "ACKNOWLEDGED"
	AlarmDisarmed     = "DISARMED"
)

type alarmEntry struct {
	kind   string
	reason string
	state  string
	raised time.Time
}

// Alarm is the actor for an alarm device. Its GPIO is on while at least one
// raised alarm is not disarmed.
type Alarm struct {
	name     string
	severity hardware.Severity
	gpio     *facade.GPIO
	logger   Logger
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*alarmEntry
}

// NewAlarm creates the actor driving gpioName over t.
func NewAlarm(name string, spec hardware.AlarmSpec, t facade.Transport, gpioName string, timeout time.Duration) *Alarm {
	return &Alarm{
		name:     name,
		severity: spec.Severity,
		gpio:     facade.NewGPIO(t, gpioName, timeout),
		logger:   noopLogger{},
		now:      time.Now,
		entries:  make(map[string]*alarmEntry),
	}
}

// SetLogger sets the logger.
func (a *Alarm) SetLogger(l Logger) { a.logger = orNoop(l) }

// Handle implements facade.Handler.
func (a *Alarm) Handle(ctx context.Context, frames []string) string {
	switch {
	case frames[0] == facade.VerbRaise && len(frames) == 3:
		return a.raise(ctx, frames[1], frames[2])
	case frames[0] == facade.VerbGetState && len(frames) == 2:
		a.mu.Lock()
		defer a.mu.Unlock()
		if e, ok := a.entries[frames[1]]; ok {
			return e.state
		}
		return facade.ReplyKO
	case frames[0] == facade.VerbSetState && len(frames) == 3:
		return a.setState(ctx, frames[1], frames[2])
	case frames[0] == facade.VerbDisarm && len(frames) == 2:
		return a.setState(ctx, frames[1], AlarmDisarmed)
	default:
		a.logger.Warn("unsupported alarm command", "alarm", a.name, "frames", frames)
		return facade.ReplyKO
	}
}

func (a *Alarm) raise(ctx context.Context, kind, reason string) string {
	id := uuid.NewString()
	a.mu.Lock()
	a.entries[id] = &alarmEntry{kind: kind, reason: reason, state: AlarmActive, raised: a.now()}
	a.mu.Unlock()

	a.logger.Warn("alarm raised", "alarm", a.name, "id", id, "type", kind, "reason", reason, "severity", a.severity.String())
	if _, err := a.gpio.TurnOn(ctx); err != nil {
		a.logger.Error("alarm output failed", "alarm", a.name, "error", err)
	}
	return facade.ReplyOK + " " + id
}

func (a *Alarm) setState(ctx context.Context, id, state string) string {
	switch state {
	case AlarmActive, AlarmAcknowledged, AlarmDisarmed:
	default:
		return facade.ReplyKO
	}

	a.mu.Lock()
	e, ok := a.entries[id]
	if ok {
		e.state = state
	}
	armed := 0
	for _, e := range a.entries {
		if e.state != AlarmDisarmed {
			armed++
		}
	}
	a.mu.Unlock()
	if !ok {
		return facade.ReplyKO
	}

	var err error
	if armed == 0 {
		_, err = a.gpio.TurnOff(ctx)
	} else {
		_, err = a.gpio.TurnOn(ctx)
	}
	if err != nil {
		a.logger.Error("alarm output failed", "alarm", a.name, "error", err)
	}
	return facade.ReplyOK
}
