package wiegand

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-access/internal/credential"
)

// Reader loop timing.
const (
	DefaultTickInterval = 100 * time.Millisecond
	MaxTickInterval     = 250 * time.Millisecond

	pulseQueueSize = 256
)

// Event is a credential decoded by a reader.
type Event struct {
	Reader     string
	Time       time.Time
	Mode       Mode
	Credential credential.Credential
}

// EventSink receives decoded credentials. HandleEvent runs on the reader's
// goroutine and must not block for long.
type EventSink interface {
	HandleEvent(ctx context.Context, ev Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, ev Event)

// HandleEvent implements EventSink.
func (f EventSinkFunc) HandleEvent(ctx context.Context, ev Event) { f(ctx, ev) }

// ReaderConfig describes one reader.
type ReaderConfig struct {
	Name       string
	Mode       Mode
	MaxBits    int
	PinTimeout time.Duration
	PinEndKey  byte

	// TickInterval is how long the data lines must stay quiet before the
	// strategy is given a timeout tick. Zero selects DefaultTickInterval.
	TickInterval time.Duration
}

// Reader owns the buffer and strategy of one physical reader and drives
// them from a single goroutine.
//
// Pulses are delivered through the channel returned by Pulses. The strategy
// is ticked whenever no pulse has arrived for the tick interval, and again
// every tick interval while the line stays quiet.
type Reader struct {
	name     string
	mode     Mode
	buf      *Buffer
	strategy Strategy
	tick     time.Duration
	pulses   chan Bit
	sink     EventSink
	logger   Logger
	now      func() time.Time
}

// NewReader builds a reader and its strategy from cfg.
func NewReader(cfg ReaderConfig, sink EventSink) (*Reader, error) {
	if cfg.Name == "" {
		return nil, errors.New("wiegand: reader name is required")
	}
	if sink == nil {
		return nil, errors.New("wiegand: event sink is required")
	}
	tick := cfg.TickInterval
	if tick == 0 {
		tick = DefaultTickInterval
	}
	if tick < 0 || tick > MaxTickInterval {
		return nil, fmt.Errorf("wiegand: tick interval %s outside (0, %s]", tick, MaxTickInterval)
	}

	buf, err := NewBuffer(cfg.MaxBits)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		name:   cfg.Name,
		mode:   cfg.Mode,
		buf:    buf,
		tick:   tick,
		pulses: make(chan Bit, pulseQueueSize),
		sink:   sink,
		logger: noopLogger{},
		now:    time.Now,
	}
	logger := loggerFunc(func() Logger { return r.logger })
	r.strategy, err = NewStrategy(cfg.Mode, buf, StrategyOptions{
		PinTimeout: cfg.PinTimeout,
		PinEndKey:  cfg.PinEndKey,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("reader %s: %w", cfg.Name, err)
	}
	return r, nil
}

// SetLogger sets the logger for the reader and its strategy.
// It must be called before Run.
func (r *Reader) SetLogger(logger Logger) {
	r.logger = orNoop(logger)
}

// Name returns the reader name.
func (r *Reader) Name() string { return r.name }

// Pulses returns the channel pulse sources write to.
func (r *Reader) Pulses() chan<- Bit { return r.pulses }

// Run processes pulses and ticks until ctx is cancelled.
func (r *Reader) Run(ctx context.Context) error {
	r.logger.Info("wiegand reader started", "reader", r.name, "mode", r.mode, "tick", r.tick)

	timer := time.NewTimer(r.tick)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("wiegand reader stopped", "reader", r.name)
			return nil
		case bit := <-r.pulses:
			r.handlePulse(bit)
			timer.Reset(r.tick)
		case <-timer.C:
			r.handleTick(ctx, r.now())
			timer.Reset(r.tick)
		}
	}
}

// handlePulse stores one pulse. An overflowing frame is logged and dropped.
func (r *Reader) handlePulse(bit Bit) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		err, ok := rec.(error)
		if !ok || !errors.Is(err, ErrBufferOverflow) {
			panic(rec)
		}
		r.logger.Error("wiegand frame overflow, discarding",
			"reader", r.name,
			"capacity", r.buf.Capacity(),
			"error", err,
		)
		r.strategy.Reset()
	}()
	r.buf.IngestPulse(bit)
}

// handleTick runs the strategy and forwards a completed credential.
func (r *Reader) handleTick(ctx context.Context, now time.Time) {
	r.strategy.Timeout(now)
	if !r.strategy.Completed() {
		return
	}
	ev := Event{
		Reader:     r.name,
		Time:       now,
		Mode:       r.mode,
		Credential: r.strategy.Result(),
	}
	r.strategy.Reset()
	r.logger.Debug("credential decoded", "reader", r.name, "credential", ev.Credential.String())
	r.sink.HandleEvent(ctx, ev)
}

// loggerFunc resolves the reader's logger at call time so SetLogger also
// reaches strategies built in NewReader.
type loggerFunc func() Logger

func (f loggerFunc) Debug(msg string, args ...any) { f().Debug(msg, args...) }
func (f loggerFunc) Info(msg string, args ...any)  { f().Info(msg, args...) }
func (f loggerFunc) Warn(msg string, args ...any)  { f().Warn(msg, args...) }
func (f loggerFunc) Error(msg string, args ...any) { f().Error(msg, args...) }
