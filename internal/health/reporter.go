package health

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-access/internal/infrastructure/mqtt"
)

// Status is the operational state reported to the bus.
type Status string

// Reported states.
const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusStarting Status = "starting"
	StatusStopping Status = "stopping"
)

const (
	defaultInterval = 30 * time.Second
	checkTimeout    = 5 * time.Second
	healthQoS       = 1
)

// Publisher sends MQTT messages.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// CheckFunc reports whether one dependency is usable.
type CheckFunc func(ctx context.Context) error

// Stats supplies the counters included in each message.
type Stats struct {
	Devices          int `json:"devices"`
	Readers          int `json:"readers"`
	Actors           int `json:"actors"`
	WebSocketClients int `json:"websocket_clients"`
}

// Message is the payload published on the health topic.
type Message struct {
	Daemon    string            `json:"daemon"`
	Status    Status            `json:"status"`
	Reason    string            `json:"reason,omitempty"`
	Version   string            `json:"version"`
	Transport string            `json:"transport"`
	Uptime    int64             `json:"uptime_seconds"`
	Checks    map[string]string `json:"checks,omitempty"`
	Stats     Stats             `json:"stats"`
	Timestamp time.Time         `json:"timestamp"`
}

// Logger defines the logging interface used by the reporter.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config configures a Reporter.
type Config struct {
	Daemon    string
	Version   string
	Transport string
	Interval  time.Duration // zero selects 30s
	Publisher Publisher
	Checks    map[string]CheckFunc
	Stats     func() Stats // optional
	Logger    Logger       // optional
}

// Reporter publishes daemon health at a fixed interval.
type Reporter struct {
	cfg       Config
	topic     string
	startTime time.Time
	now       func() time.Time
	logger    Logger

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewReporter creates a reporter. Call Start to begin publishing.
func NewReporter(cfg Config) *Reporter {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Reporter{
		cfg:       cfg,
		topic:     mqtt.Topics{}.AccessHealth(),
		startTime: time.Now(),
		now:       time.Now,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start publishes a status immediately and then on every interval until
// ctx is cancelled or Stop is called.
func (r *Reporter) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.loop(ctx)
}

// Stop ends the loop and publishes a final "stopping" status. It is safe to
// call more than once.
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		if err := r.publish(r.message(StatusStopping, "shutdown", nil)); err != nil {
			r.logger.Debug("final health publish failed", "error", err)
		}
	})
}

// PublishStarting publishes a "starting" status before the daemon is ready.
func (r *Reporter) PublishStarting() error {
	return r.publish(r.message(StatusStarting, "", nil))
}

// PublishNow runs the checks and publishes the result.
func (r *Reporter) PublishNow(ctx context.Context) error {
	return r.publish(r.Evaluate(ctx))
}

// Evaluate runs every check and builds the resulting message.
func (r *Reporter) Evaluate(ctx context.Context) Message {
	names := make([]string, 0, len(r.cfg.Checks))
	for name := range r.cfg.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	status, reason := StatusHealthy, ""
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := r.cfg.Checks[name](checkCtx)
		cancel()
		if err != nil {
			results[name] = err.Error()
			if status == StatusHealthy {
				status, reason = StatusDegraded, name+" unavailable"
			}
			continue
		}
		results[name] = "ok"
	}
	return r.message(status, reason, results)
}

func (r *Reporter) message(status Status, reason string, checks map[string]string) Message {
	var stats Stats
	if r.cfg.Stats != nil {
		stats = r.cfg.Stats()
	}
	now := r.now()
	return Message{
		Daemon:    r.cfg.Daemon,
		Status:    status,
		Reason:    reason,
		Version:   r.cfg.Version,
		Transport: r.cfg.Transport,
		Uptime:    int64(now.Sub(r.startTime).Seconds()),
		Checks:    checks,
		Stats:     stats,
		Timestamp: now.UTC(),
	}
}

func (r *Reporter) publish(msg Message) error {
	if r.cfg.Publisher == nil {
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling health message: %w", err)
	}
	if err := r.cfg.Publisher.Publish(r.topic, payload, healthQoS, true); err != nil {
		return fmt.Errorf("publishing health: %w", err)
	}
	return nil
}

func (r *Reporter) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reporter) tick(ctx context.Context) {
	msg := r.Evaluate(ctx)
	if msg.Status != StatusHealthy {
		r.logger.Warn("daemon degraded", "reason", msg.Reason)
	}
	if err := r.publish(msg); err != nil {
		r.logger.Error("failed to publish health", "error", err)
	}
}
