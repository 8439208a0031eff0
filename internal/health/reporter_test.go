package health

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockPublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

type publishedMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func (m *mockPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, publishedMessage{topic, payload, qos, retained})
	return nil
}

func (m *mockPublisher) published() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]publishedMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

func decodeMessage(t *testing.T, p publishedMessage) Message {
	t.Helper()
	var msg Message
	if err := json.Unmarshal(p.payload, &msg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return msg
}

func ok(context.Context) error { return nil }

func TestEvaluate(t *testing.T) {
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus Status
		wantReason string
	}{
		{"no checks", nil, StatusHealthy, ""},
		{"all ok", map[string]CheckFunc{"database": ok, "mqtt": ok}, StatusHealthy, ""},
		{"one down", map[string]CheckFunc{"database": ok, "mqtt": down}, StatusDegraded, "mqtt unavailable"},
		{"first failing by name", map[string]CheckFunc{"mqtt": down, "influxdb": down}, StatusDegraded, "influxdb unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReporter(Config{Daemon: "graylogic-access", Checks: tt.checks})
			msg := r.Evaluate(context.Background())
			if msg.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", msg.Status, tt.wantStatus)
			}
			if msg.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", msg.Reason, tt.wantReason)
			}
			if len(msg.Checks) != len(tt.checks) {
				t.Errorf("len(Checks) = %d, want %d", len(msg.Checks), len(tt.checks))
			}
		})
	}
}

func TestPublishNow(t *testing.T) {
	pub := &mockPublisher{}
	r := NewReporter(Config{
		Daemon:    "graylogic-access",
		Version:   "1.2.3",
		Transport: "mqtt",
		Publisher: pub,
		Checks:    map[string]CheckFunc{"database": ok},
		Stats:     func() Stats { return Stats{Devices: 4, Readers: 2} },
	})

	if err := r.PublishNow(context.Background()); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}

	msgs := pub.published()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	if msgs[0].topic != "graylogic/access/health" || msgs[0].qos != 1 || !msgs[0].retained {
		t.Errorf("published to %q qos=%d retained=%v", msgs[0].topic, msgs[0].qos, msgs[0].retained)
	}
	got := decodeMessage(t, msgs[0])
	if got.Status != StatusHealthy || got.Version != "1.2.3" || got.Stats.Devices != 4 || got.Checks["database"] != "ok" {
		t.Errorf("message = %+v", got)
	}
}

func TestPublishStarting(t *testing.T) {
	pub := &mockPublisher{}
	r := NewReporter(Config{Publisher: pub, Checks: map[string]CheckFunc{"database": ok}})
	if err := r.PublishStarting(); err != nil {
		t.Fatalf("PublishStarting() error = %v", err)
	}
	got := decodeMessage(t, pub.published()[0])
	if got.Status != StatusStarting || got.Checks != nil {
		t.Errorf("message = %+v", got)
	}
}

func TestPublishNow_Error(t *testing.T) {
	r := NewReporter(Config{Publisher: &mockPublisher{err: errors.New("not connected")}})
	if err := r.PublishNow(context.Background()); err == nil {
		t.Fatal("PublishNow() error = nil, want error")
	}
}

func TestPublishNow_NoPublisher(t *testing.T) {
	r := NewReporter(Config{})
	if err := r.PublishNow(context.Background()); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}
}

func TestStartStop(t *testing.T) {
	pub := &mockPublisher{}
	r := NewReporter(Config{Publisher: pub, Interval: 10 * time.Millisecond})

	r.Start(context.Background())
	deadline := time.Now().Add(time.Second)
	for len(pub.published()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()
	r.Stop()

	msgs := pub.published()
	if len(msgs) < 3 {
		t.Fatalf("published %d messages, want at least 3", len(msgs))
	}
	if last := decodeMessage(t, msgs[len(msgs)-1]); last.Status != StatusStopping {
		t.Errorf("last Status = %q, want %q", last.Status, StatusStopping)
	}
}
