package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-access/internal/credential"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-access/internal/wiegand"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("GRAYLOGIC_CONFIG", path)
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_InvalidTransport(t *testing.T) {
	writeConfig(t, `
site:
  id: test-site
hardware:
  transport: carrier-pigeon
`)

	err := run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "hardware.transport") {
		t.Fatalf("run() error = %v, want transport validation error", err)
	}
}

func TestRun_StartupAndShutdown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "access.db")
	writeConfig(t, `
site:
  id: test-site
database:
  path: "`+dbPath+`"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: false
nats:
  enabled: false
api:
  enabled: false
influxdb:
  enabled: false
logging:
  level: error
  format: text
  output: stderr
hardware:
  transport: local
  gpio_driver: none
readers:
  - name: door-front
    mode: WIEGAND_CARD_PIN_4BITS
`)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("GRAYLOGIC_CONFIG", "/custom/config.yaml")
	if got := getConfigPath(); got != "/custom/config.yaml" {
		t.Errorf("getConfigPath() = %q, want /custom/config.yaml", got)
	}
}

func TestOpenTransport(t *testing.T) {
	tests := []struct {
		name       string
		transport  string
		wantScheme string
		wantErr    bool
	}{
		{"local", config.TransportLocal, "inproc", false},
		{"mqtt without client", config.TransportMQTT, "", true},
		{"unknown", "serial", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Hardware: config.HardwareConfig{Transport: tt.transport}}
			transport, closeFn, err := openTransport(cfg, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("openTransport() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("openTransport() error = %v", err)
			}
			defer closeFn() //nolint:errcheck // Test cleanup
			if transport.Scheme() != tt.wantScheme {
				t.Errorf("Scheme() = %q, want %q", transport.Scheme(), tt.wantScheme)
			}
		})
	}
}

// fakeSubscriber records the handler registered by a remote pulse source.
type fakeSubscriber struct {
	mu      sync.Mutex
	topic   string
	handler func(topic string, payload []byte) error
}

func (f *fakeSubscriber) Subscribe(topic string, _ byte, handler func(topic string, payload []byte) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topic = topic
	f.handler = handler
	return nil
}

func TestStartReader_RemotePulses(t *testing.T) {
	sub := &fakeSubscriber{}
	events := make(chan wiegand.Event, 1)
	sink := wiegand.EventSinkFunc(func(_ context.Context, ev wiegand.Event) { events <- ev })

	cfg := &config.Config{
		MQTT:     config.MQTTConfig{QoS: 1},
		Hardware: config.HardwareConfig{GPIODriver: config.GPIODriverNone, TickInterval: 20 * time.Millisecond},
	}
	rc := config.ReaderConfig{
		Name:       "door-front",
		Mode:       "simple_wiegand",
		MaxBits:    64,
		PinTimeout: 2500 * time.Millisecond,
		PinEndKey:  "#",
	}
	log := logging.NewWithWriter(config.LoggingConfig{Level: "error"}, "test", io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	if err := startReader(ctx, &wg, rc, cfg, sub, sink, log); err != nil {
		t.Fatalf("startReader() error = %v", err)
	}
	if sub.topic != "graylogic/access/pulses/door-front" {
		t.Fatalf("subscribed to %q", sub.topic)
	}

	if err := sub.handler(sub.topic, []byte(strings.Repeat("1", 26))); err != nil {
		t.Fatalf("handler() error = %v", err)
	}

	select {
	case ev := <-events:
		if ev.Credential.Kind != credential.KindRFIDCard || ev.Credential.Card == nil {
			t.Fatalf("credential = %+v, want a card", ev.Credential)
		}
		if got := *ev.Credential.Card; got.CardID != "ff:ff:ff:c0" || got.NbBits != 26 {
			t.Errorf("card = %+v, want ff:ff:ff:c0/26", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no credential decoded")
	}
}

func TestStartReader_InvalidMode(t *testing.T) {
	cfg := &config.Config{Hardware: config.HardwareConfig{TickInterval: 20 * time.Millisecond}}
	rc := config.ReaderConfig{Name: "r", Mode: "MORSE", MaxBits: 64, PinEndKey: "#"}
	log := logging.NewWithWriter(config.LoggingConfig{Level: "error"}, "test", io.Discard)
	sink := wiegand.EventSinkFunc(func(context.Context, wiegand.Event) {})

	var wg sync.WaitGroup
	if err := startReader(context.Background(), &wg, rc, cfg, nil, sink, log); err == nil {
		t.Fatal("startReader() error = nil, want invalid mode error")
	}
}
