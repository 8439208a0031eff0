package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
site:
  id: "test-site"
database:
  path: "/tmp/test.db"
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
hardware:
  transport: mqtt
  command_timeout: 2s
  tick_interval: 50ms
readers:
  - name: front-door
    mode: WIEGAND_PIN_4BITS
  - name: back-door
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.Hardware.CommandTimeout != 2*time.Second {
		t.Errorf("Hardware.CommandTimeout = %v, want 2s", cfg.Hardware.CommandTimeout)
	}
	if cfg.Hardware.TickInterval != 50*time.Millisecond {
		t.Errorf("Hardware.TickInterval = %v, want 50ms", cfg.Hardware.TickInterval)
	}
	if len(cfg.Readers) != 2 {
		t.Fatalf("len(Readers) = %d, want 2", len(cfg.Readers))
	}
	back := cfg.Readers[1]
	if back.Mode != "SIMPLE_WIEGAND" {
		t.Errorf("default reader mode = %q, want SIMPLE_WIEGAND", back.Mode)
	}
	if back.PinTimeout != 2500*time.Millisecond || back.PinEndKey != "#" || back.MaxBits != 64 {
		t.Errorf("reader defaults not applied: %+v", back)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "invalid: [yaml: content")); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
site:
  id: ""
hardware:
  tick_interval: 2s
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	for _, want := range []string{"site.id", "hardware.tick_interval"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}, wantErr: false},
		{name: "missing site ID", mutate: func(c *Config) { c.Site.ID = "" }, wantErr: true},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid port", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: true},
		{name: "port ignored when api disabled", mutate: func(c *Config) { c.API.Enabled = false; c.API.Port = 0 }, wantErr: false},
		{name: "unknown transport", mutate: func(c *Config) { c.Hardware.Transport = "zmq" }, wantErr: true},
		{name: "nats transport without nats", mutate: func(c *Config) { c.Hardware.Transport = TransportNATS }, wantErr: true},
		{name: "nats transport", mutate: func(c *Config) { c.Hardware.Transport = TransportNATS; c.NATS.Enabled = true }, wantErr: false},
		{name: "mqtt transport without mqtt", mutate: func(c *Config) { c.Hardware.Transport = TransportMQTT; c.MQTT.Enabled = false }, wantErr: true},
		{name: "zero command timeout", mutate: func(c *Config) { c.Hardware.CommandTimeout = 0 }, wantErr: true},
		{name: "tick too slow", mutate: func(c *Config) { c.Hardware.TickInterval = time.Second }, wantErr: true},
		{name: "unknown gpio driver", mutate: func(c *Config) { c.Hardware.GPIODriver = "sysfs" }, wantErr: true},
		{
			name: "duplicate reader",
			mutate: func(c *Config) {
				c.Readers = []ReaderConfig{
					{Name: "r1", MaxBits: 64, PinEndKey: "#"},
					{Name: "r1", MaxBits: 64, PinEndKey: "#"},
				}
			},
			wantErr: true,
		},
		{
			name: "periph reader without pins",
			mutate: func(c *Config) {
				c.Hardware.GPIODriver = GPIODriverPeriph
				c.Readers = []ReaderConfig{{Name: "r1", MaxBits: 26, PinEndKey: "#"}}
			},
			wantErr: true,
		},
		{
			name: "bad end key",
			mutate: func(c *Config) {
				c.Readers = []ReaderConfig{{Name: "r1", MaxBits: 26, PinEndKey: "##"}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{Read: 30, Write: 45, Idle: 60},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("GRAYLOGIC_DATABASE_PATH", "/custom/path.db")
	t.Setenv("GRAYLOGIC_MQTT_HOST", "mqtt.example.com")
	t.Setenv("GRAYLOGIC_NATS_URL", "nats://bus:4222")
	t.Setenv("GRAYLOGIC_API_PORT", "9000")
	t.Setenv("GRAYLOGIC_HARDWARE_TRANSPORT", "nats")
	t.Setenv("GRAYLOGIC_HARDWARE_COMMAND_TIMEOUT", "750ms")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.NATS.URL != "nats://bus:4222" {
		t.Errorf("NATS.URL = %q, want %q", cfg.NATS.URL, "nats://bus:4222")
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.Hardware.Transport != TransportNATS {
		t.Errorf("Hardware.Transport = %q, want nats", cfg.Hardware.Transport)
	}
	if cfg.Hardware.CommandTimeout != 750*time.Millisecond {
		t.Errorf("Hardware.CommandTimeout = %v, want 750ms", cfg.Hardware.CommandTimeout)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.Hardware.Transport != TransportLocal {
		t.Errorf("defaultConfig Hardware.Transport = %q, want local", cfg.Hardware.Transport)
	}
	if cfg.Hardware.TickInterval > maxTickInterval {
		t.Errorf("defaultConfig TickInterval %v exceeds %v", cfg.Hardware.TickInterval, maxTickInterval)
	}
}
