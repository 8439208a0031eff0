package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Gray Logic Access.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	NATS      NATSConfig      `yaml:"nats"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Hardware  HardwareConfig  `yaml:"hardware"`
	Readers   []ReaderConfig  `yaml:"readers"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// NATSConfig contains NATS connection settings used by the NATS command transport.
type NATSConfig struct {
	Enabled       bool          `yaml:"enabled"`
	URL           string        `yaml:"url"`
	Name          string        `yaml:"name"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains settings for the access event stream.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Command transports understood by HardwareConfig.Transport.
const (
	TransportLocal = "local"
	TransportMQTT  = "mqtt"
	TransportNATS  = "nats"
)

// GPIO drivers understood by HardwareConfig.GPIODriver.
const (
	GPIODriverNone   = "none"
	GPIODriverPeriph = "periph"
)

// HardwareConfig controls the device command bus and the reader event loops.
type HardwareConfig struct {
	// Transport selects how device facades reach their backends:
	// "local" (in-process actors), "mqtt" or "nats".
	Transport string `yaml:"transport"`

	// CommandTimeout bounds every facade request/acknowledge round trip.
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// TickInterval is how often each reader strategy receives a timeout tick.
	// Must stay well below the 1500ms pin inactivity threshold.
	TickInterval time.Duration `yaml:"tick_interval"`

	// GPIODriver selects the pin driver used for local GPIO actors and
	// Wiegand D0/D1 edge detection: "none" or "periph".
	GPIODriver string `yaml:"gpio_driver"`

	// HealthInterval is how often daemon health is published on MQTT.
	HealthInterval time.Duration `yaml:"health_interval"`
}

// ReaderConfig declares one Wiegand reader driven by this daemon.
type ReaderConfig struct {
	Name       string        `yaml:"name"`
	Mode       string        `yaml:"mode"`
	D0Pin      string        `yaml:"d0_pin"`
	D1Pin      string        `yaml:"d1_pin"`
	MaxBits    int           `yaml:"max_bits"`
	PinTimeout time.Duration `yaml:"pin_timeout"`
	PinEndKey  string        `yaml:"pin_end_key"`
}

// maxTickInterval is the slowest tick that still gives acceptable PIN entry latency.
const maxTickInterval = 250 * time.Millisecond

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_DATABASE_PATH, GRAYLOGIC_HARDWARE_TRANSPORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyReaderDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Gray Logic Access",
		},
		Database: DatabaseConfig{
			Path:        "./data/graylogic-access.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-access",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Name:          "graylogic-access",
			MaxReconnects: 60,
			ReconnectWait: 2 * time.Second,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Hardware: HardwareConfig{
			Transport:      TransportLocal,
			CommandTimeout: 5 * time.Second,
			TickInterval:   100 * time.Millisecond,
			GPIODriver:     GPIODriverNone,
			HealthInterval: 30 * time.Second,
		},
	}
}

// applyReaderDefaults fills per-reader fields left empty in the file.
func (c *Config) applyReaderDefaults() {
	for i := range c.Readers {
		r := &c.Readers[i]
		if r.Mode == "" {
			r.Mode = "SIMPLE_WIEGAND"
		}
		if r.MaxBits == 0 {
			r.MaxBits = 64
		}
		if r.PinTimeout == 0 {
			r.PinTimeout = 2500 * time.Millisecond
		}
		if r.PinEndKey == "" {
			r.PinEndKey = "#"
		}
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("GRAYLOGIC_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}

	if v := os.Getenv("GRAYLOGIC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("GRAYLOGIC_HARDWARE_TRANSPORT"); v != "" {
		cfg.Hardware.Transport = v
	}
	if v := os.Getenv("GRAYLOGIC_HARDWARE_COMMAND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Hardware.CommandTimeout = d
		}
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	switch c.Hardware.Transport {
	case TransportLocal:
	case TransportMQTT:
		if !c.MQTT.Enabled {
			errs = append(errs, "hardware.transport mqtt requires mqtt.enabled")
		}
	case TransportNATS:
		if !c.NATS.Enabled || c.NATS.URL == "" {
			errs = append(errs, "hardware.transport nats requires nats.enabled and nats.url")
		}
	default:
		errs = append(errs, fmt.Sprintf("hardware.transport %q must be local, mqtt, or nats", c.Hardware.Transport))
	}

	if c.Hardware.CommandTimeout <= 0 {
		errs = append(errs, "hardware.command_timeout must be positive")
	}
	if c.Hardware.TickInterval <= 0 || c.Hardware.TickInterval > maxTickInterval {
		errs = append(errs, "hardware.tick_interval must be between 1ms and 250ms")
	}
	if c.Hardware.GPIODriver != GPIODriverNone && c.Hardware.GPIODriver != GPIODriverPeriph {
		errs = append(errs, fmt.Sprintf("hardware.gpio_driver %q must be none or periph", c.Hardware.GPIODriver))
	}

	seen := make(map[string]struct{}, len(c.Readers))
	for i, r := range c.Readers {
		if r.Name == "" {
			errs = append(errs, fmt.Sprintf("readers[%d].name is required", i))
			continue
		}
		if _, dup := seen[r.Name]; dup {
			errs = append(errs, fmt.Sprintf("readers[%d].name %q is duplicated", i, r.Name))
		}
		seen[r.Name] = struct{}{}
		if r.MaxBits < 1 || r.MaxBits > 256 {
			errs = append(errs, fmt.Sprintf("readers[%d].max_bits must be between 1 and 256", i))
		}
		if len(r.PinEndKey) != 1 {
			errs = append(errs, fmt.Sprintf("readers[%d].pin_end_key must be a single character", i))
		}
		if c.Hardware.GPIODriver == GPIODriverPeriph && (r.D0Pin == "" || r.D1Pin == "") {
			errs = append(errs, fmt.Sprintf("readers[%d] needs d0_pin and d1_pin with the periph driver", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
