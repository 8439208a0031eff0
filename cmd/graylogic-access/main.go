// Gray Logic Access - door access controller daemon.
//
// This is the main entry point for the access daemon. It decodes Wiegand
// card and PIN input, drives the reader's LEDs, buzzers, GPIOs and alarms
// through device actors, and publishes every credential on the Gray Logic
// MQTT bus.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nerrad567/gray-logic-access/internal/access"
	"github.com/nerrad567/gray-logic-access/internal/api"
	"github.com/nerrad567/gray-logic-access/internal/audit"
	"github.com/nerrad567/gray-logic-access/internal/hardware"
	"github.com/nerrad567/gray-logic-access/internal/hardware/driver"
	"github.com/nerrad567/gray-logic-access/internal/health"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-access/internal/wiegand"
	"github.com/nerrad567/gray-logic-access/internal/zone"
	"github.com/nerrad567/gray-logic-access/migrations"
)

// Version information, set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	daemonName        = "graylogic-access"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo,funlen // startup sequence reads top to bottom
	log := logging.Default()
	log.Info("starting Gray Logic Access",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"transport", cfg.Hardware.Transport,
		"readers", len(cfg.Readers),
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.Source()); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	registry := hardware.NewRegistry(hardware.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("hardware"))
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry loaded", "devices", registry.DeviceCount())

	zones := zone.NewSQLiteRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled, credentials will not be published")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	transport, closeTransport, err := openTransport(cfg, mqttClient)
	if err != nil {
		return fmt.Errorf("opening %s transport: %w", cfg.Hardware.Transport, err)
	}
	defer func() {
		if closeErr := closeTransport(); closeErr != nil {
			log.Error("error closing transport", "error", closeErr)
		}
	}()
	log.Info("command transport ready", "scheme", transport.Scheme(), "timeout", cfg.Hardware.CommandTimeout)

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go hub.Run(ctx)

	dispatcher := access.NewDispatcher(dispatcherOptions(mqttClient, influxClient, hub,
		audit.NewRecorder(auditRepo, "reader", log.Component("audit")), log.Component("access")))

	pins, err := openPins(cfg.Hardware.GPIODriver)
	if err != nil {
		return err
	}
	actors := driver.NewManager(driver.Options{
		Transport: transport,
		Pins:      pins,
		Timeout:   cfg.Hardware.CommandTimeout,
		Sink:      dispatcher,
		Logger:    log.Component("driver"),
	})
	defer func() {
		if closeErr := actors.Close(); closeErr != nil {
			log.Error("error stopping device actors", "error", closeErr)
		}
	}()
	if startErr := actors.Start(ctx, registry.ListDevices()); startErr != nil {
		// One broken device must not keep the doors from opening.
		log.Error("some device actors failed to start", "error", startErr)
	}

	var readers sync.WaitGroup
	readerCtx, stopReaders := context.WithCancel(ctx)
	defer func() {
		stopReaders()
		readers.Wait()
	}()
	var subscriber wiegand.Subscriber
	if mqttClient != nil {
		subscriber = mqttClient
	}
	for _, rc := range cfg.Readers {
		if startErr := startReader(readerCtx, &readers, rc, cfg, subscriber, dispatcher, log); startErr != nil {
			return fmt.Errorf("starting reader %s: %w", rc.Name, startErr)
		}
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:         cfg.API,
			WS:             cfg.WebSocket,
			Logger:         log.Component("api"),
			Devices:        registry,
			Zones:          zones,
			AuditRepo:      auditRepo,
			Transport:      transport,
			CommandTimeout: cfg.Hardware.CommandTimeout,
			Hub:            hub,
			Version:        version,
		}
		if influxClient != nil {
			deps.Telemetry = influxClient
		}
		apiServer, err = api.New(deps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
	}

	checks := healthChecks(db, mqttClient, influxClient, apiServer)
	if err := startupCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	if mqttClient != nil {
		reporter := health.NewReporter(health.Config{
			Daemon:    daemonName,
			Version:   version,
			Transport: transport.Scheme(),
			Interval:  cfg.Hardware.HealthInterval,
			Publisher: mqttClient,
			Checks:    checks,
			Stats: func() health.Stats {
				return health.Stats{
					Devices:          registry.DeviceCount(),
					Readers:          len(cfg.Readers),
					Actors:           len(actors.Actors()),
					WebSocketClients: hub.ClientCount(),
				}
			},
			Logger: log.Component("health"),
		})
		if pubErr := reporter.PublishStarting(); pubErr != nil {
			log.Warn("failed to publish starting status", "error", pubErr)
		}
		reporter.Start(ctx)
		defer reporter.Stop()
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: health, API, readers,
	// actors, transport, InfluxDB, MQTT, database.
	log.Info("Gray Logic Access stopped")
	return nil
}

// getConfigPath returns GRAYLOGIC_CONFIG when set, otherwise the default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// dispatcherOptions wires only the collaborators that exist, so a nil client
// never ends up inside a non-nil interface.
func dispatcherOptions(mqttClient *mqtt.Client, influxClient *influxdb.Client, hub *api.Hub, auditor access.Auditor, log *logging.Logger) access.Options {
	opts := access.Options{Broadcaster: hub, Auditor: auditor, Logger: log}
	if mqttClient != nil {
		opts.Publisher = mqttClient
	}
	if influxClient != nil {
		opts.Telemetry = influxClient
	}
	return opts
}

// healthChecks lists the dependencies that are configured.
func healthChecks(db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) map[string]health.CheckFunc {
	checks := map[string]health.CheckFunc{"database": db.HealthCheck}
	if mqttClient != nil {
		checks["mqtt"] = mqttClient.HealthCheck
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient.HealthCheck
	}
	if apiServer != nil {
		checks["api"] = apiServer.HealthCheck
	}
	return checks
}

// startupCheck runs every check once and returns all failures.
func startupCheck(ctx context.Context, checks map[string]health.CheckFunc) error {
	var errs []error
	for name, check := range checks {
		if err := check(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
