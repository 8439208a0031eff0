package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-access/internal/audit"
	"github.com/nerrad567/gray-logic-access/internal/hardware"
	"github.com/nerrad567/gray-logic-access/internal/hardware/facade"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-access/internal/zone"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// CommandTelemetry records device command round trips.
type CommandTelemetry interface {
	WriteCommandLatency(device, verb string, ok bool, elapsed time.Duration)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config         config.APIConfig
	WS             config.WebSocketConfig
	Logger         *logging.Logger
	Devices        *hardware.Registry
	Zones          zone.Repository
	AuditRepo      audit.Repository // optional: audit trail and GET /audit
	Transport      facade.Transport // optional: device commands fail with 503 without it
	CommandTimeout time.Duration    // zero selects facade.DefaultTimeout
	Telemetry      CommandTelemetry // optional
	Hub            *Hub             // optional: shared with the access dispatcher
	Version        string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg            config.APIConfig
	wsCfg          config.WebSocketConfig
	logger         *logging.Logger
	devices        *hardware.Registry
	zones          zone.Repository
	auditRepo      audit.Repository
	auditCh        chan *audit.Entry
	transport      facade.Transport
	commandTimeout time.Duration
	telemetry      CommandTelemetry
	version        string
	server         *http.Server
	hub            *Hub
	externalHub    bool               // true if hub was injected externally
	cancel         context.CancelFunc // cancels background goroutines on Close()
	done           chan struct{}      // closed when the audit drain exits
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Devices == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Zones == nil {
		return nil, fmt.Errorf("zone repository is required")
	}

	s := &Server{
		cfg:            deps.Config,
		wsCfg:          deps.WS,
		logger:         deps.Logger,
		devices:        deps.Devices,
		zones:          deps.Zones,
		auditRepo:      deps.AuditRepo,
		transport:      deps.Transport,
		commandTimeout: deps.CommandTimeout,
		telemetry:      deps.Telemetry,
		version:        deps.Version,
	}
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	}
	return s, nil
}

// Handler builds the router and starts the background workers without
// opening a listener. Start uses it; tests serve it with httptest.
func (s *Server) Handler(ctx context.Context) http.Handler {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	s.done = make(chan struct{})
	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
		go func() {
			defer close(s.done)
			s.drainAuditLog(srvCtx)
		}()
	} else {
		close(s.done)
	}

	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.Handler(ctx),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then stops
// the WebSocket hub and flushes queued audit entries.
func (s *Server) Close() error {
	var err error
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		s.logger.Info("API server shutting down")
		if shutdownErr := s.server.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("shutting down API server: %w", shutdownErr)
		}
	}

	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
	return err
}

// Hub returns the WebSocket hub. It is nil before Handler or Start.
func (s *Server) Hub() *Hub {
	return s.hub
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
