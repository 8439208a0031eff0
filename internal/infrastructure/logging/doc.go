// Package logging provides structured logging for Gray Logic Access.
//
// This package wraps Go's standard log/slog package so every component
// (reader loops, device actors, the command bus, the HTTP API) logs with the
// same shape.
//
// # Features
//
//   - JSON output for production, text output for bench work
//   - Default fields (service, version) on all log entries
//   - Per-component child loggers via Component
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Component("wiegand").Info("reader started", "reader", "front-door")
//
// # Security
//
// Never log PIN codes or broker passwords. Card identifiers may be logged at
// debug level only.
package logging
