package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Devices are addressed by ID or by name.
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)

			r.Route("/{ref}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Put("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Post("/commands", s.handleDeviceCommand)
			})
		})

		r.Route("/zones", func(r chi.Router) {
			r.Get("/", s.handleListZones)
			r.Post("/", s.handleCreateZone)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetZone)
				r.Put("/", s.handleUpdateZone)
				r.Delete("/", s.handleDeleteZone)
			})
		})

		r.Route("/doors", func(r chi.Router) {
			r.Get("/", s.handleListDoors)
			r.Post("/", s.handleCreateDoor)
			r.Get("/{id}", s.handleGetDoor)
			r.Delete("/{id}", s.handleDeleteDoor)
		})

		r.Post("/credentials/decode", s.handleDecodeCredential)
		r.Get("/audit", s.handleListAuditLogs)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	transport := "none"
	if s.transport != nil {
		transport = s.transport.Scheme()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"version":           s.version,
		"devices":           s.devices.DeviceCount(),
		"transport":         transport,
		"websocket_clients": s.hub.ClientCount(),
	})
}
