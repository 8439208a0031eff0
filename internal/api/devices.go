package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-access/internal/audit"
	"github.com/nerrad567/gray-logic-access/internal/hardware"
)

// handleListDevices returns all devices.
//
// Query parameters:
//   - class: filter by device class (gpio, led, buzzer, alarm, rfid_reader, ...)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	var devices []hardware.Device
	if class := r.URL.Query().Get("class"); class != "" {
		devices = s.devices.ListByClass(hardware.Class(class))
	} else {
		devices = s.devices.ListDevices()
	}
	if devices == nil {
		devices = []hardware.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// lookupDevice resolves a path reference, trying the ID first and then the
// name.
func (s *Server) lookupDevice(ctx context.Context, ref string) (*hardware.Device, error) {
	dev, err := s.devices.GetDevice(ctx, ref)
	if errors.Is(err, hardware.ErrNotFound) {
		return s.devices.FindByName(ctx, ref)
	}
	return dev, err
}

// handleGetDevice returns a single device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.lookupDevice(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		s.writeDomainError(w, err, "device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleCreateDevice creates a new device.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var dev hardware.Device
	if err := json.NewDecoder(r.Body).Decode(&dev); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	if err := s.devices.CreateDevice(r.Context(), &dev); err != nil {
		s.writeDomainError(w, err, "device")
		return
	}

	s.auditLog(audit.ActionCreate, audit.EntityDevice, dev.ID, map[string]any{
		"name":  dev.Name,
		"class": string(dev.Class()),
	})
	writeJSON(w, http.StatusCreated, dev)
}

// handleUpdateDevice replaces a device. The body must carry the version it
// was based on.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	existing, err := s.lookupDevice(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		s.writeDomainError(w, err, "device")
		return
	}

	var dev hardware.Device
	if err := json.NewDecoder(r.Body).Decode(&dev); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	dev.ID = existing.ID

	if err := s.devices.UpdateDevice(r.Context(), &dev); err != nil {
		s.writeDomainError(w, err, "device")
		return
	}

	s.auditLog(audit.ActionUpdate, audit.EntityDevice, dev.ID, map[string]any{
		"name":    dev.Name,
		"version": dev.Version,
	})
	writeJSON(w, http.StatusOK, dev)
}

// handleDeleteDevice removes a device.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.lookupDevice(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		s.writeDomainError(w, err, "device")
		return
	}

	if err := s.devices.DeleteDevice(r.Context(), dev.ID); err != nil {
		s.writeDomainError(w, err, "device")
		return
	}

	s.auditLog(audit.ActionDelete, audit.EntityDevice, dev.ID, map[string]any{"name": dev.Name})
	w.WriteHeader(http.StatusNoContent)
}
