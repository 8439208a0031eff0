package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-access/internal/audit"
	"github.com/nerrad567/gray-logic-access/internal/zone"
)

// zoneRequest is the body of POST /zones and PUT /zones/{id}.
type zoneRequest struct {
	Alias       string    `json:"alias"`
	Description string    `json:"description"`
	Type        zone.Type `json:"type"`
	Children    []int64   `json:"children"`
	Doors       []int64   `json:"doors"`
	Version     int       `json:"version"`
}

func (req zoneRequest) toZone() *zone.Zone {
	z := &zone.Zone{
		Alias:       req.Alias,
		Description: req.Description,
		Type:        req.Type,
		Version:     req.Version,
		Children:    make([]*zone.Zone, len(req.Children)),
		Doors:       make([]zone.Door, len(req.Doors)),
	}
	for i, id := range req.Children {
		z.Children[i] = &zone.Zone{ID: id}
	}
	for i, id := range req.Doors {
		z.Doors[i] = zone.Door{ID: id}
	}
	return z
}

// zoneResponse flattens graph links to IDs.
type zoneResponse struct {
	ID          int64       `json:"id"`
	Alias       string      `json:"alias"`
	Description string      `json:"description"`
	Type        zone.Type   `json:"type"`
	Children    []int64     `json:"children"`
	Parents     []int64     `json:"parents"`
	Doors       []zone.Door `json:"doors"`
	Version     int         `json:"version"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func newZoneResponse(z *zone.Zone) zoneResponse {
	doors := z.Doors
	if doors == nil {
		doors = []zone.Door{}
	}
	return zoneResponse{
		ID:          z.ID,
		Alias:       z.Alias,
		Description: z.Description,
		Type:        z.Type,
		Children:    z.ChildIDs(),
		Parents:     z.ParentIDs(),
		Doors:       doors,
		Version:     z.Version,
		CreatedAt:   z.CreatedAt,
		UpdatedAt:   z.UpdatedAt,
	}
}

// pathID parses the {id} URL parameter. It writes a 400 and reports false
// when the parameter is not an integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "id must be an integer")
		return 0, false
	}
	return id, true
}

// handleListZones returns every zone.
func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	zones, err := s.zones.List(r.Context())
	if err != nil {
		s.writeDomainError(w, err, "zones")
		return
	}
	resp := make([]zoneResponse, len(zones))
	for i, z := range zones {
		resp[i] = newZoneResponse(z)
	}
	writeJSON(w, http.StatusOK, map[string]any{"zones": resp, "count": len(resp)})
}

// handleGetZone returns a single zone.
func (s *Server) handleGetZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	z, err := s.zones.GetByID(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err, "zone")
		return
	}
	writeJSON(w, http.StatusOK, newZoneResponse(z))
}

// handleCreateZone creates a zone. A body that would break the topology
// rules is rejected with 422 and nothing is stored.
func (s *Server) handleCreateZone(w http.ResponseWriter, r *http.Request) {
	var req zoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	z := req.toZone()
	if err := s.zones.Create(r.Context(), z); err != nil {
		s.writeDomainError(w, err, "zone")
		return
	}

	s.respondZone(w, r, z.ID, http.StatusCreated)
	s.auditLog(audit.ActionCreate, audit.EntityZone, strconv.FormatInt(z.ID, 10), map[string]any{
		"alias": z.Alias,
		"type":  string(z.Type),
	})
}

// handleUpdateZone replaces a zone and its links.
func (s *Server) handleUpdateZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req zoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	z := req.toZone()
	z.ID = id
	if err := s.zones.Update(r.Context(), z); err != nil {
		s.writeDomainError(w, err, "zone")
		return
	}

	s.respondZone(w, r, id, http.StatusOK)
	s.auditLog(audit.ActionUpdate, audit.EntityZone, strconv.FormatInt(id, 10), map[string]any{
		"alias":   z.Alias,
		"version": z.Version,
	})
}

// respondZone reloads the zone so the response carries its parents.
func (s *Server) respondZone(w http.ResponseWriter, r *http.Request, id int64, status int) {
	stored, err := s.zones.GetByID(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err, "zone")
		return
	}
	writeJSON(w, status, newZoneResponse(stored))
}

// handleDeleteZone removes a zone.
func (s *Server) handleDeleteZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.zones.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, err, "zone")
		return
	}
	s.auditLog(audit.ActionDelete, audit.EntityZone, strconv.FormatInt(id, 10), nil)
	w.WriteHeader(http.StatusNoContent)
}
