package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-access/internal/audit"
	"github.com/nerrad567/gray-logic-access/internal/zone"
)

// handleListDoors returns every door.
func (s *Server) handleListDoors(w http.ResponseWriter, r *http.Request) {
	doors, err := s.zones.ListDoors(r.Context())
	if err != nil {
		s.writeDomainError(w, err, "doors")
		return
	}
	if doors == nil {
		doors = []zone.Door{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"doors": doors, "count": len(doors)})
}

// handleGetDoor returns a single door.
func (s *Server) handleGetDoor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	door, err := s.zones.GetDoor(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err, "door")
		return
	}
	writeJSON(w, http.StatusOK, door)
}

// handleCreateDoor creates a door. access_point_id, when set, must name an
// existing device.
func (s *Server) handleCreateDoor(w http.ResponseWriter, r *http.Request) {
	var door zone.Door
	if err := json.NewDecoder(r.Body).Decode(&door); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	if err := s.zones.CreateDoor(r.Context(), &door); err != nil {
		s.writeDomainError(w, err, "door")
		return
	}
	s.auditLog(audit.ActionCreate, audit.EntityDoor, strconv.FormatInt(door.ID, 10), map[string]any{
		"alias":           door.Alias,
		"access_point_id": door.AccessPointID,
	})
	writeJSON(w, http.StatusCreated, door)
}

// handleDeleteDoor removes a door and detaches it from every zone.
func (s *Server) handleDeleteDoor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.zones.DeleteDoor(r.Context(), id); err != nil {
		s.writeDomainError(w, err, "door")
		return
	}
	s.auditLog(audit.ActionDelete, audit.EntityDoor, strconv.FormatInt(id, 10), nil)
	w.WriteHeader(http.StatusNoContent)
}
