package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/home-presence-core/internal/owner"
)

// handleListOwners returns all owners, home first, then people alphabetically.
func (s *Server) handleListOwners(w http.ResponseWriter, r *http.Request) {
	owners, err := s.owners.List(r.Context())
	if err != nil {
		s.logger.Error("listing owners failed", "error", err)
		writeInternalError(w, "failed to list owners")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"owners": owners, "count": len(owners)})
}

// handleCreateOwner adds an owner. Body: {"name": "alice", "kind": "person"};
// kind is optional and defaults to person.
func (s *Server) handleCreateOwner(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	o, err := s.owners.Create(r.Context(), body.Name, body.Kind)
	if err != nil {
		s.writeOwnerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// handleUpdateOwner changes an owner's name and optionally its kind.
// Body: {"name": "alicia", "kind": "person"}; omitted kind is unchanged.
func (s *Server) handleUpdateOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOwnerID(w, r)
	if !ok {
		return
	}

	var body struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	o, err := s.owners.Update(r.Context(), id, body.Name, body.Kind)
	if err != nil {
		s.writeOwnerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// handleDeleteOwner removes an owner, detaching their devices.
func (s *Server) handleDeleteOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOwnerID(w, r)
	if !ok {
		return
	}

	if err := s.owners.Delete(r.Context(), id); err != nil {
		s.writeOwnerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseOwnerID extracts and validates the {id} URL parameter.
func parseOwnerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeBadRequest(w, "invalid owner id")
		return 0, false
	}
	return id, true
}

// writeOwnerError maps owner-layer errors to HTTP responses.
func (s *Server) writeOwnerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, owner.ErrNameRequired):
		writeBadRequest(w, "name is required")
	case errors.Is(err, owner.ErrNameTooLong):
		writeBadRequest(w, "name too long")
	case errors.Is(err, owner.ErrKindInvalid):
		writeBadRequest(w, "kind must be person or home")
	case errors.Is(err, owner.ErrNameTaken):
		writeConflict(w, "name already in use")
	case errors.Is(err, owner.ErrOwnerNotFound):
		writeNotFound(w, "owner not found")
	case errors.Is(err, owner.ErrOwnerProtected):
		writeForbidden(w, "the reserved owner cannot be deleted")
	default:
		s.logger.Error("owner operation failed", "error", err)
		writeInternalError(w, "owner operation failed")
	}
}
