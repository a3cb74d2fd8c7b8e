package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/home-presence-core/internal/device"
	"github.com/nerrad567/home-presence-core/internal/mac"
)

// handleListDevices returns all known devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.registry.List(r.Context())
	if err != nil {
		s.logger.Error("listing devices failed", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns one device by MAC (any accepted format).
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.registry.Get(r.Context(), chi.URLParam(r, "mac"))
	if err != nil {
		s.writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleCreateDevice records a device. The body carries the MAC plus any
// fields to set; creating an already-known device is an update (the
// operation is an upsert, POST and PUT share semantics).
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeRawBody(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	var macField string
	if rawMAC, ok := raw["mac"]; ok {
		if err := json.Unmarshal(rawMAC, &macField); err != nil {
			writeBadRequest(w, "mac must be a string")
			return
		}
	}
	if macField == "" {
		writeBadRequest(w, "mac is required")
		return
	}

	upd, err := decodeDeviceUpdate(raw)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	d, err := s.registry.Upsert(r.Context(), macField, upd)
	if err != nil {
		s.writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// handleUpdateDevice applies a partial update to a device by MAC.
// Absent keys leave fields untouched; explicit nulls clear them.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeRawBody(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	upd, err := decodeDeviceUpdate(raw)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	d, err := s.registry.Upsert(r.Context(), chi.URLParam(r, "mac"), upd)
	if err != nil {
		s.writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleDeleteDevice removes a device.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(r.Context(), chi.URLParam(r, "mac")); err != nil {
		s.writeDeviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetDeviceOwner assigns or clears a device's owner.
// Body: {"owner_id": 3} to assign, {"owner_id": null} to clear.
func (s *Server) handleSetDeviceOwner(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OwnerID *int64 `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	d, err := s.registry.SetOwner(r.Context(), chi.URLParam(r, "mac"), body.OwnerID)
	if err != nil {
		s.writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// writeDeviceError maps device-layer errors to HTTP responses.
func (s *Server) writeDeviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mac.ErrInvalidMAC):
		writeBadRequest(w, "invalid MAC address")
	case errors.Is(err, device.ErrLabelTooLong):
		writeBadRequest(w, "label too long")
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
	case errors.Is(err, device.ErrOwnerNotFound):
		writeNotFound(w, "owner not found")
	default:
		s.logger.Error("device operation failed", "error", err)
		writeInternalError(w, "device operation failed")
	}
}

// decodeRawBody decodes a JSON object body preserving key presence, so a
// partial update can distinguish "absent" from "explicitly null".
func decodeRawBody(r *http.Request) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON body")
	}
	return raw, nil
}

// decodeDeviceUpdate builds a tri-state update from raw JSON fields.
func decodeDeviceUpdate(raw map[string]json.RawMessage) (device.Update, error) {
	var upd device.Update
	var err error

	if val, ok := raw["label"]; ok {
		if upd.Label, err = decodeStringField(val, "label"); err != nil {
			return upd, err
		}
	}
	if val, ok := raw["band"]; ok {
		if upd.Band, err = decodeStringField(val, "band"); err != nil {
			return upd, err
		}
	}
	if val, ok := raw["ip"]; ok {
		if upd.IP, err = decodeStringField(val, "ip"); err != nil {
			return upd, err
		}
	}
	if val, ok := raw["presence_type"]; ok {
		if upd.PresenceType, err = decodeStringField(val, "presence_type"); err != nil {
			return upd, err
		}
	}
	if val, ok := raw["owner_id"]; ok {
		if upd.OwnerID, err = decodeInt64Field(val, "owner_id"); err != nil {
			return upd, err
		}
	}

	return upd, nil
}

// decodeStringField interprets a raw JSON value as set-or-clear.
func decodeStringField(raw json.RawMessage, field string) (*sql.NullString, error) {
	if isJSONNull(raw) {
		return &sql.NullString{}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%s must be a string or null", field)
	}
	return &sql.NullString{String: s, Valid: true}, nil
}

// decodeInt64Field interprets a raw JSON value as set-or-clear.
func decodeInt64Field(raw json.RawMessage, field string) (*sql.NullInt64, error) {
	if isJSONNull(raw) {
		return &sql.NullInt64{}, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("%s must be an integer or null", field)
	}
	return &sql.NullInt64{Int64: n, Valid: true}, nil
}

// isJSONNull reports whether a raw value is the JSON null literal.
func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
