package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jun787/CVA-cupping-forms/internal/schema"
	"github.com/jun787/CVA-cupping-forms/internal/session"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// ValueRequest is the body of PUT /sessions/{id}/values/{field}
type ValueRequest struct {
	Value json.RawMessage `json:"value"`
}

func (s *Server) handleSessionsList(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.store.Create()
	if err != nil {
		s.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(mux.Vars(r)["id"])
	if err != nil {
		s.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionMeta(w http.ResponseWriter, r *http.Request) {
	var patch session.MetaPatch
	if err := decodeBody(w, r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if patch.Empty() {
		respondError(w, http.StatusBadRequest, "patch must set title or sampleName", "")
		return
	}

	sess, err := s.store.UpdateMeta(mux.Vars(r)["id"], patch)
	if err != nil {
		s.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionRemove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.store.Remove(id); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionDuplicate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Duplicate(mux.Vars(r)["id"])
	if err != nil {
		s.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleValuePut(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	field, ok := s.fields.Lookup(vars["field"])
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("field %q not found", vars["field"]), "")
		return
	}

	var req ValueRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if len(req.Value) == 0 {
		respondError(w, http.StatusBadRequest, `body must contain "value"`, "")
		return
	}
	var value any
	if err := json.Unmarshal(req.Value, &value); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if err := checkValue(field, value); err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	s.setValue(w, vars["id"], field.ID, value)
}

func (s *Server) handleValueDelete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if _, ok := s.fields.Lookup(vars["field"]); !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("field %q not found", vars["field"]), "")
		return
	}
	s.setValue(w, vars["id"], vars["field"], nil)
}

// setValue holds the session lock so a value never lands in the middle of an export
func (s *Server) setValue(w http.ResponseWriter, id, fieldID string, value any) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.store.UpdateValue(id, fieldID, value)
	if err != nil {
		s.storeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// checkValue accepts null for every type, otherwise the JSON type the field stores
func checkValue(f schema.FieldDef, value any) error {
	if value == nil {
		return nil
	}
	var ok bool
	switch f.Type {
	case schema.TypeText:
		_, ok = value.(string)
	case schema.TypeCheckbox:
		_, ok = value.(bool)
	case schema.TypeSlider:
		_, ok = value.(float64)
	default:
		return fmt.Errorf("field %s has unknown type %q", f.ID, f.Type)
	}
	if !ok {
		return fmt.Errorf("field %s is a %s and cannot hold %T", f.ID, f.Type, value)
	}
	return nil
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		respondError(w, http.StatusNotFound, err.Error(), "")
		return
	}
	s.logger.WithError(err).Error("Session store failed")
	respondError(w, http.StatusInternalServerError, err.Error(), "")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
