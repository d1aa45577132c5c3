package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ordercheck/ordercheck/internal/logging"
	"github.com/ordercheck/ordercheck/internal/mapping"
	"github.com/ordercheck/ordercheck/internal/schema"
)

// handleGetConfig returns the current canonical column schema.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	reg := s.service.Schemas().Registry()
	writeJSON(w, http.StatusOK, map[string]any{
		"fields":   reg.Fields(),
		"required": reg.RequiredFields(),
		"optional": reg.OptionalFields(),
	})
}

// handlePutConfig replaces the whole schema with the posted field
// list. Fields are added one by one so duplicate names and aliases are
// rejected the same way as single edits.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Fields []schema.CanonicalField `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	if len(body.Fields) == 0 {
		s.respondError(w, r, errors.New("fields must not be empty"), http.StatusBadRequest)
		return
	}

	err := s.service.Schemas().Update(func(*schema.Registry) (*schema.Registry, error) {
		reg := schema.NewRegistry(nil)
		for _, f := range body.Fields {
			next, err := reg.WithField(f)
			if err != nil {
				return nil, err
			}
			reg = next
		}
		return reg, nil
	})
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	logging.FromContext(r.Context()).Info("schema replaced", "fields", len(body.Fields))
	s.handleGetConfig(w, r)
}

// handleAddField adds a canonical field to the schema.
func (s *Server) handleAddField(w http.ResponseWriter, r *http.Request) {
	var field schema.CanonicalField
	if err := json.NewDecoder(r.Body).Decode(&field); err != nil {
		s.respondError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	if field.Name == "" {
		s.respondError(w, r, errors.New("field name is required"), http.StatusBadRequest)
		return
	}

	err := s.service.Schemas().Update(func(reg *schema.Registry) (*schema.Registry, error) {
		return reg.WithField(field)
	})
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	logging.FromContext(r.Context()).Info("schema field added", "field", field.Name)
	s.handleGetConfig(w, r)
}

// handleRemoveField removes a canonical field from the schema.
func (s *Server) handleRemoveField(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "field")

	err := s.service.Schemas().Update(func(reg *schema.Registry) (*schema.Registry, error) {
		return reg.WithoutField(name)
	})
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	logging.FromContext(r.Context()).Info("schema field removed", "field", name)
	s.handleGetConfig(w, r)
}

// handleAddAlias adds an alias to an existing field.
func (s *Server) handleAddAlias(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "field")

	var body struct {
		Alias string `json:"alias"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Alias == "" {
		s.respondError(w, r, errors.New("request body must carry an alias"), http.StatusBadRequest)
		return
	}

	err := s.service.Schemas().Update(func(reg *schema.Registry) (*schema.Registry, error) {
		return reg.WithAlias(name, body.Alias)
	})
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	logging.FromContext(r.Context()).Info("schema alias added", "field", name, "alias", body.Alias)
	s.handleGetConfig(w, r)
}

// handleRemoveAlias removes an alias from a field.
func (s *Server) handleRemoveAlias(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "field")
	alias := chi.URLParam(r, "alias")

	err := s.service.Schemas().Update(func(reg *schema.Registry) (*schema.Registry, error) {
		return reg.WithoutAlias(name, alias)
	})
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	logging.FromContext(r.Context()).Info("schema alias removed", "field", name, "alias", alias)
	s.handleGetConfig(w, r)
}

// handleResetConfig restores the built-in schema defaults.
func (s *Server) handleResetConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Schemas().Reset(); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	logging.FromContext(r.Context()).Info("schema reset to defaults")
	s.handleGetConfig(w, r)
}

// handleMappingPreview maps a list of column headers onto the current
// schema without touching any stored data.
func (s *Server) handleMappingPreview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Columns []string `json:"columns"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	if len(body.Columns) == 0 {
		s.respondError(w, r, errors.New("columns must not be empty"), http.StatusBadRequest)
		return
	}

	res := mapping.MapColumns(body.Columns, s.service.Schemas().Registry())
	writeJSON(w, http.StatusOK, res)
}
