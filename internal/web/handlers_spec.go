package web

import (
	"errors"
	"net/http"

	"github.com/ordercheck/ordercheck/internal/core"
	"github.com/ordercheck/ordercheck/internal/store"
)

// handleImportSpec accepts a spec workbook, normalizes it and stores
// it for later checks. Rejected specs return 422 with the mapping and
// validation reports so the caller can see what to fix.
func (s *Server) handleImportSpec(w http.ResponseWriter, r *http.Request) {
	name, file, err := s.uploadFile(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer file.Close()

	ctx, cancel := s.uploadContext(r)
	defer cancel()

	res, err := s.service.ImportSpec(ctx, name, file)
	if err != nil {
		if errors.Is(err, core.ErrSpecInvalid) {
			s.respondErrorDetail(w, r, err, http.StatusUnprocessableEntity, res)
			return
		}
		s.respondError(w, r, err, statusForError(err))
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// handleListSpecs lists stored specs, newest first.
func (s *Server) handleListSpecs(w http.ResponseWriter, r *http.Request) {
	specs, err := s.service.Store().List(r.Context(), store.KindSpec)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"specs": specs})
}

// handleSpecTemplate generates an empty spec workbook with the current
// canonical columns and serves it as a download.
func (s *Server) handleSpecTemplate(w http.ResponseWriter, r *http.Request) {
	art, err := s.service.SpecTemplate(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.serveArtifact(w, r, art)
}
