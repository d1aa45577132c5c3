package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ordercheck/ordercheck/internal/store"
)

// handleListFiles lists stored artifacts, optionally filtered with the
// kind query parameter (upload, output or spec).
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	kind := store.Kind(r.URL.Query().Get("kind"))
	switch kind {
	case "", store.KindUpload, store.KindOutput, store.KindSpec:
	default:
		s.respondError(w, r, fmt.Errorf("unknown kind %q", kind), http.StatusBadRequest)
		return
	}

	files, err := s.service.Store().List(r.Context(), kind)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

// handleGetFile returns one artifact's metadata.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	art, err := s.service.Store().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, art)
}

// handleDownloadFile serves an artifact's bytes as an attachment.
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	art, err := s.service.Store().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}
	s.serveArtifact(w, r, art)
}

// handlePreviewFile returns a bounded JSON view of a stored workbook.
// The rows query parameter caps rows per sheet (default 50, max 500).
func (s *Server) handlePreviewFile(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, r, fmt.Errorf("invalid rows value %q", v), http.StatusBadRequest)
			return
		}
		limit = min(n, 500)
	}

	sheets, err := s.service.PreviewArtifact(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sheets": sheets})
}

// handleDeleteFile removes an artifact and its backing file.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Store().Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// serveArtifact streams a stored file with download headers.
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, art store.Artifact) {
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Name))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, art.Path)
}
