package web

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
)

// uploadFile extracts the uploaded file from a multipart form, bounded
// by the configured size limit. The caller must close the returned file.
func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) (string, multipart.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", nil, fmt.Errorf("file exceeds the %d byte upload limit", maxErr.Limit)
		}
		return "", nil, fmt.Errorf("missing form file %q: %w", "file", err)
	}
	return header.Filename, file, nil
}

// uploadContext bounds one pipeline run by the configured upload timeout.
func (s *Server) uploadContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.cfg.Upload.Timeout)
}

// handleConvert accepts a PDF order document and returns the converted
// workbook artifact together with extraction details.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	name, file, err := s.uploadFile(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer file.Close()

	ctx, cancel := s.uploadContext(r)
	defer cancel()

	res, err := s.service.ConvertPDF(ctx, name, file)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleCheck compares an uploaded order document against a stored
// spec. The spec is selected with the spec_id form value.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	name, file, err := s.uploadFile(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer file.Close()

	specID := r.FormValue("spec_id")
	if specID == "" {
		s.respondError(w, r, errors.New("spec_id is required"), http.StatusBadRequest)
		return
	}

	ctx, cancel := s.uploadContext(r)
	defer cancel()

	res, err := s.service.CheckOrder(ctx, specID, name, file)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleDiagnose reports what the pipeline would extract from a file
// without storing anything.
func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	name, file, err := s.uploadFile(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer file.Close()

	ctx, cancel := s.uploadContext(r)
	defer cancel()

	res, err := s.service.Diagnose(ctx, name, file)
	if err != nil {
		s.respondError(w, r, err, statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
