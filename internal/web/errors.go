package web

// errors.go provides unified error response handling for the API.
//
// Every handler error passes through respondError, which logs the full
// technical error with the request ID for correlation and returns a
// sanitized JSON body to the client.

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ordercheck/ordercheck/internal/core"
	"github.com/ordercheck/ordercheck/internal/logging"
	"github.com/ordercheck/ordercheck/internal/store"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	// Detail carries structured context for rejected uploads, such as
	// the mapping and validation reports for an invalid spec.
	Detail any `json:"detail,omitempty"`
}

// respondError logs err and writes a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	s.respondErrorDetail(w, r, err, statusCode, nil)
}

// respondErrorDetail is respondError with an extra payload for the client.
func (s *Server) respondErrorDetail(w http.ResponseWriter, r *http.Request, err error, statusCode int, detail any) {
	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)

	msg := err.Error()
	if statusCode == http.StatusInternalServerError {
		// Internal details stay in the log.
		msg = "internal server error"
	}
	writeJSON(w, statusCode, ErrorResponse{Error: msg, Detail: detail})
}

// statusForError maps known service errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrSpecInvalid):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
