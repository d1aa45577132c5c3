// Package logging configures structured logging with log/slog.
//
// Loggers pulled through FromContext carry the chi request ID, so
// every entry emitted while converting an order document or running a
// check can be correlated back to the originating request.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// "json" suits production log shippers; "text" suits local runs.
func Setup(level, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns a logger enriched with request context.
//
// When the context carries a chi RequestID the returned logger
// includes request_id on every entry, tying conversion and check logs
// to the HTTP request that triggered them.
//
// Usage:
//
//	func handleCheck(w http.ResponseWriter, r *http.Request) {
//	    logger := logging.FromContext(r.Context())
//	    logger.Info("running order check", "spec_id", specID)
//	}
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	// Chi's RequestID middleware stores the ID in context
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
// Pipeline stages use this to carry the same identifiers across every
// entry of a multi-step operation.
//
// Usage:
//
//	convLogger := logging.WithFields(ctx,
//	    "upload_id", uploadID,
//	    "filename", name,
//	)
//	convLogger.Info("conversion started")
//	// ... later ...
//	convLogger.Info("conversion finished", "tables", len(doc.Tables))
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
