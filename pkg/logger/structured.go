package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var zlog zerolog.Logger

// InitStructured initializes the structured zerolog logger
func InitStructured(env string) {
	var w io.Writer

	if env == "development" || env == "dev" || env == "local" {
		// Pretty console output for development
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	} else {
		// JSON output for production (machine-readable)
		w = os.Stdout
	}

	zlog = zerolog.New(w).With().
		Timestamp().
		Str("service", "brightpost-backend").
		Logger()

	zerolog.TimeFieldFormat = time.RFC3339
}

// GetLogger returns the global zerolog logger
func GetLogger() *zerolog.Logger {
	return &zlog
}

// WithClient returns a logger with client_id field
func WithClient(clientID int64) zerolog.Logger {
	return zlog.With().Int64("client_id", clientID).Logger()
}

// WithContent returns a logger with content_id and client_id fields
func WithContent(contentID, clientID int64) zerolog.Logger {
	return zlog.With().
		Int64("content_id", contentID).
		Int64("client_id", clientID).
		Logger()
}
