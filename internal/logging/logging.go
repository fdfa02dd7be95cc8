// Package logging builds the structured logger shared by the CLI and the
// orchestrator
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to stderr. Pretty selects the human console
// format; otherwise each event is one JSON line. Unknown levels fall back to
// info.
func New(level string, pretty bool) zerolog.Logger {
	return NewWithWriter(os.Stderr, level, pretty)
}

// NewWithWriter is New with an explicit destination
func NewWithWriter(w io.Writer, level string, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel converts a level name, defaulting to info
func ParseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return parsed
}
