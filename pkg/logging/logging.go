// Package logging configures the process-wide zerolog logger for
// s3invreport and tracks per-run progress.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger *zerolog.Logger

func init() {
	l := zerolog.New(os.Stderr).With().Timestamp().Logger()
	logger = &l
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Init configures the global logger. debug lowers the level to Debug;
// human swaps the JSON stream for zerolog's console writer.
func Init(debug, human bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if human {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(out).With().Timestamp().Logger()
	logger = &l
}

// L returns the base logger.
func L() *zerolog.Logger {
	return logger
}

// WithPhase returns a logger tagged with the pipeline phase.
func WithPhase(phase string) zerolog.Logger {
	return logger.With().Str("phase", phase).Logger()
}

// SetLogger replaces the global logger; tests use it to capture output.
func SetLogger(l zerolog.Logger) {
	logger = &l
}
