// Package log builds the process-wide zerolog logger.
package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns the service logger.  Production writes JSON to stdout;
// any other environment gets the human-readable console writer.
func New(env string) zerolog.Logger {
	if env == "prod" {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(out).With().Timestamp().Logger().Level(zerolog.DebugLevel)
}
