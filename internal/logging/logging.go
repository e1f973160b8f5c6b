package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds the process logger. Console output is human readable; json
// output is one object per line for log shippers.
func New(out io.Writer, level string, json bool) (zerolog.Logger, error) {
	parsedLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("failed to parse log level: %w", err)
	}
	if out == nil {
		out = os.Stderr
	}
	if !json {
		out = zerolog.ConsoleWriter{Out: out}
	}

	return zerolog.New(out).Level(parsedLevel).With().Timestamp().Logger(), nil
}

// Component returns a child logger tagged with the component name
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
