// Package logging builds the process logger. Console report text goes to
// stdout; everything here writes to stderr unless told otherwise.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the level, format and destination of log output
type Config struct {
	Level  string
	Format string // console or json
	Output io.Writer
}

// Logger is the root logger set by Init. It discards everything until then.
var Logger = zerolog.Nop()

// New builds a logger from cfg. An unknown level falls back to info.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Init replaces the root logger
func Init(cfg Config) {
	Logger = New(cfg)
}

// Component returns a child of the root logger tagged with name
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
