// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options is embedded as a go-flags group in the command options.
type Options struct {
	Level  string `long:"log-level"  env:"LOG_LEVEL"  description:"Log level (trace, debug, info, warn, error)" default:"info"`
	Format string `long:"log-format" env:"LOG_FORMAT" description:"Log format (text, json)"                     default:"text"`
}

// Setup installs the global logger according to the options.
// Output always goes to stderr.
func (o Options) Setup() {
	setup(o, os.Stderr)
}

func setup(o Options, out io.Writer) {
	level, err := zerolog.ParseLevel(strings.ToLower(o.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer = out
	if strings.ToLower(o.Format) != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}
