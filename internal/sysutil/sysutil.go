// Package sysutil holds process-level helpers shared by the CLI and the HTTP
// layer: global logger setup and lenient flag parsing.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logOutput is the sink SetupLogger writes to; tests swap it.
var logOutput io.Writer = os.Stderr

var levels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
	"panic":   zerolog.PanicLevel,
}

// SetupLogger installs the global zerolog logger at the given level. JSON
// lines by default; pretty selects the console writer for local runs.
func SetupLogger(level string, pretty bool) {
	SetLogLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer = logOutput
	if pretty {
		out = zerolog.ConsoleWriter{Out: logOutput, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("service", "recipes").Logger()
}

// SetLogLevel sets the global level by name, case-insensitively. Unknown
// names fall back to info.
func SetLogLevel(name string) {
	lvl, ok := levels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// IsTruthy accepts 1, true, yes, y and on in any case. Query flags such as
// is_favorited and boolean env vars share it.
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
