package util

import (
	"os"
	"strings"
	"time"

	stdlog "log"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Logger = zerolog.Logger

// LogLevel represents available log levels
type LogLevel = int

// Log levels
const (
	TraceLevel LogLevel = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
)

// verbosityLevels maps CLI verbosity 1 (quiet) .. 5 (chatty) to a LogLevel
var verbosityLevels = [5]LogLevel{ErrorLevel, WarnLevel, InfoLevel, DebugLevel, TraceLevel}

// LevelFromVerbosity converts a CLI verbosity into a LogLevel.
// Values outside 1..5 are clamped.
func LevelFromVerbosity(verbose int) LogLevel {
	verbose = max(1, min(verbose, len(verbosityLevels)))
	return verbosityLevels[verbose-1]
}

func zerologLevel(lvl LogLevel) zerolog.Level {
	switch lvl {
	case TraceLevel:
		return zerolog.TraceLevel
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// InitializeLogger sets up the global logger with the specified level.
// Output goes to stderr so stdout stays free for command output.
func InitializeLogger(level LogLevel) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerologLevel(level))

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	ctx := zerolog.New(output).With().Timestamp()
	if level == TraceLevel {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
	log.Debug().Msg("Logger initialized")
}

// GetLogger returns a configured logger for a specific component
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// zerologWriter wraps zerolog to implement io.Writer for stdlog
type zerologWriter struct {
	logger zerolog.Logger
	level  zerolog.Level
}

func (w zerologWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	w.logger.WithLevel(w.level).Msg(msg)
	return len(p), nil
}

// NewLogLogger returns a stdlog.Logger that routes every line to zerolog at lvl.
// Used for libraries (go-fuse) that only accept a *log.Logger.
func NewLogLogger(component string, lvl LogLevel) *stdlog.Logger {
	logger := GetLogger(component)
	return stdlog.New(zerologWriter{logger: logger, level: zerologLevel(lvl)}, "", 0)
}
