package logger

import (
	"fmt"
	"io"
	"sync"
)

// Log levels accepted in log.level.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Encodings accepted in log.format.
const (
	ConsoleFormat = "console"
	JSONFormat    = "json"
)

// Options selects the level, encoding and destination of a logger.
// Zero values mean debug level, console encoding and stdout.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

var (
	processLogger *Logger
	once          sync.Once
)

// Get returns the process-wide logger. Only the first call's options are
// used; later calls get the same instance back.
func Get(opts Options) *Logger {
	once.Do(func() {
		processLogger = New(opts)
	})
	return processLogger
}

// New builds a standalone logger.
func New(opts Options) *Logger {
	return newZapLogger(opts)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return newNopLogger()
}

// Validate reports whether opts names a known level and format.
// Empty strings are accepted and fall back to the defaults.
func Validate(opts Options) error {
	switch opts.Level {
	case "", DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
	default:
		return fmt.Errorf("unknown log level %q", opts.Level)
	}
	switch opts.Format {
	case "", ConsoleFormat, JSONFormat:
	default:
		return fmt.Errorf("unknown log format %q", opts.Format)
	}
	return nil
}
