// Package applog provides the structured event log that sits alongside the
// colored human-facing output in internal/termcolor (SPEC_FULL.md §4.0).
package applog

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.Mutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()
)

// Init configures the global logger's verbosity. debug enables debug-level
// events (the one per buildutil.Run subprocess invocation); otherwise only
// warnings and errors are emitted.
func Init(debug bool) {
	mu.Lock()
	defer mu.Unlock()
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger = logger.Level(level)
}

// L returns the global logger.
func L() *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return &logger
}
