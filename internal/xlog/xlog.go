// Package xlog provides the structured logger used throughout the engine.
package xlog

import (
	"log/slog"
	"os"
)

// New returns a structured logger tagged with component, writing to stderr.
func New(component string) *slog.Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(h).With(slog.String("component", component))
}

// Nop returns a logger that discards everything, for tests and for callers
// that have not wired their own.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
