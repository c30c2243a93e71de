// Package logging defines the structured-logging interface used across the
// client and the sandbox backend, with slog and zap implementations.
package logging

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "login finished", "email", email, "requires_mfa", true)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

// Options selects and tunes a Logger implementation.
type Options struct {
	Backend string // "slog" or "zap"
	Level   string // "debug", "info", "warn", "error"
	Format  string // "text" or "json"
	Output  io.Writer
}

// New builds a Logger for the requested backend. Unknown backends fall back
// to slog.
func New(opts Options) (Logger, error) {
	switch strings.ToLower(opts.Backend) {
	case "zap":
		return NewZapLoggerFromOptions(opts)
	case "", "slog":
		return NewSlogLoggerFromOptions(opts), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", opts.Backend)
	}
}

// Nop discards everything. Handy as a default for optional collaborators.
type Nop struct{}

func (Nop) Debug(context.Context, string, ...any) {}
func (Nop) Info(context.Context, string, ...any)  {}
func (Nop) Warn(context.Context, string, ...any)  {}
func (Nop) Error(context.Context, string, ...any) {}
func (n Nop) With(...any) Logger                  { return n }
