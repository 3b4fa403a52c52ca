package forwarded

import (
	"context"
)

// Logger records diagnostic events emitted by Reconciler.
//
// Implementations should be safe for concurrent use, as a single Reconciler
// instance is typically shared across many goroutines.
//
// The provided context comes from the inbound HTTP request and can carry
// tracing metadata (for example, trace or span IDs).
//
// The interface mirrors slog's DebugContext and WarnContext signatures, so
// *slog.Logger can be used directly without an adapter.
type Logger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
}

// noopLogger is the default Logger implementation when logging is not
// explicitly configured.
type noopLogger struct{}

func (noopLogger) DebugContext(context.Context, string, ...any) {}

func (noopLogger) WarnContext(context.Context, string, ...any) {}
