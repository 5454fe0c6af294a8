package log

import "context"

// NopLogger discards every log event. It is the default logger for all
// genesis components so that wiring a real backend stays optional.
type NopLogger struct{}

// NewNop creates a no-op logger.
//
//nolint:ireturn
func NewNop() Logger {
	return &NopLogger{}
}

// Log drops the event.
func (l *NopLogger) Log(_ context.Context, _ Level, _ string, _ ...Field) {}

// With returns the same no-op logger.
//
//nolint:ireturn
func (l *NopLogger) With(_ ...Field) Logger { return l }

// WithGroup returns the same no-op logger.
//
//nolint:ireturn
func (l *NopLogger) WithGroup(_ string) Logger { return l }

// Enabled always reports false.
func (l *NopLogger) Enabled(_ Level) bool { return false }

// Sync is a no-op and always returns nil.
func (l *NopLogger) Sync(_ context.Context) error { return nil }

// OrNop returns logger when non-nil, otherwise a NopLogger. Constructors
// use it to normalize optional logger arguments.
//
//nolint:ireturn
func OrNop(logger Logger) Logger {
	if logger != nil {
		return logger
	}

	return &NopLogger{}
}
