// Package log provides a slog wrapper that stamps every record with the
// emitting component.
package log

import (
	"context"
	"log/slog"
	"os"
)

type Logger struct {
	*slog.Logger
	component string
}

// New builds a text-handler logger at the given level scoped to component.
func New(level slog.Level, component string) *Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return &Logger{
		Logger:    slog.New(handler),
		component: component,
	}
}

// WithComponent returns a logger for a sub-component sharing the same handler.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("component", component),
		component: component,
	}
}

// With returns a logger carrying extra attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		component: l.component,
	}
}

func (l *Logger) attrs(args []any) []any {
	return append([]any{"component", l.component}, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.Logger.Info(msg, l.attrs(args)...)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.Logger.InfoContext(ctx, msg, l.attrs(args)...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.Logger.Warn(msg, l.attrs(args)...)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.Logger.WarnContext(ctx, msg, l.attrs(args)...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.Logger.Error(msg, l.attrs(args)...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.Logger.ErrorContext(ctx, msg, l.attrs(args)...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.Logger.Debug(msg, l.attrs(args)...)
}

// SetDefault installs the wrapped slog.Logger as the process default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
