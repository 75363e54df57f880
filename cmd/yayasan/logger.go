package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/goliatone/go-yayasan"
)

var _ yayasan.Logger = &slogLogger{}

// slogLogger adapts a slog.Logger to the printf style yayasan.Logger
type slogLogger struct {
	l *slog.Logger
}

func newLogger(w io.Writer, level string) *slogLogger {
	return &slogLogger{
		l: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})),
	}
}

func (s *slogLogger) Debug(format string, args ...any) {
	s.l.Debug(fmt.Sprintf(format, args...))
}

func (s *slogLogger) Info(format string, args ...any) {
	s.l.Info(fmt.Sprintf(format, args...))
}

func (s *slogLogger) Error(format string, args ...any) {
	s.l.Error(fmt.Sprintf(format, args...))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
