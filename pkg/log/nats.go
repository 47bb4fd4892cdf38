// SPDX-License-Identifier: BSD-3-Clause

package log

import (
	"fmt"
	"log/slog"
)

// NATSLogger adapts the NATS server.Logger interface onto slog.
type NATSLogger struct {
	l *slog.Logger
}

// NewNATSLogger creates a NATS server logger that forwards to the provided slog.Logger.
func NewNATSLogger(l *slog.Logger) *NATSLogger {
	return &NATSLogger{l: l}
}

// Fatalf logs a fatal error message with the given format and arguments.
func (l *NATSLogger) Fatalf(format string, v ...interface{}) {
	l.l.With("subsystem", "nats", "nats_level", "fatal").Error(fmt.Sprintf(format, v...))
}

// Errorf logs an error message with the given format and arguments.
func (l *NATSLogger) Errorf(format string, v ...interface{}) {
	l.l.With("subsystem", "nats", "nats_level", "error").Error(fmt.Sprintf(format, v...))
}

// Warnf logs a warning message with the given format and arguments.
func (l *NATSLogger) Warnf(format string, v ...interface{}) {
	l.l.With("subsystem", "nats", "nats_level", "warn").Warn(fmt.Sprintf(format, v...))
}

// Noticef logs a notice message with the given format and arguments.
func (l *NATSLogger) Noticef(format string, v ...interface{}) {
	l.l.With("subsystem", "nats", "nats_level", "info").Info(fmt.Sprintf(format, v...))
}

// Debugf logs a debug message with the given format and arguments.
func (l *NATSLogger) Debugf(format string, v ...interface{}) {
	l.l.With("subsystem", "nats", "nats_level", "debug").Debug(fmt.Sprintf(format, v...))
}

// Tracef logs a trace message with the given format and arguments.
func (l *NATSLogger) Tracef(format string, v ...interface{}) {
	l.l.With("subsystem", "nats", "nats_level", "trace").Debug(fmt.Sprintf(format, v...))
}
