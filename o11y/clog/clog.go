// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package clog provides context aware logging.
// It can store trace, spanID, arbitrary labels in each context.
// Every line logged through a context carries that context's trace, span
// ID and labels as fields.
package clog

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

type contextKeyType int

var contextKey contextKeyType

var base = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
})

// New creates a new Logger with no trace context attached.
func New(ctx context.Context) *Logger {
	return &Logger{}
}

// NewContext sets the given logger in the context.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey, logger)
}

// NewSpan sets a new logger.Span with the given labels in the context.
func NewSpan(ctx context.Context, trace, spanID string, labels map[string]string) context.Context {
	logger, _ := ctx.Value(contextKey).(*Logger)
	return NewContext(ctx, logger.Span(trace, spanID, labels))
}

// FromContext returns the logger in the context, or nil if it's not set.
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey).(*Logger)
	if !ok {
		return nil
	}
	return logger
}

// Logger holds the trace, spanID, and arbitrary labels of the context.
type Logger struct {
	trace  string
	spanID string
	labels map[string]string
}

// Span returns a sub logger for the trace span.
func (l *Logger) Span(trace, spanID string, labels map[string]string) *Logger {
	return &Logger{
		trace:  trace,
		spanID: spanID,
		labels: labels,
	}
}

func (l *Logger) fields() []any {
	if l == nil {
		return nil
	}
	var kv []any
	if l.trace != "" {
		kv = append(kv, "trace", l.trace)
	}
	if l.spanID != "" {
		kv = append(kv, "span", l.spanID)
	}
	for k, v := range l.labels {
		kv = append(kv, k, v)
	}
	return kv
}

func (l *Logger) logAt(level log.Level, msg string) {
	base.With(l.fields()...).Log(level, msg)
}

// Info logs at info log level in the manner of fmt.Print.
func (l *Logger) Info(args ...any) { l.logAt(log.InfoLevel, fmt.Sprint(args...)) }

// Infoln logs at info log level in the manner of fmt.Println.
func (l *Logger) Infoln(args ...any) { l.logAt(log.InfoLevel, fmt.Sprintln(args...)) }

// Infof logs at info log level in the manner of fmt.Printf.
func (l *Logger) Infof(format string, args ...any) { l.logAt(log.InfoLevel, fmt.Sprintf(format, args...)) }

// Infof logs at info log level in the manner of fmt.Printf, using the
// logger attached to ctx.
func Infof(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Infof(format, args...)
}

// Warning logs at warning log level in the manner of fmt.Print.
func (l *Logger) Warning(args ...any) { l.logAt(log.WarnLevel, fmt.Sprint(args...)) }

// Warningln logs at warning log level in the manner of fmt.Println.
func (l *Logger) Warningln(args ...any) { l.logAt(log.WarnLevel, fmt.Sprintln(args...)) }

// Warningf logs at warning log level in the manner of fmt.Printf.
func (l *Logger) Warningf(format string, args ...any) {
	l.logAt(log.WarnLevel, fmt.Sprintf(format, args...))
}

// Warningf logs at warning log level in the manner of fmt.Printf, using the
// logger attached to ctx.
func Warningf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Warningf(format, args...)
}

// Error logs at error log level in the manner of fmt.Print.
func (l *Logger) Error(args ...any) { l.logAt(log.ErrorLevel, fmt.Sprint(args...)) }

// Errorln logs at error log level in the manner of fmt.Println.
func (l *Logger) Errorln(args ...any) { l.logAt(log.ErrorLevel, fmt.Sprintln(args...)) }

// Errorf logs at error log level in the manner of fmt.Printf.
func (l *Logger) Errorf(format string, args ...any) {
	l.logAt(log.ErrorLevel, fmt.Sprintf(format, args...))
}

// Errorf logs at error log level in the manner of fmt.Printf, using the
// logger attached to ctx.
func Errorf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Errorf(format, args...)
}

// Fatal logs at fatal log level in the manner of fmt.Print, and exits.
func (l *Logger) Fatal(args ...any) {
	l.logAt(log.FatalLevel, fmt.Sprint(args...))
	os.Exit(1)
}

// Fatalf logs at fatal log level in the manner of fmt.Printf, and exits.
func (l *Logger) Fatalf(format string, args ...any) {
	l.logAt(log.FatalLevel, fmt.Sprintf(format, args...))
	os.Exit(1)
}

// Fatalf logs at fatal log level in the manner of fmt.Printf, using the
// logger attached to ctx, and exits.
func Fatalf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Fatalf(format, args...)
}

// V reports whether debug-level logging is enabled; level is ignored.
func (l *Logger) V(level int) bool {
	return base.GetLevel() <= log.DebugLevel
}

// Close closes the logger. charmbracelet/log writes synchronously, so
// there is nothing to flush.
func (l *Logger) Close() {}
