// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package trace manages in-memory execution traces for a scan request.
package trace

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.chromium.org/infra/build/incscan/o11y/clog"
)

// Context is a trace context for a single scan request.
type Context struct {
	traceID uuid.UUID

	mu sync.Mutex
	// spans holds every span created under this trace, in creation order;
	// spans[0] is the root span.
	spans []*Span
}

// New creates a new trace context with a fresh random trace ID.
func New(ctx context.Context) *Context {
	return &Context{traceID: uuid.New()}
}

// ID returns the trace ID as a string.
func (t *Context) ID() string {
	if t == nil {
		return ""
	}
	return t.traceID.String()
}

// Spans returns a snapshot of every span recorded in the trace context.
func (t *Context) Spans() []SpanData {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	data := make([]SpanData, 0, len(t.spans))
	for _, s := range t.spans {
		sd := s.data()
		if sd.Name == "" {
			continue
		}
		data = append(data, sd)
	}
	return data
}

func (t *Context) newSpan(ctx context.Context, name string, parent *Span) *Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := fmt.Sprintf("%s-%d", name, len(t.spans))
	if parent == nil && len(t.spans) > 0 {
		parent = t.spans[0]
	}
	var spanID [8]byte
	s := sha256.Sum256([]byte(id))
	copy(spanID[:], s[:])
	span := &Span{
		t:           t,
		spanID:      spanID,
		parent:      parent,
		displayName: name,
		start:       time.Now(),
		attrs:       make(map[string]any),
	}
	clog.Infof(ctx, "new span %s %x<%v", name, spanID, parent)
	t.spans = append(t.spans, span)
	return span
}

type contextKeyType int

const (
	contextKey contextKeyType = iota
	spanKey
)

// NewContext returns a new context carrying the trace context t.
func NewContext(ctx context.Context, t *Context) context.Context {
	return context.WithValue(ctx, contextKey, t)
}

// NewSpan starts a new span as a child of the current span in ctx (if any)
// and returns a context carrying it, along with the span itself. If ctx
// carries no trace context, it returns ctx unchanged and a nil span; every
// method on a nil *Span is a no-op, so callers never need to check it.
func NewSpan(ctx context.Context, name string) (context.Context, *Span) {
	t, ok := ctx.Value(contextKey).(*Context)
	if !ok || t == nil {
		return ctx, nil
	}
	parent, _ := ctx.Value(spanKey).(*Span)
	span := t.newSpan(ctx, name, parent)
	return context.WithValue(ctx, spanKey, span), span
}

// CurSpan returns the current span in ctx, or nil if there isn't one.
func CurSpan(ctx context.Context) *Span {
	span, ok := ctx.Value(spanKey).(*Span)
	if !ok {
		return nil
	}
	return span
}

// Span is a single timed operation within a trace.
type Span struct {
	t      *Context
	spanID [8]byte
	parent *Span

	mu          sync.Mutex
	displayName string
	start       time.Time
	end         time.Time
	attrs       map[string]any
	err         error
}

// SetAttr attaches an attribute to the span, e.g. the artifact or search
// path index being processed.
func (s *Span) SetAttr(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[key] = value
}

// Close marks the span as finished, optionally recording the error (if
// any) that ended the operation it measured.
func (s *Span) Close(err error) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.end = time.Now()
	s.err = err
}

func (s *Span) data() SpanData {
	if s == nil {
		return SpanData{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	end := s.end
	if end.IsZero() {
		end = time.Now()
	}
	attrs := make(map[string]any, len(s.attrs))
	for k, v := range s.attrs {
		attrs[k] = v
	}
	return SpanData{
		Name:  s.displayName,
		Start: s.start,
		End:   end,
		Attrs: attrs,
		Err:   s.err,
	}
}

// SpanData is an immutable snapshot of a Span.
type SpanData struct {
	Name  string
	Start time.Time
	End   time.Time
	Attrs map[string]any
	Err   error
}

// Duration returns the measured duration of the span.
func (sd SpanData) Duration() time.Duration {
	return sd.End.Sub(sd.Start)
}
