package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// NewLogger returns a JSON logger writing to w. Records logged with a
// context carrying a span get top-level trace_id and span_id attributes.
func NewLogger(w io.Writer, level slog.Level, attrs ...slog.Attr) *slog.Logger {
	base := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	var handler slog.Handler = &traceHandler{base: base}
	if len(attrs) > 0 {
		handler = handler.WithAttrs(attrs)
	}
	return slog.New(handler)
}

// ParseLevel maps debug, info, warn and error (any case) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// scope is one WithAttrs or WithGroup call, replayed in order.
type scope struct {
	group string
	attrs []slog.Attr
}

type traceHandler struct {
	base   slog.Handler
	scopes []scope
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle rebuilds the handler chain per record so that the trace attributes
// stay outside any group opened with WithGroup.
func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	handler := h.base

	if traceID, spanID, ok := spanIDs(ctx); ok {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("trace_id", traceID),
			slog.String("span_id", spanID),
		})
	}

	for _, s := range h.scopes {
		if s.group != "" {
			handler = handler.WithGroup(s.group)
			continue
		}
		handler = handler.WithAttrs(s.attrs)
	}

	return handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(scope{attrs: append([]slog.Attr(nil), attrs...)})
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(scope{group: name})
}

func (h *traceHandler) with(s scope) *traceHandler {
	scopes := make([]scope, len(h.scopes), len(h.scopes)+1)
	copy(scopes, h.scopes)
	return &traceHandler{
		base:   h.base,
		scopes: append(scopes, s),
	}
}
