package logbuf

import (
	"context"
	"log/slog"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// Handler copies records at or above its level into a Buffer and passes
// them on to an inner handler, which applies its own level.
type Handler struct {
	inner  slog.Handler
	buf    *Buffer
	level  slog.Leveler
	attrs  map[string]any
	prefix string
}

// NewHandler wraps inner. Records at level or above are kept in buf.
func NewHandler(inner slog.Handler, buf *Buffer, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{inner: inner, buf: buf, level: level}
}

func (h *Handler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level.Level() || h.inner.Enabled(ctx, l)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level.Level() {
		attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
		for k, v := range h.attrs {
			attrs[k] = v
		}
		r.Attrs(func(a slog.Attr) bool {
			flatten(attrs, h.prefix, a)
			return true
		})
		if len(attrs) == 0 {
			attrs = nil
		}
		h.buf.Write(entry(r, attrs))
	}
	if h.inner.Enabled(ctx, r.Level) {
		return h.inner.Handle(ctx, r)
	}
	return nil
}

func (h *Handler) WithAttrs(as []slog.Attr) slog.Handler {
	attrs := make(map[string]any, len(h.attrs)+len(as))
	for k, v := range h.attrs {
		attrs[k] = v
	}
	for _, a := range as {
		flatten(attrs, h.prefix, a)
	}
	return &Handler{inner: h.inner.WithAttrs(as), buf: h.buf, level: h.level, attrs: attrs, prefix: h.prefix}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &Handler{inner: h.inner.WithGroup(name), buf: h.buf, level: h.level, attrs: h.attrs, prefix: h.prefix + name + "."}
}

// flatten stores a under dotted keys, expanding groups.
func flatten(dst map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range v.Group() {
			flatten(dst, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	raw := v.Any()
	// errors marshal to {} otherwise
	if err, ok := raw.(error); ok {
		raw = err.Error()
	}
	dst[prefix+a.Key] = raw
}

func entry(r slog.Record, attrs map[string]any) protocol.LogEntry {
	return protocol.LogEntry{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
		Attrs:   attrs,
	}
}
