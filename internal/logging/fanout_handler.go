package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler hands every record to each of its targets.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, target := range t {
		if target.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, target := range t {
		if target.Enabled(ctx, record.Level) {
			errs = append(errs, target.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t teeHandler) derive(fn func(slog.Handler) slog.Handler) teeHandler {
	out := make(teeHandler, len(t))
	for i, target := range t {
		out[i] = fn(target)
	}
	return out
}

// TeeLogger returns a logger writing to base and every extra handler. Nil and
// no-op handlers are skipped. The API server uses it to capture one request's
// log for the response body.
func TeeLogger(base *slog.Logger, extra ...slog.Handler) *slog.Logger {
	candidates := extra
	if base != nil {
		candidates = append([]slog.Handler{base.Handler()}, extra...)
	}
	var targets teeHandler
	for _, h := range candidates {
		if h == nil {
			continue
		}
		if _, noop := h.(NoopHandler); noop {
			continue
		}
		targets = append(targets, h)
	}
	switch len(targets) {
	case 0:
		return NewNop()
	case 1:
		return slog.New(targets[0])
	}
	return slog.New(targets)
}
