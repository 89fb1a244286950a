package logging

import (
	"context"
	"errors"
	"log/slog"
)

// StatsFunc returns attributes computed when a record is handled, such as
// running feed counters.
type StatsFunc func() []slog.Attr

// fanoutHandler sends each record to every handler enabled for its level.
type fanoutHandler []slog.Handler

func newFanout(handlers ...slog.Handler) fanoutHandler {
	var out fanoutHandler
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle keeps going when one sink fails; the joined error is returned.
func (f fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// statsHandler appends the stats attributes, grouped under "stats",
// to every record it handles.
type statsHandler struct {
	slog.Handler
	stats StatsFunc
}

func (h statsHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.stats != nil {
		if attrs := h.stats(); len(attrs) > 0 {
			args := make([]any, len(attrs))
			for i, a := range attrs {
				args[i] = a
			}
			r.AddAttrs(slog.Group("stats", args...))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h statsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return statsHandler{Handler: h.Handler.WithAttrs(attrs), stats: h.stats}
}

func (h statsHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return statsHandler{Handler: h.Handler.WithGroup(name), stats: h.stats}
}
