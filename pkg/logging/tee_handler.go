package logging

import (
	"context"
	"log/slog"
)

// teeHandler duplicates every record onto a stdout handler and a Sentry
// handler. Unlike a generic N-way multiplexer this module only ever needs
// exactly these two fixed destinations (NewWithSentry is the sole caller),
// so the shape stays two named fields rather than a []slog.Handler loop.
type teeHandler struct {
	stdout slog.Handler
	sentry slog.Handler
}

func newTeeHandler(stdout, sentry slog.Handler) slog.Handler {
	return &teeHandler{stdout: stdout, sentry: sentry}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.stdout.Enabled(ctx, level) || h.sentry.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, rec slog.Record) error {
	if h.stdout.Enabled(ctx, rec.Level) {
		if err := h.stdout.Handle(ctx, rec.Clone()); err != nil {
			return err
		}
	}
	if h.sentry.Enabled(ctx, rec.Level) {
		if err := h.sentry.Handle(ctx, rec.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return newTeeHandler(h.stdout.WithAttrs(attrs), h.sentry.WithAttrs(attrs))
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return newTeeHandler(h.stdout.WithGroup(name), h.sentry.WithGroup(name))
}
