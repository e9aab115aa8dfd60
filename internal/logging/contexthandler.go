package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// ContextProvider is a function that returns dynamic context attributes.
type ContextProvider func() []slog.Attr

// ContextHandler wraps another handler and injects dynamic context attributes.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

// NewContextHandler creates a handler that adds dynamic context to each record.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{
		inner:    inner,
		provider: provider,
	}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds dynamic context attributes and delegates to the inner handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider()...)
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler with the given attributes.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		inner:    h.inner.WithAttrs(attrs),
		provider: h.provider,
	}
}

// WithGroup returns a new ContextHandler with the given group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:    h.inner.WithGroup(name),
		provider: h.provider,
	}
}

// EpisodeTracker holds the episode currently being rolled out so that log
// records can be tagged with it. Safe for concurrent use.
type EpisodeTracker struct {
	envID   atomic.Value
	episode atomic.Uint64
	step    atomic.Int64
	active  atomic.Bool
}

// Begin marks the start of an episode.
func (t *EpisodeTracker) Begin(envID string, episodeID uint) {
	t.envID.Store(envID)
	t.episode.Store(uint64(episodeID))
	t.step.Store(0)
	t.active.Store(true)
}

// Step records the current step number.
func (t *EpisodeTracker) Step(n int) {
	t.step.Store(int64(n))
}

// End clears the active episode.
func (t *EpisodeTracker) End() {
	t.active.Store(false)
}

// Attrs is a ContextProvider for the tracked episode.
func (t *EpisodeTracker) Attrs() []slog.Attr {
	if !t.active.Load() {
		return nil
	}
	env, _ := t.envID.Load().(string)
	return []slog.Attr{
		slog.String("env", env),
		slog.Uint64("episode", t.episode.Load()),
		slog.Int64("step", t.step.Load()),
	}
}
