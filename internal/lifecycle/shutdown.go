// Package lifecycle coordinates the ordered shutdown of long-lived components.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Hook is one named step of the shutdown sequence.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Shutdown stops components last-started first, so the poller and workers
// go down before the stores they write to.
type Shutdown struct {
	log *slog.Logger

	mu    sync.Mutex
	hooks []Hook
}

func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}
	return &Shutdown{log: log}
}

// Register appends a hook. Nil functions are ignored.
func (s *Shutdown) Register(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.hooks = append(s.hooks, Hook{Name: name, Fn: fn})
	s.mu.Unlock()
}

// Close registers closer.Close under name.
func (s *Shutdown) Close(name string, closer interface{ Close() error }) {
	if closer == nil {
		return
	}
	s.Register(name, func(context.Context) error { return closer.Close() })
}

// Execute drains the hooks, last registered first. Every hook runs even after
// a failure; once ctx expires the remaining ones are skipped and reported.
// A second call is a no-op.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	began := time.Now()
	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i].run(ctx, s.log); err != nil {
			errs = append(errs, err)
		}
	}
	s.log.Info("shutdown complete",
		slog.Int("hooks", len(hooks)),
		slog.Int("failed", len(errs)),
		slog.Duration("elapsed", time.Since(began)),
	)
	return errors.Join(errs...)
}

func (h Hook) run(ctx context.Context, log *slog.Logger) error {
	if err := ctx.Err(); err != nil {
		log.Warn("shutdown hook skipped", slog.String("hook", h.Name))
		return fmt.Errorf("%s: %w", h.Name, err)
	}

	began := time.Now()
	if err := h.Fn(ctx); err != nil {
		log.Error("shutdown hook failed", slog.String("hook", h.Name), slog.Any("error", err))
		return fmt.Errorf("%s: %w", h.Name, err)
	}
	log.Info("stopped", slog.String("hook", h.Name), slog.Duration("took", time.Since(began)))
	return nil
}
