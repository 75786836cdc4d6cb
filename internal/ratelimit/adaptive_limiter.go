package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/Proton-105/anime-bot/internal/errors"
)

const (
	backendRedis  = "redis"
	backendMemory = "memory"
)

var (
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_checks_total",
		Help: "Rate limit checks by backend and result.",
	}, []string{"backend", "result"})

	primaryErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_primary_errors_total",
		Help: "Shared limiter failures that forced the in-memory fallback.",
	})
)

// AdaptiveLimiter checks the shared primary limiter and degrades to a local
// one at half the limit when the primary fails. Repeated failures open a
// circuit breaker so a Redis outage does not cost a round trip per update.
// Rejections are reported as ErrLimitExceeded together with the result.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	breaker  *apperrors.CircuitBreaker
	log      *slog.Logger
}

func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) Limiter {
	if log == nil {
		log = slog.Default()
	}

	return &AdaptiveLimiter{
		primary:  primary,
		fallback: fallback,
		breaker: apperrors.NewCircuitBreakerWithSettings(apperrors.BreakerSettings{
			MinRequests: 5,
			OpenTimeout: 15 * time.Second,
			OnStateChange: func(from, to apperrors.State) {
				log.Warn("circuit breaker state changed", slog.String("from", from.String()), slog.String("to", to.String()))
			},
		}),
		log: log,
	}
}

func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	var result *Result
	err := a.breaker.Call(func() error {
		var err error
		result, err = a.primary.Check(ctx, key, limit, window)
		return err
	})
	if err == nil {
		return verdict(backendRedis, result)
	}

	if !errors.Is(err, apperrors.ErrCircuitOpen) {
		primaryErrorsTotal.Inc()
		a.log.Warn("shared rate limiter failed, using in-memory fallback", slog.String("key", key), slog.Any("error", err))
	}

	fallbackLimit := limit / 2
	if fallbackLimit <= 0 {
		fallbackLimit = 1
	}

	result, err = a.fallback.Check(ctx, key, fallbackLimit, window)
	if err != nil && !errors.Is(err, ErrLimitExceeded) {
		return result, err
	}
	return verdict(backendMemory, result)
}

func verdict(backend string, result *Result) (*Result, error) {
	if result == nil || result.Allowed {
		checksTotal.WithLabelValues(backend, "allowed").Inc()
		return result, nil
	}

	checksTotal.WithLabelValues(backend, "rejected").Inc()
	return result, ErrLimitExceeded
}
