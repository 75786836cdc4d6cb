package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/anime-bot/pkg/logger"
)

// Handler is the single place where failed updates are logged and, when
// severe enough, forwarded to Sentry.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
	capture       func(err error, tags map[string]string)
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
		capture:       captureToSentry,
	}
}

// Handle records err and returns its classified form. Errors that are not
// AppErrors are treated as internal failures. A cancelled context is not a
// failure and yields nil.
func (h *Handler) Handle(ctx context.Context, err error) *AppError {
	if err == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if errors.Is(err, context.Canceled) {
		h.log.DebugContext(ctx, "update cancelled", slog.Any("error", err))
		return nil
	}

	appErr := Classify(err)

	attrs := []slog.Attr{
		slog.String("code", appErr.Code),
		slog.String("severity", string(appErr.Severity)),
		slog.Bool("retryable", appErr.Retryable),
		slog.Any("error", err),
	}
	correlationID := logger.CorrelationIDFromContext(ctx)
	if correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	h.log.LogAttrs(ctx, levelFor(appErr.Severity), "update failed", attrs...)

	if h.sentryEnabled && h.capture != nil && reportable(appErr.Severity) {
		tags := map[string]string{
			"code":     appErr.Code,
			"severity": string(appErr.Severity),
		}
		if correlationID != "" {
			tags["correlation_id"] = correlationID
		}
		h.capture(err, tags)
	}

	return appErr
}

// Classify returns the AppError in err's chain, or wraps err as an internal
// failure.
func Classify(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr
	}

	return &AppError{
		Code:     CodeInternal,
		Message:  err.Error(),
		Severity: SeverityHigh,
		cause:    err,
	}
}

func levelFor(s Severity) slog.Level {
	switch s {
	case SeverityLow:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func reportable(s Severity) bool {
	return s == SeverityHigh || s == SeverityCritical
}

func captureToSentry(err error, tags map[string]string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}
