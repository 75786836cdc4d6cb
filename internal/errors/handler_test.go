package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/anime-bot/pkg/logger"
)

func newTestHandler(sentryEnabled bool) (*Handler, *[]map[string]string) {
	var captured []map[string]string
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), sentryEnabled)
	h.capture = func(_ error, tags map[string]string) {
		captured = append(captured, tags)
	}
	return h, &captured
}

func TestHandleClassifiesPlainErrorsAsInternal(t *testing.T) {
	h, _ := newTestHandler(false)

	appErr := h.Handle(context.Background(), errors.New("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, CodeInternal, appErr.Code)
	assert.Equal(t, SeverityHigh, appErr.Severity)
}

func TestHandleKeepsAppErrorCode(t *testing.T) {
	h, _ := newTestHandler(false)

	appErr := h.Handle(context.Background(), fmt.Errorf("purchase: %w", NewInsufficientFundsError(100, 10)))
	require.NotNil(t, appErr)
	assert.Equal(t, CodeInsufficientFunds, appErr.Code)
}

func TestHandleIgnoresCancellation(t *testing.T) {
	h, captured := newTestHandler(true)

	assert.Nil(t, h.Handle(context.Background(), fmt.Errorf("send: %w", context.Canceled)))
	assert.Nil(t, h.Handle(context.Background(), nil))
	assert.Empty(t, *captured)
}

func TestHandleReportsOnlySevereErrors(t *testing.T) {
	h, captured := newTestHandler(true)
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	h.Handle(ctx, NewValidationError("bad year"))
	h.Handle(ctx, NewDatabaseError(errors.New("connection reset")))

	require.Len(t, *captured, 1)
	assert.Equal(t, CodeStore, (*captured)[0]["code"])
	assert.Equal(t, "corr-1", (*captured)[0]["correlation_id"])
}

func TestHandleSkipsSentryWhenDisabled(t *testing.T) {
	h, captured := newTestHandler(false)

	h.Handle(context.Background(), NewDatabaseError(errors.New("connection reset")))
	assert.Empty(t, *captured)
}
