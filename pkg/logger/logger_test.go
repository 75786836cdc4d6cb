package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskingHandlerHidesSecrets(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewTextHandler(&buf, nil)))

	log.Info("connecting", slog.String("token", "123:abc"), slog.String("user", "anime"))

	out := buf.String()
	assert.NotContains(t, out, "123:abc")
	assert.Contains(t, out, "token=***")
	assert.Contains(t, out, "user=anime")
}

func TestMaskingHandlerScrubsBotTokens(t *testing.T) {
	var buf bytes.Buffer
	const token = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw"
	log := slog.New(NewMaskingHandler(slog.NewTextHandler(&buf, nil))).
		With(slog.Group("bot", slog.String("url", "https://api.telegram.org/bot"+token+"/getMe")))

	log.Error("send failed",
		slog.Any("error", errors.New("Post https://api.telegram.org/bot"+token+"/sendMessage: timeout")),
		slog.Group("request", slog.String("Authorization", "Bearer x")),
		slog.Int64("user_id", 42),
	)

	out := buf.String()
	assert.NotContains(t, out, token)
	assert.Contains(t, out, "request.Authorization=***")
	assert.Contains(t, out, "user_id=42")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "abc")
	assert.Equal(t, "abc", CorrelationIDFromContext(ctx))

	generated := CorrelationIDFromContext(WithCorrelationID(context.Background(), ""))
	assert.Len(t, generated, 36)

	assert.Empty(t, CorrelationIDFromContext(context.Background()))
}

func TestMiddlewareEchoesRequestID(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-9", seen)
	assert.Equal(t, "req-9", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}
