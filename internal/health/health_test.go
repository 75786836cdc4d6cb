package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

func passing(context.Context) error { return nil }

func TestCheckerReportsEveryComponent(t *testing.T) {
	c := NewChecker(nil)
	c.Register("ok", passing)
	c.Register("db", func(context.Context) error { return errors.New("connection refused") })
	c.Register("", passing)
	c.Register("nil", nil)

	report := c.Run(context.Background())

	assert.False(t, report.Healthy)
	require.Len(t, report.Components, 2)
	assert.True(t, report.Components["ok"].OK)
	assert.False(t, report.Components["db"].OK)
	assert.Equal(t, "connection refused", report.Components["db"].Error)
}

func TestCheckerTimesOutHungChecks(t *testing.T) {
	c := NewChecker(nil)
	c.timeout = 20 * time.Millisecond
	c.Register("hung", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	report := c.Run(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, report.Healthy)
	assert.Equal(t, context.DeadlineExceeded.Error(), report.Components["hung"].Error)
}

func TestRedisProbe(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	probe := Redis(client)
	assert.NoError(t, probe(context.Background()))

	mr.Close()
	assert.Error(t, probe(context.Background()))
	assert.ErrorIs(t, Redis(nil)(context.Background()), redis.ErrClosed)
}

func TestTelegramProbe(t *testing.T) {
	ctx := context.Background()

	assert.ErrorIs(t, Telegram(nil)(ctx), errBotOffline)
	assert.ErrorIs(t, Telegram(&telebot.Bot{})(ctx), errBotOffline)
	assert.NoError(t, Telegram(&telebot.Bot{Me: &telebot.User{ID: 42}})(ctx))
}

func TestReadyzReflectsChecks(t *testing.T) {
	healthy := NewChecker(nil)
	healthy.Register("redis", passing)

	rec := httptest.NewRecorder()
	NewRouter(healthy, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := NewChecker(nil)
	failing.Register("db", func(context.Context) error { return errors.New("down") })

	rec = httptest.NewRecorder()
	NewRouter(failing, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]Status `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "down", body.Checks["db"].Error)
}

func TestHealthzAndMetrics(t *testing.T) {
	router := NewRouter(nil, nil)

	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
