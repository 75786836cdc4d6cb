package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/anime-bot/pkg/config"
)

func TestNewInstrumentsCommands(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := New(context.Background(), config.RedisConfig{Addr: mr.Addr(), DB: 2, PoolTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	before := testutil.ToFloat64(redisRequestsTotal.WithLabelValues("get"))
	errsBefore := testutil.ToFloat64(redisErrorsTotal.WithLabelValues("get"))

	_, err = client.Get(context.Background(), "missing").Result()
	require.Error(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(redisRequestsTotal.WithLabelValues("get")))
	assert.Equal(t, errsBefore, testutil.ToFloat64(redisErrorsTotal.WithLabelValues("get")))

	opt := client.QueueOpt()
	assert.Equal(t, mr.Addr(), opt.Addr)
	assert.Equal(t, 2, opt.DB)
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), config.RedisConfig{Addr: addr, MaxRetries: -1})
	require.Error(t, err)
}
