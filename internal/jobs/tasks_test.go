package jobs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiryNoticeIDIsDailyPerUser(t *testing.T) {
	morning := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	nextDay := morning.Add(24 * time.Hour)

	assert.Equal(t, "expiry-notice:42:2026-03-01", ExpiryNoticeID(42, morning))
	assert.Equal(t, ExpiryNoticeID(42, morning), ExpiryNoticeID(42, evening))
	assert.NotEqual(t, ExpiryNoticeID(42, morning), ExpiryNoticeID(42, nextDay))
	assert.NotEqual(t, ExpiryNoticeID(42, morning), ExpiryNoticeID(43, morning))
}

func TestNewExpiryNoticeTaskCarriesUser(t *testing.T) {
	task, err := NewExpiryNoticeTask(42)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeExpiryNotice, task.Type())

	var payload ExpiryNoticePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, int64(42), payload.UserID)
}

func TestNewExpirySweepTask(t *testing.T) {
	task := NewExpirySweepTask()
	assert.Equal(t, TaskTypeExpirySweep, task.Type())
	assert.Empty(t, task.Payload())
}
