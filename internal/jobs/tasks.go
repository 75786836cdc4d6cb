package jobs

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeExpirySweep  = "subscription:expire"
	TaskTypeExpiryNotice = "subscription:notice"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// DefaultQueues weights the queues served by the worker.
var DefaultQueues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

// noticeRetries bounds delivery attempts of one expiry notice.
const noticeRetries = 3

type ExpiryNoticePayload struct {
	UserID int64 `json:"user_id"`
}

// NewExpirySweepTask builds the periodic task that downgrades lapsed subscribers.
// Overlapping sweeps are collapsed by the uniqueness window.
func NewExpirySweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeExpirySweep, nil, asynq.Queue(QueueDefault), asynq.Unique(30*time.Minute))
}

// NewExpiryNoticeTask builds the task telling userID the subscription ended.
// The task id is fixed per user and day, so a retried sweep cannot notify twice.
func NewExpiryNoticeTask(userID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(ExpiryNoticePayload{UserID: userID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeExpiryNotice, payload,
		asynq.Queue(QueueLow),
		asynq.MaxRetry(noticeRetries),
		asynq.TaskID(ExpiryNoticeID(userID, time.Now())),
	), nil
}

// ExpiryNoticeID is the task id of the notice sent to userID on day at.
func ExpiryNoticeID(userID int64, at time.Time) string {
	return "expiry-notice:" + strconv.FormatInt(userID, 10) + ":" + at.UTC().Format(time.DateOnly)
}
