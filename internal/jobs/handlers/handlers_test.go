package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/anime-bot/internal/jobs"
)

type mockExpirer struct {
	mock.Mock
}

func (m *mockExpirer) ExpireSubscriptions(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

func (m *mockQueue) Close() error {
	return nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userID int64, text string) error {
	return m.Called(ctx, userID, text).Error(0)
}

func noticeFor(userID int64) any {
	return mock.MatchedBy(func(task *asynq.Task) bool {
		var payload jobs.ExpiryNoticePayload
		if task.Type() != jobs.TaskTypeExpiryNotice || json.Unmarshal(task.Payload(), &payload) != nil {
			return false
		}
		return payload.UserID == userID
	})
}

func TestExpirySweepQueuesNoticePerExpiredUser(t *testing.T) {
	ctx := context.Background()
	expirer := new(mockExpirer)
	queue := new(mockQueue)

	expirer.On("ExpireSubscriptions", ctx).Return([]int64{7, 9}, nil).Once()
	queue.On("Enqueue", ctx, noticeFor(7)).Return(&asynq.TaskInfo{}, nil).Once()
	queue.On("Enqueue", ctx, noticeFor(9)).Return(nil, errors.New("redis down")).Once()

	h := NewExpirySweepHandler(expirer, queue, nil)
	require.NoError(t, h.ProcessTask(ctx, jobs.NewExpirySweepTask()))

	expirer.AssertExpectations(t)
	queue.AssertExpectations(t)
}

func TestExpirySweepReturnsStoreError(t *testing.T) {
	ctx := context.Background()
	expirer := new(mockExpirer)
	queue := new(mockQueue)

	expirer.On("ExpireSubscriptions", ctx).Return(nil, errors.New("db down")).Once()

	h := NewExpirySweepHandler(expirer, queue, nil)
	assert.Error(t, h.ProcessTask(ctx, jobs.NewExpirySweepTask()))
	queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}

func TestExpiryNoticeDelivers(t *testing.T) {
	ctx := context.Background()
	notifier := new(mockNotifier)
	notifier.On("Notify", ctx, int64(7), "expired").Return(nil).Once()

	task, err := jobs.NewExpiryNoticeTask(7)
	require.NoError(t, err)

	h := NewExpiryNoticeHandler(notifier, "expired", nil)
	require.NoError(t, h.ProcessTask(ctx, task))
	notifier.AssertExpectations(t)
}

func TestExpiryNoticeRetriesOnTransportError(t *testing.T) {
	ctx := context.Background()
	notifier := new(mockNotifier)
	notifier.On("Notify", ctx, int64(7), "expired").Return(errors.New("timeout")).Once()

	task, err := jobs.NewExpiryNoticeTask(7)
	require.NoError(t, err)

	err = NewExpiryNoticeHandler(notifier, "expired", nil).ProcessTask(ctx, task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestExpiryNoticeSkipsRetryOnBadPayload(t *testing.T) {
	notifier := new(mockNotifier)
	h := NewExpiryNoticeHandler(notifier, "expired", nil)

	err := h.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskTypeExpiryNotice, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.ProcessTask(context.Background(), asynq.NewTask(jobs.TaskTypeExpiryNotice, []byte(`{"user_id":0}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}
