package jobs

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// DefaultExpirySweepCron is used when no schedule is configured.
const DefaultExpirySweepCron = "@every 1h"

type Scheduler interface {
	RegisterTasks() error
	Run()
	Shutdown()
}

// periodic is one cron entry owned by the scheduler.
type periodic struct {
	cron string
	task func() *asynq.Task
}

type scheduler struct {
	inner   *asynq.Scheduler
	entries []periodic
	log     *slog.Logger
}

// NewScheduler enqueues the expiry sweep on sweepCron, evaluated in UTC.
func NewScheduler(redisOpt asynq.RedisConnOpt, sweepCron string, log *slog.Logger) Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if sweepCron == "" {
		sweepCron = DefaultExpirySweepCron
	}

	inner := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   newAsynqLogger(log),
		EnqueueErrorHandler: func(task *asynq.Task, _ []asynq.Option, err error) {
			if errors.Is(err, asynq.ErrDuplicateTask) {
				return
			}
			log.Error("jobs: scheduled enqueue failed", slog.String("task_type", task.Type()), slog.Any("error", err))
		},
	})

	return &scheduler{
		inner: inner,
		entries: []periodic{
			{cron: sweepCron, task: NewExpirySweepTask},
		},
		log: log,
	}
}

func (s *scheduler) RegisterTasks() error {
	for _, e := range s.entries {
		task := e.task()
		if _, err := s.inner.Register(e.cron, task); err != nil {
			return fmt.Errorf("register %s on %q: %w", task.Type(), e.cron, err)
		}
		s.log.Info("jobs: periodic task registered", slog.String("task_type", task.Type()), slog.String("cron", e.cron))
	}
	return nil
}

// Run starts the scheduler in the background.
func (s *scheduler) Run() {
	go func() {
		if err := s.inner.Run(); err != nil {
			s.log.Error("jobs: scheduler stopped", slog.Any("error", err))
		}
	}()
}

func (s *scheduler) Shutdown() {
	s.log.Info("jobs: scheduler shutting down")
	s.inner.Shutdown()
}
