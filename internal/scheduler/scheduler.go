// Package scheduler runs the cron jobs of the worker.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"recibos/internal/log"
)

var (
	ErrNotInitialized = errors.New("scheduler not initialized")
	ErrEmptyJobName   = errors.New("job name is required")
	ErrEmptyCronExpr  = errors.New("cron expression is required")
)

// Service wraps a gocron scheduler.
type Service struct {
	scheduler gocron.Scheduler
	logger    *log.Logger
	stopOnce  sync.Once
	stopErr   error
}

func New() (*Service, error) {
	logger := log.Default(log.ComponentScheduler)
	sched, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					logger.Error("Scheduler job panicked",
						"job_id", jobID.String(),
						"job_name", jobName,
						"panic", recoverData)
				}),
				gocron.AfterJobRunsWithError(func(jobID uuid.UUID, jobName string, err error) {
					logger.Error("Scheduler job failed",
						"job_id", jobID.String(),
						"job_name", jobName,
						log.FieldError, err)
				}),
			),
		),
	)
	if err != nil {
		return nil, err
	}
	logger.Info("Scheduler initialized")
	return &Service{scheduler: sched, logger: logger}, nil
}

func (s *Service) Start() {
	if s == nil {
		return
	}
	s.logger.Info("Scheduler starting", log.FieldCount, len(s.scheduler.Jobs()))
	s.scheduler.Start()
}

// Stop shuts down the scheduler and waits for running jobs.
func (s *Service) Stop() error {
	if s == nil {
		return ErrNotInitialized
	}
	s.stopOnce.Do(func() {
		s.logger.Info("Scheduler stopping")
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}

// AddJob registers a five-field cron job. The task gets a context that
// expires after timeout.
func (s *Service) AddJob(name, cronExpr string, timeout time.Duration, task func(ctx context.Context) error) (gocron.Job, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}
	jobLogger := s.logger.With("job_name", name, "cron", cronExpr)

	wrapped := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		jobLogger.Debug("Scheduler job started")
		if err := task(ctx); err != nil {
			return err
		}
		jobLogger.Debug("Scheduler job completed")
		return nil
	}

	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(wrapped),
		gocron.WithName(name),
	)
	if err != nil {
		jobLogger.Error("Failed to register scheduler job", log.FieldError, err)
		return nil, err
	}
	jobLogger.Info("Scheduler job registered", "job_id", job.ID().String())
	return job, nil
}
