package cron

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bher20/slabbiller/internal/metrics"
)

// Job is one execution of a scheduled task.
type Job func(ctx context.Context) error

// ParseSchedule accepts either a positive number of seconds or a standard
// five-field cron expression.
func ParseSchedule(setting string) (cron.Schedule, error) {
	setting = strings.TrimSpace(setting)
	if v, err := strconv.Atoi(setting); err == nil {
		if v <= 0 {
			return nil, fmt.Errorf("schedule interval must be positive, got %d", v)
		}
		return cron.Every(time.Duration(v) * time.Second), nil
	}
	sched, err := cron.ParseStandard(setting)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", setting, err)
	}
	return sched, nil
}

// Worker runs a Job immediately and then on its schedule.
type Worker struct {
	name  string
	sched cron.Schedule
	job   Job
	log   *zap.Logger
	now   func() time.Time
	// tick is how often the control loop checks whether a run is due.
	tick time.Duration
}

func NewWorker(name, setting string, job Job, log *zap.Logger) (*Worker, error) {
	sched, err := ParseSchedule(setting)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		name:  name,
		sched: sched,
		job:   job,
		log:   log.With(zap.String("job", name)),
		now:   time.Now,
		tick:  time.Second,
	}, nil
}

// Run blocks until ctx is done. Job failures are logged and counted; they
// never stop the worker.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	nextRun := w.now()
	w.log.Info("cron worker starting")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !w.now().Before(nextRun) {
			_ = w.RunOnce(ctx)
			nextRun = w.sched.Next(w.now())
			w.log.Debug("cron: next run scheduled", zap.Time("next_run", nextRun))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce executes the job a single time and records job metrics.
func (w *Worker) RunOnce(ctx context.Context) error {
	started := time.Now()
	err := w.job(ctx)
	metrics.UpdateJobMetrics(w.name, started, err)

	dur := time.Since(started)
	if err != nil {
		w.log.Warn("cron: job completed with error", zap.Duration("duration", dur), zap.Error(err))
		return err
	}
	w.log.Info("cron: job completed successfully", zap.Duration("duration", dur))
	return nil
}
