// Package scheduler runs the agent's periodic jobs (market scans, resolution
// sweeps) on fixed intervals. Overlapping runs of the same job are skipped
// rather than queued.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one periodic unit of work. Jobs receive the scheduler's base
// context and report failure through their error.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner with interval jobs and structured logging.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// New creates a stopped scheduler.
func New(logger *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cronLogger := &zapCronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(
				cron.Recover(cronLogger),
				cron.SkipIfStillRunning(cronLogger),
			),
		),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// AddInterval registers a named job to run every interval.
func (s *Scheduler) AddInterval(name string, every time.Duration, job Job) error {
	if every <= 0 {
		return fmt.Errorf("job %s: interval must be positive, got %s", name, every)
	}

	spec := fmt.Sprintf("@every %s", every)
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		err := job(s.ctx)
		elapsed := time.Since(start)
		JobDurationSeconds.WithLabelValues(name).Observe(elapsed.Seconds())
		if err != nil {
			JobErrorsTotal.WithLabelValues(name).Inc()
			s.logger.Error("scheduled-job-failed",
				zap.String("job", name),
				zap.Duration("elapsed", elapsed),
				zap.Error(err))
			return
		}
		JobRunsTotal.WithLabelValues(name).Inc()
		s.logger.Debug("scheduled-job-complete",
			zap.String("job", name),
			zap.Duration("elapsed", elapsed))
	})
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}

	s.logger.Info("job-scheduled", zap.String("job", name), zap.Duration("every", every))
	return nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler-started", zap.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop cancels the job context and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler-stopped")
}

// zapCronLogger adapts zap to cron's logger interface.
type zapCronLogger struct {
	logger *zap.Logger
}

func (l *zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron", zap.String("msg", msg), zap.Any("kv", keysAndValues))
}

func (l *zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron-error", zap.String("msg", msg), zap.Error(err), zap.Any("kv", keysAndValues))
}
