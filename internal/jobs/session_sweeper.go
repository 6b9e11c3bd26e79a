package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"smartnshine/interview/internal/interview"

	"github.com/robfig/cron/v3"
)

// SessionSweeperJob abandons in-progress sessions that have sat idle
// past the configured cutoff, so stale sessions still get partial
// results instead of hanging in-progress forever.
type SessionSweeperJob struct {
	manager *interview.Manager
	config  *SweeperConfig
	logger  *zap.Logger
	cron    *cron.Cron
}

// SweeperConfig contains configuration for the sweeper job
type SweeperConfig struct {
	Schedule string        // Cron schedule (e.g., "*/15 * * * *" for every 15 minutes)
	MaxIdle  time.Duration // How long an in-progress session may sit untouched
	Timeout  time.Duration // Per-run deadline
}

// NewSessionSweeperJob creates a new sweeper job
func NewSessionSweeperJob(manager *interview.Manager, config *SweeperConfig, logger *zap.Logger) *SessionSweeperJob {
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Minute
	}
	return &SessionSweeperJob{
		manager: manager,
		config:  config,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start begins the scheduled sweep
func (job *SessionSweeperJob) Start() error {
	job.logger.Info("Starting session sweeper", zap.String("schedule", job.config.Schedule))

	_, err := job.cron.AddFunc(job.config.Schedule, func() {
		if err := job.RunSweep(); err != nil {
			job.logger.Error("Session sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	job.cron.Start()
	return nil
}

// Stop stops the scheduled sweep
func (job *SessionSweeperJob) Stop() {
	if job.cron != nil {
		job.cron.Stop()
		job.logger.Info("Session sweeper stopped")
	}
}

// RunSweep performs a single sweep run
func (job *SessionSweeperJob) RunSweep() error {
	ctx, cancel := context.WithTimeout(context.Background(), job.config.Timeout)
	defer cancel()

	cutoff := time.Now().Add(-job.config.MaxIdle)
	swept, err := job.manager.AbandonStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to abandon stale sessions: %w", err)
	}

	if swept > 0 {
		job.logger.Info("Swept stale sessions", zap.Int("count", swept))
	}
	return nil
}
