package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Config holds the cron expressions for the periodic jobs.
type Config struct {
	// ReminderCron fires reminder delivery. Every run is idempotent, so the
	// schedule can be as tight as every hour.
	ReminderCron string
	// AdvancementCron fires billing date advancement, usually offset a few
	// minutes after the reminder tick so same-day reminders go out first.
	AdvancementCron string
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	config Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, logger *slog.Logger, cfg Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:   c,
		jobs:   jobs,
		logger: logger,
		config: cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.ReminderCron, s.jobs.ReminderTick); err != nil {
		s.logger.Error("failed to schedule reminder tick", "error", err)
	} else {
		s.logger.Info("scheduled reminder tick", "schedule", s.config.ReminderCron)
	}

	if _, err := s.cron.AddFunc(s.config.AdvancementCron, s.jobs.AdvanceBillingDates); err != nil {
		s.logger.Error("failed to schedule billing date advancement", "error", err)
	} else {
		s.logger.Info("scheduled billing date advancement", "schedule", s.config.AdvancementCron)
	}

	s.cron.Start()
}

// Jobs returns the underlying job runner so callers can trigger runs outside
// the cron schedule.
func (s *Scheduler) Jobs() *Jobs {
	return s.jobs
}

// Stop gracefully stops the cron scheduler. The returned context is done
// once running jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
