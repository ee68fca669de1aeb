package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/config"
	"github.com/opencampus/budgetd/internal/service/archive"
)

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron       *cron.Cron
	archiveSvc *archive.Service
	cfg        config.ArchiveConfig
	logger     *zap.Logger
}

// NewScheduler creates a new scheduler instance. The cron runs in the
// configured campus timezone so "2 AM" means local 2 AM, not UTC.
func NewScheduler(cfg config.ArchiveConfig, archiveSvc *archive.Service, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("invalid timezone, falling back to local",
			zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:       c,
		archiveSvc: archiveSvc,
		cfg:        cfg,
		logger:     logger,
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.sweepFiscalYears); err != nil {
		s.logger.Error("failed to schedule fiscal year sweep", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) sweepFiscalYears() {
	s.logger.Info("running fiscal year sweep")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := s.archiveSvc.SweepPastFiscalYears(ctx, time.Now().Year())
	if err != nil {
		s.logger.Error("fiscal year sweep failed", zap.Error(err))
		return
	}
	if res.BudgetsSwept > 0 {
		s.logger.Info("fiscal year sweep archived budgets",
			zap.Int("budgets", res.BudgetsSwept),
			zap.Int("allocations", res.Allocations))
	}
}
