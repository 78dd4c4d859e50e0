package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/azure/brand-pulse/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const runTimeout = 30 * time.Minute

// Runner performs one watch run over every configured entity
type Runner interface {
	RunMonitoring(ctx context.Context) error
}

// Service handles scheduling of watch runs
type Service struct {
	config *config.Config
	runner Runner
	cron   *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, runner Runner) (*Service, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.TimeZone, err)
	}
	return &Service{
		config: cfg,
		runner: runner,
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
	}, nil
}

// Expression maps a report schedule to a cron spec with seconds
func Expression(schedule string) (string, bool) {
	switch schedule {
	case "daily":
		// 9 AM every day
		return "0 0 9 * * *", true
	case "weekly":
		// 9 AM on Mondays
		return "0 0 9 * * MON", true
	}
	return "", false
}

// Start registers the watch job. A schedule of "off" starts nothing.
func (s *Service) Start() error {
	spec, ok := Expression(s.config.ReportSchedule)
	if !ok {
		logrus.Info("Scheduled watch runs are disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("failed to schedule watch runs: %w", err)
	}

	s.cron.Start()
	logrus.WithField("entities", s.config.WatchEntities).Infof("Scheduler started with %s schedule", s.config.ReportSchedule)
	return nil
}

func (s *Service) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	logrus.Info("Starting scheduled watch run")
	if err := s.runner.RunMonitoring(ctx); err != nil {
		logrus.Errorf("Scheduled watch run failed: %v", err)
	}
}

// Entries returns the number of registered jobs
func (s *Service) Entries() int {
	return len(s.cron.Entries())
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
