// =============================================================================
// scheduler.go - daily jobs
// =============================================================================
//
// cron wiring for the two recurring jobs: the midnight crawl (boards plus
// ranking services) and the 00:30 report covering the previous day. Both reuse
// the same pipeline entry points the API triggers expose.
//
// =============================================================================
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"charmon/internal/config"
	"charmon/internal/pipeline"
)

// Scheduler owns the cron runner.
type Scheduler struct {
	cron     *cron.Cron
	pipeline *pipeline.Pipeline
	logger   *logrus.Logger
	cfg      config.Config
	sources  []config.Source

	now func() time.Time // injectable for tests
}

// New builds a Scheduler; Start registers and launches the jobs.
func New(pl *pipeline.Pipeline, logger *logrus.Logger, cfg config.Config, sources []config.Source) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		pipeline: pl,
		logger:   logger,
		cfg:      cfg,
		sources:  sources,
		now:      time.Now,
	}
}

// Start registers the daily jobs and launches the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 * * *", s.runCrawlJob); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("30 0 * * *", s.runReportJob); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// runCrawlJob collects boards first, then ranking services.
func (s *Scheduler) runCrawlJob() {
	ctx := context.Background()

	if _, err := s.pipeline.RunCrawl(ctx, s.sources); err != nil {
		s.logger.WithError(err).Error("scheduled crawl failed")
	}
	if _, err := s.pipeline.RunServiceCrawl(ctx, s.cfg.RankingServices); err != nil {
		s.logger.WithError(err).Error("scheduled service crawl failed")
	}
}

// runReportJob generates the report for the current calendar day, which the
// midnight crawl has just populated.
func (s *Scheduler) runReportJob() {
	if _, err := s.pipeline.GenerateReport(context.Background(), s.now()); err != nil {
		s.logger.WithError(err).Error("scheduled report failed")
	}
}
