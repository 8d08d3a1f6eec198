// =============================================================================
// pipeline.go - crawl and report jobs
// =============================================================================
//
// Binds the orchestrator, the store, and the report assembler into the two
// jobs the scheduler and the API both trigger: the crawl run (boards plus
// ranking services) and daily report generation.
//
// =============================================================================
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"charmon/internal/analyzer"
	"charmon/internal/config"
	"charmon/internal/crawler"
	"charmon/internal/metrics"
	"charmon/internal/model"
	"charmon/internal/store"
)

// SourceReport is one source's outcome within a crawl run.
type SourceReport struct {
	SourceID string `json:"source_id"`
	Crawled  int    `json:"crawled"`
	Saved    int    `json:"saved"`
	Failed   bool   `json:"failed"`
}

// CrawlSummary is the result of one board crawl run.
type CrawlSummary struct {
	Sources      []SourceReport `json:"sources"`
	TotalCrawled int            `json:"total_crawled"`
	TotalSaved   int            `json:"total_saved"`
}

// ServiceSummary is the result of one ranking-service crawl run.
type ServiceSummary struct {
	Characters map[string]int `json:"characters"` // cards stored per service
	Total      int            `json:"total"`
}

// Pipeline owns the scheduled and on-demand jobs.
type Pipeline struct {
	orchestrator *crawler.Orchestrator
	store        *store.Store
	assembler    *analyzer.Assembler
	logger       *logrus.Logger
	cfg          config.Config
}

// New wires a Pipeline.
func New(orchestrator *crawler.Orchestrator, st *store.Store, assembler *analyzer.Assembler, logger *logrus.Logger, cfg config.Config) *Pipeline {
	return &Pipeline{
		orchestrator: orchestrator,
		store:        st,
		assembler:    assembler,
		logger:       logger,
		cfg:          cfg,
	}
}

// RunCrawl crawls every configured board source and persists the posts.
// Per-source failures are reported in the summary, not as errors; only
// cancellation or a storage failure aborts the run.
func (p *Pipeline) RunCrawl(ctx context.Context, sources []config.Source) (CrawlSummary, error) {
	posts, results, err := p.orchestrator.CrawlAll(ctx, sources, p.cfg.PagesPerCrawl)
	if err != nil {
		return CrawlSummary{}, err
	}

	bySource := make(map[string][]model.Post, len(results))
	for _, post := range posts {
		bySource[post.SourceID] = append(bySource[post.SourceID], post)
	}

	summary := CrawlSummary{Sources: make([]SourceReport, 0, len(results))}
	for _, r := range results {
		saved, err := p.store.SavePosts(ctx, bySource[r.SourceID])
		if err != nil {
			return summary, fmt.Errorf("save posts for %s: %w", r.SourceID, err)
		}
		summary.Sources = append(summary.Sources, SourceReport{
			SourceID: r.SourceID,
			Crawled:  r.Posts,
			Saved:    saved,
			Failed:   r.Failed,
		})
		summary.TotalCrawled += r.Posts
		summary.TotalSaved += saved
	}

	p.logger.WithFields(logrus.Fields{
		"crawled": summary.TotalCrawled,
		"saved":   summary.TotalSaved,
	}).Info("crawl run complete")
	return summary, nil
}

// RunServiceCrawl crawls the named ranking services and replaces each stored
// snapshot. A service that produced no cards keeps its previous snapshot, so
// a transient failure never blanks the rankings.
func (p *Pipeline) RunServiceCrawl(ctx context.Context, services []string) (ServiceSummary, error) {
	rankings, err := p.orchestrator.CrawlServices(ctx, services, p.cfg.RankingLimit)
	if err != nil {
		return ServiceSummary{}, err
	}

	summary := ServiceSummary{Characters: make(map[string]int, len(rankings))}
	names := make([]string, 0, len(rankings))
	for name := range rankings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cards := rankings[name]
		if len(cards) == 0 {
			summary.Characters[name] = 0
			continue
		}
		if err := p.store.ReplaceCharacters(ctx, name, cards); err != nil {
			return summary, fmt.Errorf("store characters for %s: %w", name, err)
		}
		summary.Characters[name] = len(cards)
		summary.Total += len(cards)
	}

	p.logger.WithField("characters", summary.Total).Info("service crawl complete")
	return summary, nil
}

// GenerateReport assembles and stores the report for one calendar day,
// comparing against the previous day's posts for trends. Re-running for the
// same date overwrites the stored report.
func (p *Pipeline) GenerateReport(ctx context.Context, date time.Time) (model.DailyReport, error) {
	today, err := p.store.PostsByDay(ctx, date)
	if err != nil {
		return model.DailyReport{}, fmt.Errorf("load posts for %s: %w", date.Format("2006-01-02"), err)
	}
	yesterday, err := p.store.PostsByDay(ctx, date.AddDate(0, 0, -1))
	if err != nil {
		return model.DailyReport{}, fmt.Errorf("load previous day posts: %w", err)
	}

	report := p.assembler.BuildDailyReport(today, yesterday, date.UTC().Truncate(24*time.Hour))
	if err := p.store.SaveReport(ctx, report); err != nil {
		return model.DailyReport{}, fmt.Errorf("store report: %w", err)
	}
	metrics.ReportsGenerated.Inc()

	p.logger.WithFields(logrus.Fields{
		"date":  report.ReportDate.Format("2006-01-02"),
		"posts": report.Statistics.TotalPosts,
	}).Info("daily report generated")
	return report, nil
}
