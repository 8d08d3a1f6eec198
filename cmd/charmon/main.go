// =============================================================================
// main.go - charmon process bootstrap
// =============================================================================
//
// Wires the whole service: .env and sources.yaml configuration, SQLite store,
// crawl orchestrator, report assembler, cron scheduler, and the gin API.
// Shuts down gracefully on SIGINT/SIGTERM.
//
// =============================================================================
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"charmon/internal/analyzer"
	"charmon/internal/api"
	"charmon/internal/config"
	"charmon/internal/crawler"
	"charmon/internal/fetch"
	"charmon/internal/pipeline"
	"charmon/internal/scheduler"
	"charmon/internal/store"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Missing .env is fine; plain environment variables still apply.
	if err := godotenv.Load(); err != nil {
		logger.WithError(err).Debug(".env not loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		logger.WithError(err).Fatal("cannot load crawl sources")
	}
	logger.WithFields(logrus.Fields{
		"sources":  len(sources),
		"services": cfg.RankingServices,
		"db":       cfg.DatabasePath,
	}).Info("starting charmon")

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("cannot open database")
	}
	defer st.Close()

	fetcher := fetch.New(logger, cfg.FetchTimeout, cfg.CrawlDelay, cfg.MaxRetries)
	orch := crawler.New(fetcher, logger, cfg.CrawlDelay, cfg.SourceDelay)
	policy := analyzer.DefaultReportPolicy()
	policy.GrowthThreshold = cfg.GrowthThreshold
	policy.MinMentions = cfg.MinMentions
	policy.Weights = analyzer.HotPostWeights{
		View:      cfg.ViewWeight,
		Recommend: cfg.RecommendWeight,
		Comment:   cfg.CommentWeight,
	}
	asm := analyzer.NewAssembler(analyzer.NewKeywordExtractor(), policy)
	pl := pipeline.New(orch, st, asm, logger, cfg)

	sched := scheduler.New(pl, logger, cfg, sources)
	if err := sched.Start(); err != nil {
		logger.WithError(err).Fatal("cannot start scheduler")
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewServer(st, pl, logger, cfg, sources).Router(),
	}
	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("API server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("API shutdown failed")
	}
}
