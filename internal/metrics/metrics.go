// Package metrics exposes Prometheus counters for the crawl and analytics
// pipelines. Collectors are registered on the default registry and served
// by the API's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charmon_pages_fetched_total",
		Help: "Listing pages fetched successfully, by source.",
	}, []string{"source"})

	PageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charmon_page_failures_total",
		Help: "Listing pages abandoned after retry exhaustion or blocking, by source.",
	}, []string{"source"})

	PostsParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charmon_posts_parsed_total",
		Help: "Posts successfully parsed from listings, by source.",
	}, []string{"source"})

	RowsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charmon_rows_skipped_total",
		Help: "Listing rows dropped for missing mandatory fields, by source.",
	}, []string{"source"})

	SourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charmon_source_failures_total",
		Help: "Whole-source crawl failures absorbed by the orchestrator, by source.",
	}, []string{"source"})

	CharactersCrawled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "charmon_characters_crawled_total",
		Help: "Character cards collected from ranking services, by service.",
	}, []string{"service"})

	ReportsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "charmon_reports_generated_total",
		Help: "Daily reports assembled and stored.",
	})
)
