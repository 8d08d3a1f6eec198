// =============================================================================
// crawler.go - crawl orchestrator
// =============================================================================
//
// Iterates configured sources and pages sequentially, fetching and parsing
// with deliberate throttling between requests. Failures are contained at the
// narrowest boundary that can absorb them: a bad row costs the row, a dead
// page costs the page, a blocked source costs the source. Nothing short of
// cancellation aborts the batch.
//
// =============================================================================
package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"charmon/internal/config"
	"charmon/internal/fetch"
	"charmon/internal/metrics"
	"charmon/internal/model"
)

// Fetcher is the page-retrieval dependency; satisfied by fetch.Client.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// parseSkips counts rows an adapter dropped, by reason. Skips are logged as
// counts, never surfaced as errors.
type parseSkips struct {
	notice       int
	noID         int
	nonNumericID int
	noTitle      int
}

func (s parseSkips) total() int {
	return s.notice + s.noID + s.nonNumericID + s.noTitle
}

// boardAdapter binds a listing parser to its page-URL scheme.
type boardAdapter struct {
	parse   func(body []byte, sourceID string, now time.Time) ([]model.Post, parseSkips)
	pageURL func(listURL string, page int) string
}

var boardAdapters = map[string]boardAdapter{
	"dcinside":       {parseDCInsideList, dcinsidePageURL},
	"dcinside_minor": {parseDCInsideList, dcinsidePageURL},
	"arcalive":       {parseArcaliveList, arcalivePageURL},
}

// ServiceAdapter parses one character-ranking service's ranking page.
// Unsupported adapters return empty results by contract rather than failing.
type ServiceAdapter interface {
	Name() string
	Supported() bool
	RankingURL() string
	ParseRankings(body []byte, limit int, crawledAt time.Time) []model.CharacterCard
}

var serviceAdapters = map[string]ServiceAdapter{
	"zeta":     zetaAdapter{},
	"lunatalk": lunatalkAdapter{},
	"babechat": babechatAdapter{},
}

// ServiceAdapterFor exposes the registry for capability queries.
func ServiceAdapterFor(name string) (ServiceAdapter, bool) {
	a, ok := serviceAdapters[name]
	return a, ok
}

// SourceResult summarizes one source's contribution to a crawl run.
type SourceResult struct {
	SourceID string `json:"source_id"`
	Posts    int    `json:"posts"`
	Failed   bool   `json:"failed"`
}

// Orchestrator drives multi-source crawls.
type Orchestrator struct {
	fetcher     Fetcher
	logger      *logrus.Logger
	crawlDelay  time.Duration // between pages of one source
	sourceDelay time.Duration // between distinct sources

	// injectable for tests
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New builds an Orchestrator around a Fetcher.
func New(fetcher Fetcher, logger *logrus.Logger, crawlDelay, sourceDelay time.Duration) *Orchestrator {
	return &Orchestrator{
		fetcher:     fetcher,
		logger:      logger,
		crawlDelay:  crawlDelay,
		sourceDelay: sourceDelay,
		sleep:       sleepCtx,
		now:         time.Now,
	}
}

// CrawlAll crawls pages 1..pages of every source in configured order and
// returns the concatenated posts plus per-source counts. Only cancellation
// is returned as an error; per-source failures are absorbed and reported
// through the result summary.
func (o *Orchestrator) CrawlAll(ctx context.Context, sources []config.Source, pages int) ([]model.Post, []SourceResult, error) {
	var all []model.Post
	results := make([]SourceResult, 0, len(sources))

	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return all, results, err
		}
		if i > 0 {
			if err := o.sleep(ctx, o.sourceDelay); err != nil {
				return all, results, err
			}
		}

		posts, failed := o.crawlSource(ctx, src, pages)
		if err := ctx.Err(); err != nil {
			return all, results, err
		}
		all = append(all, posts...)
		results = append(results, SourceResult{SourceID: src.ID, Posts: len(posts), Failed: failed})
	}

	o.logger.WithField("posts", len(all)).Info("crawl finished")
	return all, results, nil
}

// crawlSource fetches every page of one source. A blocked source stops its
// remaining pages; any other page failure skips just that page. The bool
// result reports whether the source contributed nothing due to failure.
func (o *Orchestrator) crawlSource(ctx context.Context, src config.Source, pages int) ([]model.Post, bool) {
	adapter, ok := boardAdapters[src.Type]
	if !ok {
		o.logger.WithFields(logrus.Fields{"source": src.ID, "type": src.Type}).Warn("unsupported source type")
		return nil, true
	}

	log := o.logger.WithFields(logrus.Fields{"source": src.ID, "name": src.Name})
	log.WithField("pages", pages).Info("crawling source")

	var posts []model.Post
	pageFailures := 0
	for page := 1; page <= pages; page++ {
		if ctx.Err() != nil {
			return posts, false
		}
		if page > 1 {
			if o.sleep(ctx, o.crawlDelay) != nil {
				return posts, false
			}
		}

		body, err := o.fetcher.Fetch(ctx, adapter.pageURL(src.URL, page))
		if err != nil {
			metrics.PageFailures.WithLabelValues(src.ID).Inc()
			pageFailures++
			if errors.Is(err, fetch.ErrBlocked) {
				log.Error("source blocked; abandoning remaining pages")
				metrics.SourceFailures.WithLabelValues(src.ID).Inc()
				break
			}
			log.WithField("page", page).WithError(err).Warn("page fetch failed; skipping")
			continue
		}
		metrics.PagesFetched.WithLabelValues(src.ID).Inc()

		pagePosts, skips := adapter.parse(body, src.ID, o.now())
		posts = append(posts, pagePosts...)
		metrics.PostsParsed.WithLabelValues(src.ID).Add(float64(len(pagePosts)))
		if n := skips.total(); n > 0 {
			metrics.RowsSkipped.WithLabelValues(src.ID).Add(float64(n))
			log.WithFields(logrus.Fields{"page": page, "skipped": n}).Debug("rows skipped")
		}
	}

	log.WithField("posts", len(posts)).Info("source done")
	return posts, len(posts) == 0 && pageFailures > 0
}

// CrawlServices crawls each named ranking service independently. Unsupported
// services deterministically contribute an empty list; a failing service is
// logged and likewise contributes an empty list. All cards from one call
// share a single CrawledAt timestamp per service, which scopes the ranking
// session downstream.
func (o *Orchestrator) CrawlServices(ctx context.Context, services []string, limit int) (map[string][]model.CharacterCard, error) {
	results := make(map[string][]model.CharacterCard, len(services))

	for i, name := range services {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if i > 0 {
			if err := o.sleep(ctx, o.sourceDelay); err != nil {
				return results, err
			}
		}

		adapter, ok := serviceAdapters[name]
		if !ok {
			o.logger.WithField("service", name).Warn("unknown ranking service")
			results[name] = []model.CharacterCard{}
			continue
		}
		if !adapter.Supported() {
			o.logger.WithField("service", name).Info("service not crawlable; returning empty ranking")
			results[name] = []model.CharacterCard{}
			continue
		}

		body, err := o.fetcher.Fetch(ctx, adapter.RankingURL())
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			o.logger.WithField("service", name).WithError(err).Error("service crawl failed")
			metrics.SourceFailures.WithLabelValues(name).Inc()
			results[name] = []model.CharacterCard{}
			continue
		}

		cards := adapter.ParseRankings(body, limit, o.now())
		metrics.CharactersCrawled.WithLabelValues(name).Add(float64(len(cards)))
		o.logger.WithFields(logrus.Fields{"service": name, "characters": len(cards)}).Info("service done")
		results[name] = cards
	}
	return results, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
