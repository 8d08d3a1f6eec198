package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"charmon/internal/analyzer"
	"charmon/internal/config"
	"charmon/internal/crawler"
	"charmon/internal/model"
	"charmon/internal/pipeline"
	"charmon/internal/store"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return []byte("<html></html>"), nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *store.Store) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg, err := config.Load()
	require.NoError(t, err)

	orch := crawler.New(stubFetcher{}, logger, 0, 0)
	asm := analyzer.NewAssembler(analyzer.NewKeywordExtractor(), analyzer.DefaultReportPolicy())
	pl := pipeline.New(orch, st, asm, logger, cfg)

	return New(pl, logger, cfg, nil), st
}

func TestStartRegistersDailyJobs(t *testing.T) {
	s, _ := newTestScheduler(t)
	require.NoError(t, s.Start())
	defer s.Stop()

	entries := s.cron.Entries()
	require.Len(t, entries, 2)

	// Midnight crawl, then the 00:30 report.
	base := time.Date(2025, 6, 1, 23, 0, 0, 0, time.Local)
	require.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local), entries[0].Schedule.Next(base))
	require.Equal(t, time.Date(2025, 6, 2, 0, 30, 0, 0, time.Local), entries[1].Schedule.Next(base))
}

func TestReportJobCoversCurrentDay(t *testing.T) {
	s, st := newTestScheduler(t)
	ctx := context.Background()

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	_, err := st.SavePosts(ctx, []model.Post{
		{PostID: "1", SourceID: "a", Title: "[루나] 설정", ViewCount: 10, CrawledAt: day.Add(5 * time.Minute)},
	})
	require.NoError(t, err)

	s.now = func() time.Time { return day.Add(30 * time.Minute) }
	s.runReportJob()

	report, err := st.ReportByDate(ctx, day)
	require.NoError(t, err)
	require.Equal(t, 1, report.Statistics.TotalPosts)
}
