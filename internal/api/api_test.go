package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"charmon/internal/analyzer"
	"charmon/internal/config"
	"charmon/internal/crawler"
	"charmon/internal/model"
	"charmon/internal/pipeline"
	"charmon/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeFetcher struct {
	body []byte
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func newTestServer(t *testing.T, fetcher crawler.Fetcher) (*Server, *store.Store) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.PagesPerCrawl = 1

	orch := crawler.New(fetcher, logger, 0, 0)
	asm := analyzer.NewAssembler(analyzer.NewKeywordExtractor(), analyzer.DefaultReportPolicy())
	pl := pipeline.New(orch, st, asm, logger, cfg)

	sources := []config.Source{{ID: "dcinside", Type: "dcinside", URL: "https://gall.dcinside.com/board/lists?id=g"}}
	srv := NewServer(st, pl, logger, cfg, sources)
	srv.now = func() time.Time { return time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC) }
	return srv, st
}

func doRequest(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func seedPosts(t *testing.T, st *store.Store) {
	t.Helper()
	_, err := st.SavePosts(context.Background(), []model.Post{
		{PostID: "1", SourceID: "dcinside", Title: "[공지] 이용규칙", ViewCount: 9000, RecommendCount: 90,
			CrawledAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
		{PostID: "2", SourceID: "dcinside", Title: "[루나] 설정 공유", ViewCount: 1200, RecommendCount: 15,
			CrawledAt: time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)},
		{PostID: "3", SourceID: "arcalive", Title: "[세라핀] 후기", ViewCount: 300, RecommendCount: 4,
			CrawledAt: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeFetcher{})
	w := doRequest(srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &fakeFetcher{})
	w := doRequest(srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "charmon_")
}

func TestListPosts(t *testing.T) {
	srv, st := newTestServer(t, &fakeFetcher{})
	seedPosts(t, st)

	w := doRequest(srv, http.MethodGet, "/api/posts?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)

	var posts []model.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 3)
	require.Equal(t, "3", posts[0].PostID) // newest first

	// source filter
	w = doRequest(srv, http.MethodGet, "/api/posts?source=arcalive", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 1)

	// single-day filter
	w = doRequest(srv, http.MethodGet, "/api/posts?date=2025-06-01", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 2)

	w = doRequest(srv, http.MethodGet, "/api/posts?date=junk", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPostsEmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t, &fakeFetcher{})
	w := doRequest(srv, http.MethodGet, "/api/posts", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "[]", w.Body.String())
}

func TestPopularPostsExcludesNotices(t *testing.T) {
	srv, st := newTestServer(t, &fakeFetcher{})
	seedPosts(t, st)

	w := doRequest(srv, http.MethodGet, "/api/posts/popular?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)

	var posts []model.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 2)
	require.Equal(t, "2", posts[0].PostID) // highest recommends after the notice
	for _, p := range posts {
		require.NotContains(t, p.Title, "공지")
	}
}

func TestGetPost(t *testing.T) {
	srv, st := newTestServer(t, &fakeFetcher{})
	seedPosts(t, st)

	w := doRequest(srv, http.MethodGet, "/api/posts/2", "")
	require.Equal(t, http.StatusOK, w.Code)

	var post model.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))
	require.Equal(t, "[루나] 설정 공유", post.Title)

	w = doRequest(srv, http.MethodGet, "/api/posts/999", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDailyStats(t *testing.T) {
	srv, st := newTestServer(t, &fakeFetcher{})
	seedPosts(t, st)

	// One day's totals with 1-decimal averages; date defaults to today.
	w := doRequest(srv, http.MethodGet, "/api/posts/stats/daily?date=2025-06-01", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats model.DailyStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	require.Equal(t, 2, stats.TotalPosts)
	require.Equal(t, 10200, stats.TotalViews)
	require.Equal(t, 5100.0, stats.AvgViews)
	require.Equal(t, 52.5, stats.AvgRecommends)

	w = doRequest(srv, http.MethodGet, "/api/posts/stats/daily", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	require.Equal(t, 1, stats.TotalPosts) // srv.now is fixed to 2025-06-02

	w = doRequest(srv, http.MethodGet, "/api/posts/stats/daily?date=junk", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDailyCounts(t *testing.T) {
	srv, st := newTestServer(t, &fakeFetcher{})
	seedPosts(t, st)

	w := doRequest(srv, http.MethodGet, "/api/posts/stats/counts", "")
	require.Equal(t, http.StatusOK, w.Code)

	var counts []store.DailyCount
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &counts))
	require.Equal(t, []store.DailyCount{
		{Date: "2025-06-02", Count: 1},
		{Date: "2025-06-01", Count: 2},
	}, counts)
}

func seedReports(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.SaveReport(ctx, model.DailyReport{
		ReportDate:  time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
		GeneratedAt: time.Date(2025, 5, 31, 0, 30, 0, 0, time.UTC),
		TopKeywords: []model.KeywordEntry{{Keyword: "루나", Count: 4}, {Keyword: "설정", Count: 2}},
		CharacterRankings: []model.CharacterRanking{
			{Name: "루나", Mentions: 4, Rank: 1},
			{Name: "세라핀", Mentions: 1, Rank: 2},
		},
	}))
	require.NoError(t, st.SaveReport(ctx, model.DailyReport{
		ReportDate:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		GeneratedAt: time.Date(2025, 6, 1, 0, 30, 0, 0, time.UTC),
		TopKeywords: []model.KeywordEntry{{Keyword: "세라핀", Count: 3}, {Keyword: "루나", Count: 2}},
		CharacterRankings: []model.CharacterRanking{
			{Name: "세라핀", Mentions: 3, Rank: 1},
			{Name: "루나", Mentions: 2, Rank: 2},
		},
	}))
}

func TestTrendingKeywords(t *testing.T) {
	srv, st := newTestServer(t, &fakeFetcher{})
	seedReports(t, st)

	w := doRequest(srv, http.MethodGet, "/api/keywords/trending?days=7", "")
	require.Equal(t, http.StatusOK, w.Code)

	var entries []struct {
		Keyword    string `json:"keyword"`
		TotalCount int    `json:"total_count"`
		Rank       int    `json:"rank"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 3)

	// 루나 appears in both reports: 2 + 4 mentions.
	require.Equal(t, "루나", entries[0].Keyword)
	require.Equal(t, 6, entries[0].TotalCount)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, "세라핀", entries[1].Keyword)
	require.Equal(t, 3, entries[1].TotalCount)

	// A one-day window sees only the latest report.
	w = doRequest(srv, http.MethodGet, "/api/keywords/trending?days=1", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	require.Equal(t, "세라핀", entries[0].Keyword)

	w = doRequest(srv, http.MethodGet, "/api/keywords/trending?limit=1", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
}

func TestCharacterRankingAggregation(t *testing.T) {
	srv, st := newTestServer(t, &fakeFetcher{})
	seedReports(t, st)

	w := doRequest(srv, http.MethodGet, "/api/characters/ranking?days=7", "")
	require.Equal(t, http.StatusOK, w.Code)

	var entries []struct {
		Name          string `json:"name"`
		TotalMentions int    `json:"total_mentions"`
		Rank          int    `json:"rank"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	require.Equal(t, "루나", entries[0].Name)
	require.Equal(t, 6, entries[0].TotalMentions)
	require.Equal(t, "세라핀", entries[1].Name)
	require.Equal(t, 4, entries[1].TotalMentions)
}

func TestCharacters(t *testing.T) {
	srv, st := newTestServer(t, &fakeFetcher{})
	require.NoError(t, st.ReplaceCharacters(context.Background(), "zeta", []model.CharacterCard{
		{Service: "zeta", CharacterID: "a", Rank: 1, Name: "루나",
			CrawledAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
	}))

	w := doRequest(srv, http.MethodGet, "/api/characters?service=zeta", "")
	require.Equal(t, http.StatusOK, w.Code)

	var cards []model.CharacterCard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cards))
	require.Len(t, cards, 1)
	require.Equal(t, "루나", cards[0].Name)

	w = doRequest(srv, http.MethodGet, "/api/characters?service=babechat", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "[]", w.Body.String())
}

func TestReportEndpoints(t *testing.T) {
	srv, st := newTestServer(t, &fakeFetcher{})
	ctx := context.Background()

	w := doRequest(srv, http.MethodGet, "/api/reports/latest", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, st.SaveReport(ctx, model.DailyReport{
		ReportDate:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		GeneratedAt: time.Date(2025, 6, 2, 0, 30, 0, 0, time.UTC),
		Summary:     "요약",
	}))

	w = doRequest(srv, http.MethodGet, "/api/reports/latest", "")
	require.Equal(t, http.StatusOK, w.Code)

	var report model.DailyReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.Equal(t, "요약", report.Summary)

	w = doRequest(srv, http.MethodGet, "/api/reports/2025-06-01", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/reports/2025-06-09", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/reports/not-a-date", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(srv, http.MethodGet, "/api/reports", "")
	require.Equal(t, http.StatusOK, w.Code)
	var reports []model.DailyReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
}

func TestTriggerCrawlReportsPartialSuccess(t *testing.T) {
	srv, _ := newTestServer(t, &fakeFetcher{err: errors.New("network down")})

	w := doRequest(srv, http.MethodPost, "/api/crawl", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                  `json:"success"`
		Summary pipeline.CrawlSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Summary.Sources, 1)
	require.True(t, resp.Summary.Sources[0].Failed)
	require.Equal(t, 0, resp.Summary.TotalSaved)
}

func TestTriggerServiceCrawl(t *testing.T) {
	srv, _ := newTestServer(t, &fakeFetcher{err: errors.New("timeout")})

	// babechat is declared unsupported, so it yields zero without fetching.
	w := doRequest(srv, http.MethodPost, "/api/crawl/characters", `{"services":["babechat"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool                    `json:"success"`
		Summary pipeline.ServiceSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, 0, resp.Summary.Characters["babechat"])
}

func TestGenerateReportEndpoint(t *testing.T) {
	srv, st := newTestServer(t, &fakeFetcher{})
	seedPosts(t, st)

	w := doRequest(srv, http.MethodPost, "/api/reports/generate?date=2025-06-01", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool              `json:"success"`
		Report  model.DailyReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, 2, resp.Report.Statistics.TotalPosts)

	stored, err := st.ReportByDate(context.Background(), time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, resp.Report.Summary, stored.Summary)

	w = doRequest(srv, http.MethodPost, "/api/reports/generate?date=junk", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}
