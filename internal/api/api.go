// =============================================================================
// api.go - HTTP API
// =============================================================================
//
// gin server over the store and the pipeline: read endpoints for posts,
// character rankings, and reports, plus manual triggers for the crawl and
// report jobs. Crawl triggers run synchronously and report partial success
// with per-source counts.
//
// =============================================================================
package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"charmon/internal/analyzer"
	"charmon/internal/config"
	"charmon/internal/pipeline"
	"charmon/internal/store"
)

// noticeKeywords marks board announcements excluded from popularity rankings.
var noticeKeywords = []string{
	"[필독]", "[공지]", "[안내]",
	"필독", "공지", "안내",
	"규칙", "이용규칙",
	"신고", "호출벨", "신문고",
	"전용", "통합",
	"디시콘", "공유전용",
}

// Server exposes the monitoring API.
type Server struct {
	store    *store.Store
	pipeline *pipeline.Pipeline
	logger   *logrus.Logger
	cfg      config.Config
	sources  []config.Source

	now func() time.Time // injectable for tests
}

// NewServer wires the API over its collaborators.
func NewServer(st *store.Store, pl *pipeline.Pipeline, logger *logrus.Logger, cfg config.Config, sources []config.Source) *Server {
	return &Server{
		store:    st,
		pipeline: pl,
		logger:   logger,
		cfg:      cfg,
		sources:  sources,
		now:      time.Now,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/posts", s.listPosts)
		api.GET("/posts/popular", s.popularPosts)
		api.GET("/posts/stats/daily", s.dailyStats)
		api.GET("/posts/stats/counts", s.dailyCounts)
		api.GET("/posts/:post_id", s.getPost)
		api.GET("/reports", s.listReports)
		api.GET("/reports/latest", s.latestReport)
		api.GET("/reports/:date", s.reportByDate)
		api.GET("/keywords/trending", s.trendingKeywords)
		api.GET("/characters", s.characters)
		api.GET("/characters/ranking", s.characterRanking)
		api.POST("/crawl", s.triggerCrawl)
		api.POST("/crawl/characters", s.triggerServiceCrawl)
		api.POST("/reports/generate", s.generateReport)
	}
	return r
}

func (s *Server) listPosts(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	skip := intQuery(c, "skip", 0)
	source := c.Query("source")

	if dateStr := c.Query("date"); dateStr != "" {
		date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if err != nil {
			badRequest(c, "invalid date, expected YYYY-MM-DD")
			return
		}
		posts, err := s.store.PostsByDay(c.Request.Context(), date)
		if err != nil {
			s.internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, orEmpty(posts))
		return
	}

	posts, err := s.store.ListPosts(c.Request.Context(), source, limit, skip)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(posts))
}

func (s *Server) popularPosts(c *gin.Context) {
	limit := intQuery(c, "limit", 15)
	days := intQuery(c, "days", 7)
	since := s.now().AddDate(0, 0, -days)

	posts, err := s.store.PopularPosts(c.Request.Context(), limit, since, noticeKeywords)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(posts))
}

func (s *Server) getPost(c *gin.Context) {
	post, err := s.store.PostByID(c.Request.Context(), c.Param("post_id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// dailyStats returns one day's totals and 1-decimal averages, defaulting to
// the current day.
func (s *Server) dailyStats(c *gin.Context) {
	date := s.now()
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if err != nil {
			badRequest(c, "invalid date, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	posts, err := s.store.PostsByDay(c.Request.Context(), date)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, analyzer.CalculateDailyStats(posts))
}

func (s *Server) dailyCounts(c *gin.Context) {
	days := intQuery(c, "days", 7)
	counts, err := s.store.DailyPostCounts(c.Request.Context(), days)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(counts))
}

func (s *Server) listReports(c *gin.Context) {
	limit := intQuery(c, "limit", 30)
	reports, err := s.store.ListReports(c.Request.Context(), limit)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(reports))
}

func (s *Server) latestReport(c *gin.Context) {
	report, err := s.store.LatestReport(c.Request.Context())
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report available"})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) reportByDate(c *gin.Context) {
	date, err := time.ParseInLocation("2006-01-02", c.Param("date"), time.UTC)
	if err != nil {
		badRequest(c, "invalid date, expected YYYY-MM-DD")
		return
	}
	report, err := s.store.ReportByDate(c.Request.Context(), date)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report for that date"})
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// trendingKeywords aggregates keyword counts across the reports of the last
// N days. Ties keep first-encountered (most recent report) order.
func (s *Server) trendingKeywords(c *gin.Context) {
	days := intQuery(c, "days", 7)
	limit := intQuery(c, "limit", 20)

	reports, err := s.store.ReportsSince(c.Request.Context(), s.now().AddDate(0, 0, -days))
	if err != nil {
		s.internalError(c, err)
		return
	}

	totals := map[string]int{}
	var order []string
	for _, r := range reports {
		for _, k := range r.TopKeywords {
			if _, seen := totals[k.Keyword]; !seen {
				order = append(order, k.Keyword)
			}
			totals[k.Keyword] += k.Count
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return totals[order[i]] > totals[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}

	type entry struct {
		Keyword    string `json:"keyword"`
		TotalCount int    `json:"total_count"`
		Rank       int    `json:"rank"`
	}
	out := make([]entry, 0, len(order))
	for i, kw := range order {
		out = append(out, entry{Keyword: kw, TotalCount: totals[kw], Rank: i + 1})
	}
	c.JSON(http.StatusOK, out)
}

// characterRanking aggregates character mentions across the reports of the
// last N days.
func (s *Server) characterRanking(c *gin.Context) {
	days := intQuery(c, "days", 7)
	limit := intQuery(c, "limit", 20)

	reports, err := s.store.ReportsSince(c.Request.Context(), s.now().AddDate(0, 0, -days))
	if err != nil {
		s.internalError(c, err)
		return
	}

	totals := map[string]int{}
	var order []string
	for _, r := range reports {
		for _, ch := range r.CharacterRankings {
			if _, seen := totals[ch.Name]; !seen {
				order = append(order, ch.Name)
			}
			totals[ch.Name] += ch.Mentions
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return totals[order[i]] > totals[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}

	type entry struct {
		Name          string `json:"name"`
		TotalMentions int    `json:"total_mentions"`
		Rank          int    `json:"rank"`
	}
	out := make([]entry, 0, len(order))
	for i, name := range order {
		out = append(out, entry{Name: name, TotalMentions: totals[name], Rank: i + 1})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) characters(c *gin.Context) {
	service := c.Query("service")
	limit := intQuery(c, "limit", 30)

	cards, err := s.store.Characters(c.Request.Context(), service, limit, s.cfg.SessionTolerance)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, orEmpty(cards))
}

func (s *Server) triggerCrawl(c *gin.Context) {
	summary, err := s.pipeline.RunCrawl(c.Request.Context(), s.sources)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}

func (s *Server) triggerServiceCrawl(c *gin.Context) {
	var req struct {
		Services []string `json:"services"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}
	services := req.Services
	if len(services) == 0 {
		services = s.cfg.RankingServices
	}

	summary, err := s.pipeline.RunServiceCrawl(c.Request.Context(), services)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}

func (s *Server) generateReport(c *gin.Context) {
	date := s.now()
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if err != nil {
			badRequest(c, "invalid date, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	report, err := s.pipeline.GenerateReport(c.Request.Context(), date)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.WithError(err).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// orEmpty keeps empty list responses as JSON arrays instead of null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func intQuery(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
