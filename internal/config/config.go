// =============================================================================
// config.go - configuration surface
// =============================================================================
//
// Scalar settings come from environment variables (.env loaded in main via
// godotenv); the crawl target list lives in a YAML file so new boards can be
// added without a rebuild.
//
// =============================================================================
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source is one crawl target: a community board or a ranking service.
type Source struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Type string `yaml:"type"` // dcinside, dcinside_minor, arcalive
	URL  string `yaml:"url"`
}

// Config holds every externally supplied setting the pipelines consume.
type Config struct {
	DatabasePath string
	ListenAddr   string
	SourcesPath  string

	// Crawl policy
	PagesPerCrawl    int
	CrawlDelay       time.Duration // between pages of one source
	SourceDelay      time.Duration // between distinct sources
	FetchTimeout     time.Duration
	MaxRetries       int
	RankingLimit     int           // characters per ranking service
	RankingServices  []string      // services crawled by the daily job
	SessionTolerance time.Duration // clock-skew window for one ranking session

	// Analytics policy
	GrowthThreshold float64 // emerging-topic growth %, default 50
	MinMentions     int     // emerging-topic absolute floor, default 3
	ViewWeight      float64
	RecommendWeight float64
	CommentWeight   float64
}

// Load reads the environment and applies defaults. It never fails on a
// missing optional variable; only malformed numbers are reported.
func Load() (Config, error) {
	cfg := Config{
		DatabasePath:     envStr("CHARMON_DB", "monitoring.db"),
		ListenAddr:       envStr("CHARMON_ADDR", ":8001"),
		SourcesPath:      envStr("CHARMON_SOURCES", "sources.yaml"),
		PagesPerCrawl:    3,
		CrawlDelay:       1500 * time.Millisecond,
		SourceDelay:      2 * time.Second,
		FetchTimeout:     30 * time.Second,
		MaxRetries:       3,
		RankingLimit:     30,
		RankingServices:  []string{"zeta", "lunatalk"},
		SessionTolerance: 5 * time.Minute,
		GrowthThreshold:  50.0,
		MinMentions:      3,
		ViewWeight:       1.0,
		RecommendWeight:  10.0,
		CommentWeight:    5.0,
	}

	var err error
	if cfg.PagesPerCrawl, err = envInt("CHARMON_PAGES", cfg.PagesPerCrawl); err != nil {
		return cfg, err
	}
	if cfg.MaxRetries, err = envInt("CHARMON_MAX_RETRIES", cfg.MaxRetries); err != nil {
		return cfg, err
	}
	if cfg.RankingLimit, err = envInt("CHARMON_RANKING_LIMIT", cfg.RankingLimit); err != nil {
		return cfg, err
	}
	if cfg.CrawlDelay, err = envDuration("CHARMON_CRAWL_DELAY", cfg.CrawlDelay); err != nil {
		return cfg, err
	}
	if cfg.SourceDelay, err = envDuration("CHARMON_SOURCE_DELAY", cfg.SourceDelay); err != nil {
		return cfg, err
	}
	if cfg.SessionTolerance, err = envDuration("CHARMON_SESSION_TOLERANCE", cfg.SessionTolerance); err != nil {
		return cfg, err
	}
	if cfg.GrowthThreshold, err = envFloat("CHARMON_GROWTH_THRESHOLD", cfg.GrowthThreshold); err != nil {
		return cfg, err
	}
	if cfg.MinMentions, err = envInt("CHARMON_MIN_MENTIONS", cfg.MinMentions); err != nil {
		return cfg, err
	}
	if cfg.ViewWeight, err = envFloat("CHARMON_VIEW_WEIGHT", cfg.ViewWeight); err != nil {
		return cfg, err
	}
	if cfg.RecommendWeight, err = envFloat("CHARMON_RECOMMEND_WEIGHT", cfg.RecommendWeight); err != nil {
		return cfg, err
	}
	if cfg.CommentWeight, err = envFloat("CHARMON_COMMENT_WEIGHT", cfg.CommentWeight); err != nil {
		return cfg, err
	}
	cfg.RankingServices = envList("CHARMON_RANKING_SERVICES", cfg.RankingServices)
	return cfg, nil
}

// LoadSources reads the crawl target list from a YAML file.
func LoadSources(path string) ([]Source, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var doc struct {
		Sources []Source `yaml:"sources"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	for i, s := range doc.Sources {
		if s.ID == "" || s.Type == "" {
			return nil, fmt.Errorf("source %d: id and type are required", i)
		}
	}
	return doc.Sources, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envList parses a comma-separated variable, dropping empty elements.
func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
