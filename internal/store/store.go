// =============================================================================
// store.go - SQLite persistence
// =============================================================================
//
// Three tables back the pipelines: posts (deduplicated on source_id+post_id,
// first write wins), chat_service_characters (snapshot per ranking session,
// replaced wholesale on each crawl), and daily_reports (one row per date,
// upserted). Timestamps are stored as UTC RFC 3339 text so day windows can be
// compared lexically; the report's ranked lists are JSON columns.
//
// =============================================================================
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite"

	"charmon/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id         TEXT NOT NULL,
	source_id       TEXT NOT NULL,
	title           TEXT NOT NULL,
	author          TEXT NOT NULL DEFAULT '',
	published_at    TEXT,
	crawled_at      TEXT NOT NULL,
	view_count      INTEGER NOT NULL DEFAULT 0,
	recommend_count INTEGER NOT NULL DEFAULT 0,
	comment_count   INTEGER NOT NULL DEFAULT 0,
	url             TEXT NOT NULL DEFAULT '',
	UNIQUE(source_id, post_id)
);
CREATE INDEX IF NOT EXISTS idx_posts_crawled_at ON posts(crawled_at);

CREATE TABLE IF NOT EXISTS chat_service_characters (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	service       TEXT NOT NULL,
	character_id  TEXT NOT NULL,
	rank          INTEGER NOT NULL,
	name          TEXT NOT NULL,
	author        TEXT NOT NULL DEFAULT '',
	views         INTEGER NOT NULL DEFAULT 0,
	tags          TEXT NOT NULL DEFAULT '[]',
	description   TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT NOT NULL DEFAULT '',
	character_url TEXT NOT NULL DEFAULT '',
	crawled_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_characters_service_rank ON chat_service_characters(service, rank);

CREATE TABLE IF NOT EXISTS daily_reports (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	report_date        TEXT NOT NULL UNIQUE,
	generated_at       TEXT NOT NULL,
	statistics         TEXT NOT NULL,
	top_keywords       TEXT NOT NULL,
	character_rankings TEXT NOT NULL,
	trending_topics    TEXT NOT NULL,
	character_trends   TEXT NOT NULL,
	hot_posts          TEXT NOT NULL,
	summary            TEXT NOT NULL
);
`

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the database at path and applies the schema.
// Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc.org/sqlite serializes writes itself; a single connection avoids
	// SQLITE_BUSY on concurrent handlers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SavePosts inserts posts, skipping rows whose (source_id, post_id) already
// exists. The stored row for a repeated post keeps its original counters.
// Returns the number of newly inserted rows.
func (s *Store) SavePosts(ctx context.Context, posts []model.Post) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO posts
		(post_id, source_id, title, author, published_at, crawled_at,
		 view_count, recommend_count, comment_count, url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, p := range posts {
		res, err := stmt.ExecContext(ctx,
			p.PostID, p.SourceID, p.Title, p.Author,
			fmtTimePtr(p.PublishedAt), fmtTime(p.CrawledAt),
			p.ViewCount, p.RecommendCount, p.CommentCount, p.URL)
		if err != nil {
			return 0, fmt.Errorf("insert post %s/%s: %w", p.SourceID, p.PostID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, tx.Commit()
}

// PostByID returns the first stored post carrying the given post id. Post ids
// are only unique per source, so the oldest stored row wins a collision.
func (s *Store) PostByID(ctx context.Context, postID string) (model.Post, error) {
	posts, err := s.queryPosts(ctx, `
		SELECT post_id, source_id, title, author, published_at, crawled_at,
		       view_count, recommend_count, comment_count, url
		FROM posts
		WHERE post_id = ?
		ORDER BY id LIMIT 1`, postID)
	if err != nil {
		return model.Post{}, err
	}
	if len(posts) == 0 {
		return model.Post{}, ErrNotFound
	}
	return posts[0], nil
}

// PostsByDay returns the posts crawled on the given calendar day (UTC),
// newest first.
func (s *Store) PostsByDay(ctx context.Context, day time.Time) ([]model.Post, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)
	return s.queryPosts(ctx, `
		SELECT post_id, source_id, title, author, published_at, crawled_at,
		       view_count, recommend_count, comment_count, url
		FROM posts
		WHERE crawled_at >= ? AND crawled_at < ?
		ORDER BY crawled_at DESC, id DESC`,
		fmtTime(start), fmtTime(end))
}

// ListPosts returns the most recently crawled posts, optionally restricted to
// one source, with offset paging.
func (s *Store) ListPosts(ctx context.Context, sourceID string, limit, offset int) ([]model.Post, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	q := `
		SELECT post_id, source_id, title, author, published_at, crawled_at,
		       view_count, recommend_count, comment_count, url
		FROM posts`
	args := []any{}
	if sourceID != "" {
		q += ` WHERE source_id = ?`
		args = append(args, sourceID)
	}
	q += ` ORDER BY crawled_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	return s.queryPosts(ctx, q, args...)
}

// PopularPosts returns posts crawled since the cutoff, ordered by recommend
// count then view count, dropping any whose title contains one of the exclude
// keywords (notice filtering).
func (s *Store) PopularPosts(ctx context.Context, limit int, since time.Time, exclude []string) ([]model.Post, error) {
	if limit <= 0 {
		limit = 15
	}
	// Over-fetch so keyword filtering rarely starves the page.
	rows, err := s.queryPosts(ctx, `
		SELECT post_id, source_id, title, author, published_at, crawled_at,
		       view_count, recommend_count, comment_count, url
		FROM posts
		WHERE crawled_at >= ?
		ORDER BY recommend_count DESC, view_count DESC, id DESC LIMIT ?`,
		fmtTime(since), limit*5)
	if err != nil {
		return nil, err
	}

	out := make([]model.Post, 0, limit)
	for _, p := range rows {
		if containsAny(p.Title, exclude) {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// DailyCount is one day's post total.
type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// DailyPostCounts returns per-day post totals for the most recent days,
// newest first.
func (s *Store) DailyPostCounts(ctx context.Context, days int) ([]DailyCount, error) {
	if days <= 0 {
		days = 7
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(crawled_at, 1, 10) AS day, COUNT(*)
		FROM posts
		GROUP BY day
		ORDER BY day DESC
		LIMIT ?`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyCount
	for rows.Next() {
		var c DailyCount
		if err := rows.Scan(&c.Date, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReplaceCharacters swaps the stored snapshot for one service with the given
// cards, atomically.
func (s *Store) ReplaceCharacters(ctx context.Context, service string, cards []model.CharacterCard) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_service_characters WHERE service = ?`, service); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chat_service_characters
		(service, character_id, rank, name, author, views, tags,
		 description, thumbnail_url, character_url, crawled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range cards {
		tags, err := json.MarshalToString(emptyIfNil(c.Tags))
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			c.Service, c.CharacterID, c.Rank, c.Name, c.Author, c.Views,
			tags, c.Description, c.ThumbnailURL, c.CharacterURL,
			fmtTime(c.CrawledAt)); err != nil {
			return fmt.Errorf("insert character %s/%s: %w", c.Service, c.CharacterID, err)
		}
	}
	return tx.Commit()
}

// Characters returns the current ranking session for one service ordered by
// rank, or every service's session when service is empty. A session is the
// most recent crawl timestamp minus the tolerance window, so cards written
// moments apart by one run stay together.
func (s *Store) Characters(ctx context.Context, service string, limit int, tolerance time.Duration) ([]model.CharacterCard, error) {
	if limit <= 0 {
		limit = 100
	}

	latestQ := `SELECT MAX(crawled_at) FROM chat_service_characters`
	latestArgs := []any{}
	if service != "" {
		latestQ += ` WHERE service = ?`
		latestArgs = append(latestArgs, service)
	}
	var latest sql.NullString
	if err := s.db.QueryRowContext(ctx, latestQ, latestArgs...).Scan(&latest); err != nil {
		return nil, err
	}
	if !latest.Valid {
		return nil, nil
	}
	latestAt, err := parseTime(latest.String)
	if err != nil {
		return nil, err
	}

	q := `
		SELECT service, character_id, rank, name, author, views, tags,
		       description, thumbnail_url, character_url, crawled_at
		FROM chat_service_characters
		WHERE crawled_at >= ?`
	args := []any{fmtTime(latestAt.Add(-tolerance))}
	if service != "" {
		q += ` AND service = ?`
		args = append(args, service)
	}
	q += ` ORDER BY service, rank LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CharacterCard
	for rows.Next() {
		var c model.CharacterCard
		var tags, crawledAt string
		if err := rows.Scan(&c.Service, &c.CharacterID, &c.Rank, &c.Name,
			&c.Author, &c.Views, &tags, &c.Description,
			&c.ThumbnailURL, &c.CharacterURL, &crawledAt); err != nil {
			return nil, err
		}
		if err := json.UnmarshalFromString(tags, &c.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for %s/%s: %w", c.Service, c.CharacterID, err)
		}
		if c.CrawledAt, err = parseTime(crawledAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveReport inserts or replaces the report for its date.
func (s *Store) SaveReport(ctx context.Context, r model.DailyReport) error {
	cols, err := encodeReport(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO daily_reports
		(report_date, generated_at, statistics, top_keywords, character_rankings,
		 trending_topics, character_trends, hot_posts, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(report_date) DO UPDATE SET
			generated_at = excluded.generated_at,
			statistics = excluded.statistics,
			top_keywords = excluded.top_keywords,
			character_rankings = excluded.character_rankings,
			trending_topics = excluded.trending_topics,
			character_trends = excluded.character_trends,
			hot_posts = excluded.hot_posts,
			summary = excluded.summary`,
		r.ReportDate.UTC().Format("2006-01-02"), fmtTime(r.GeneratedAt),
		cols.statistics, cols.topKeywords, cols.characterRankings,
		cols.trendingTopics, cols.characterTrends, cols.hotPosts, r.Summary)
	return err
}

// ReportByDate returns the report stored for one calendar day (UTC).
func (s *Store) ReportByDate(ctx context.Context, date time.Time) (model.DailyReport, error) {
	return s.queryReport(ctx, `
		SELECT report_date, generated_at, statistics, top_keywords,
		       character_rankings, trending_topics, character_trends,
		       hot_posts, summary
		FROM daily_reports WHERE report_date = ?`,
		date.UTC().Format("2006-01-02"))
}

// LatestReport returns the most recent report by date.
func (s *Store) LatestReport(ctx context.Context) (model.DailyReport, error) {
	return s.queryReport(ctx, `
		SELECT report_date, generated_at, statistics, top_keywords,
		       character_rankings, trending_topics, character_trends,
		       hot_posts, summary
		FROM daily_reports ORDER BY report_date DESC LIMIT 1`)
}

// ReportsSince returns reports dated on or after since, newest first.
func (s *Store) ReportsSince(ctx context.Context, since time.Time) ([]model.DailyReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT report_date, generated_at, statistics, top_keywords,
		       character_rankings, trending_topics, character_trends,
		       hot_posts, summary
		FROM daily_reports
		WHERE report_date >= ?
		ORDER BY report_date DESC`, since.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DailyReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListReports returns reports newest first.
func (s *Store) ListReports(ctx context.Context, limit int) ([]model.DailyReport, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT report_date, generated_at, statistics, top_keywords,
		       character_rankings, trending_topics, character_trends,
		       hot_posts, summary
		FROM daily_reports ORDER BY report_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DailyReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) queryPosts(ctx context.Context, q string, args ...any) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Post
	for rows.Next() {
		var p model.Post
		var publishedAt sql.NullString
		var crawledAt string
		if err := rows.Scan(&p.PostID, &p.SourceID, &p.Title, &p.Author,
			&publishedAt, &crawledAt, &p.ViewCount, &p.RecommendCount,
			&p.CommentCount, &p.URL); err != nil {
			return nil, err
		}
		if p.CrawledAt, err = parseTime(crawledAt); err != nil {
			return nil, err
		}
		if publishedAt.Valid {
			t, err := parseTime(publishedAt.String)
			if err != nil {
				return nil, err
			}
			p.PublishedAt = &t
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) queryReport(ctx context.Context, q string, args ...any) (model.DailyReport, error) {
	row := s.db.QueryRowContext(ctx, q, args...)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DailyReport{}, ErrNotFound
	}
	return r, err
}

type reportColumns struct {
	statistics        string
	topKeywords       string
	characterRankings string
	trendingTopics    string
	characterTrends   string
	hotPosts          string
}

func encodeReport(r model.DailyReport) (reportColumns, error) {
	var cols reportColumns
	var err error
	if cols.statistics, err = json.MarshalToString(r.Statistics); err != nil {
		return cols, err
	}
	if cols.topKeywords, err = json.MarshalToString(emptyIfNil(r.TopKeywords)); err != nil {
		return cols, err
	}
	if cols.characterRankings, err = json.MarshalToString(emptyIfNil(r.CharacterRankings)); err != nil {
		return cols, err
	}
	if cols.trendingTopics, err = json.MarshalToString(emptyIfNil(r.TrendingTopics)); err != nil {
		return cols, err
	}
	if cols.characterTrends, err = json.MarshalToString(emptyIfNil(r.CharacterTrends)); err != nil {
		return cols, err
	}
	if cols.hotPosts, err = json.MarshalToString(emptyIfNil(r.HotPosts)); err != nil {
		return cols, err
	}
	return cols, nil
}

func scanReport(row rowScanner) (model.DailyReport, error) {
	var r model.DailyReport
	var reportDate, generatedAt string
	var cols reportColumns
	if err := row.Scan(&reportDate, &generatedAt, &cols.statistics,
		&cols.topKeywords, &cols.characterRankings, &cols.trendingTopics,
		&cols.characterTrends, &cols.hotPosts, &r.Summary); err != nil {
		return r, err
	}

	var err error
	if r.ReportDate, err = time.ParseInLocation("2006-01-02", reportDate, time.UTC); err != nil {
		return r, fmt.Errorf("decode report date %q: %w", reportDate, err)
	}
	if r.GeneratedAt, err = parseTime(generatedAt); err != nil {
		return r, err
	}
	for _, f := range []struct {
		raw string
		dst any
	}{
		{cols.statistics, &r.Statistics},
		{cols.topKeywords, &r.TopKeywords},
		{cols.characterRankings, &r.CharacterRankings},
		{cols.trendingTopics, &r.TrendingTopics},
		{cols.characterTrends, &r.CharacterTrends},
		{cols.hotPosts, &r.HotPosts},
	} {
		if err := json.UnmarshalFromString(f.raw, f.dst); err != nil {
			return r, fmt.Errorf("decode report column: %w", err)
		}
	}
	return r, nil
}

// timeLayout keeps a fixed-width fraction so stored timestamps compare
// correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp %q: %w", s, err)
	}
	return t, nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
