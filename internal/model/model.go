// =============================================================================
// model.go - shared record types
// =============================================================================
//
// Every record that crosses a package boundary in charmon is defined here:
// crawled posts and character cards on the ingestion side, keyword/character/
// trend entries and the assembled daily report on the analytics side.
//
// =============================================================================
package model

import "time"

// Post is one discussion-thread snapshot normalized from a community board.
// (SourceID, PostID) is the natural dedup key; the store enforces it.
type Post struct {
	PostID         string     `json:"post_id"`
	SourceID       string     `json:"source_id"`
	Title          string     `json:"title"`
	Author         string     `json:"author,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"` // nil when the source only shows partial dates
	CrawledAt      time.Time  `json:"crawled_at"`
	ViewCount      int        `json:"view_count"`
	RecommendCount int        `json:"recommend_count"`
	CommentCount   int        `json:"comment_count"`
	URL            string     `json:"url"`
}

// CharacterCard is one ranked entry from a character-chat ranking page.
// Rank is meaningful only relative to cards sharing the same CrawledAt
// session; a new crawl replaces the previous snapshot for that service.
type CharacterCard struct {
	Service      string    `json:"service"`
	CharacterID  string    `json:"character_id"`
	Rank         int       `json:"rank"`
	Name         string    `json:"name"`
	Author       string    `json:"author,omitempty"`
	Views        int       `json:"views"`
	Tags         []string  `json:"tags,omitempty"`
	Description  string    `json:"description,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CharacterURL string    `json:"character_url,omitempty"`
	CrawledAt    time.Time `json:"crawled_at"`
}

// KeywordEntry is one ranked keyword. Score is either a frequency proportion
// or a TF-IDF weight depending on which extractor produced it.
type KeywordEntry struct {
	Keyword string  `json:"keyword"`
	Count   int     `json:"count"`
	Score   float64 `json:"score"`
}

// NgramEntry is one ranked token-pair (or longer) phrase.
type NgramEntry struct {
	Ngram string `json:"ngram"`
	Count int    `json:"count"`
}

// CharacterRanking is one entry of the mention-frequency ranking derived from
// post titles. Name is the canonical display form: the most frequent original
// spelling among all case-folded variants, first-seen breaking ties.
type CharacterRanking struct {
	Name     string `json:"name"`
	Mentions int    `json:"mentions"`
	Rank     int    `json:"rank"`
}

// TrendEntry compares one name's mention volume across two periods.
// Trend is "up" above +10% change, "down" below -10%, "stable" otherwise.
type TrendEntry struct {
	Name     string  `json:"name"`
	Current  int     `json:"current"`
	Previous int     `json:"previous"`
	Change   float64 `json:"change"`
	Trend    string  `json:"trend"`
}

// TrendingTopic is a keyword that cleared the emerging-topic guard:
// at least 3 current mentions and growth at or above the threshold.
type TrendingTopic struct {
	Topic    string  `json:"topic"`
	Current  int     `json:"current"`
	Previous int     `json:"previous"`
	Growth   float64 `json:"growth"`
}

// DailyStats aggregates one day's post counters. Averages are rounded to one
// decimal and zero when the day has no posts.
type DailyStats struct {
	TotalPosts      int     `json:"total_posts"`
	TotalViews      int     `json:"total_views"`
	TotalRecommends int     `json:"total_recommends"`
	TotalComments   int     `json:"total_comments"`
	AvgViews        float64 `json:"avg_views"`
	AvgRecommends   float64 `json:"avg_recommends"`
	AvgComments     float64 `json:"avg_comments"`
}

// HotPost is a post annotated with its linear popularity score
// (views*1 + recommends*10 + comments*5 under the default weights).
type HotPost struct {
	Post
	PopularityScore float64 `json:"popularity_score"`
}

// DailyReport is the assembled daily analytics product, upserted by date.
type DailyReport struct {
	ReportDate        time.Time          `json:"report_date"`
	GeneratedAt       time.Time          `json:"generated_at"`
	Statistics        DailyStats         `json:"statistics"`
	TopKeywords       []KeywordEntry     `json:"top_keywords"`
	CharacterRankings []CharacterRanking `json:"character_rankings"`
	TrendingTopics    []TrendingTopic    `json:"trending_topics"`
	CharacterTrends   []TrendEntry       `json:"character_trends"`
	HotPosts          []HotPost          `json:"hot_posts"`
	Summary           string             `json:"summary"`
}
