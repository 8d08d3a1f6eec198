// =============================================================================
// report.go - daily report assembly
// =============================================================================
//
// Pulls today's and yesterday's posts through the extractors and composes the
// daily report. Every step tolerates empty input: a day with no posts still
// yields a complete, zeroed report.
//
// =============================================================================
package analyzer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"charmon/internal/model"
)

// ReportPolicy collects the tunable analytics constants.
type ReportPolicy struct {
	TopKeywords     int
	TopCharacters   int
	TopHotPosts     int
	TopTrending     int
	GrowthThreshold float64
	MinMentions     int
	Weights         HotPostWeights
}

// DefaultReportPolicy mirrors the inherited defaults: 30 keywords, 20
// characters, 10 hot posts, 20 trending topics, 50% growth threshold,
// 3-mention floor, 1/10/5 popularity weights.
func DefaultReportPolicy() ReportPolicy {
	return ReportPolicy{
		TopKeywords:     30,
		TopCharacters:   20,
		TopHotPosts:     10,
		TopTrending:     20,
		GrowthThreshold: 50.0,
		MinMentions:     3,
		Weights:         DefaultHotPostWeights(),
	}
}

// Assembler builds daily reports from post sets.
type Assembler struct {
	keywords *KeywordExtractor
	policy   ReportPolicy

	now func() time.Time // injectable for tests
}

// NewAssembler wires the injected keyword extractor and policy.
func NewAssembler(keywords *KeywordExtractor, policy ReportPolicy) *Assembler {
	return &Assembler{keywords: keywords, policy: policy, now: time.Now}
}

// BuildDailyReport assembles the report for date from today's posts, using
// yesterday's posts for trend comparison when supplied. The derived fields
// are a pure function of the inputs, so re-running for the same date is safe
// to upsert.
func (a *Assembler) BuildDailyReport(todayPosts, yesterdayPosts []model.Post, date time.Time) model.DailyReport {
	stats := CalculateDailyStats(todayPosts)

	titles := postTitles(todayPosts)
	keywords := a.keywords.ExtractKeywordsWeighted(titles, a.policy.TopKeywords)
	rankings := RankCharacters(titles, a.policy.TopCharacters)

	var trendingTopics []model.TrendingTopic
	var characterTrends []model.TrendEntry
	if len(yesterdayPosts) > 0 {
		previousTitles := postTitles(yesterdayPosts)
		previousKeywords := a.keywords.ExtractKeywordsWeighted(previousTitles, a.policy.TopKeywords)
		trendingTopics = FindTrendingTopics(keywords, previousKeywords, a.policy.GrowthThreshold, a.policy.MinMentions, a.policy.TopTrending)
		characterTrends = AnalyzeCharacterTrends(titles, previousTitles, a.policy.TopCharacters)
	}

	return model.DailyReport{
		ReportDate:        date,
		GeneratedAt:       a.now(),
		Statistics:        stats,
		TopKeywords:       keywords,
		CharacterRankings: rankings,
		TrendingTopics:    trendingTopics,
		CharacterTrends:   characterTrends,
		HotPosts:          IdentifyHotPosts(todayPosts, a.policy.TopHotPosts, a.policy.Weights),
		Summary:           renderSummary(stats, keywords, rankings),
	}
}

// renderSummary produces the short Korean digest embedded in the report.
func renderSummary(stats model.DailyStats, keywords []model.KeywordEntry, characters []model.CharacterRanking) string {
	topKeywords := make([]string, 0, 5)
	for i, k := range keywords {
		if i == 5 {
			break
		}
		topKeywords = append(topKeywords, k.Keyword)
	}
	topCharacters := make([]string, 0, 5)
	for i, c := range characters {
		if i == 5 {
			break
		}
		topCharacters = append(topCharacters, c.Name)
	}

	return fmt.Sprintf(
		"오늘 총 %d개의 게시글이 수집되었습니다.\n"+
			"총 조회수 %s회, 추천 %d개, 댓글 %d개가 기록되었습니다.\n\n"+
			"주요 키워드: %s\n"+
			"인기 캐릭터: %s",
		stats.TotalPosts,
		groupDigits(stats.TotalViews),
		stats.TotalRecommends,
		stats.TotalComments,
		strings.Join(topKeywords, ", "),
		strings.Join(topCharacters, ", "),
	)
}

func postTitles(posts []model.Post) []string {
	titles := make([]string, 0, len(posts))
	for _, p := range posts {
		if p.Title != "" {
			titles = append(titles, p.Title)
		}
	}
	return titles
}

// groupDigits formats n with thousands separators ("12345" -> "12,345").
func groupDigits(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
