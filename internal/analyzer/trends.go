// =============================================================================
// trends.go - daily statistics, trend deltas, hot posts
// =============================================================================
package analyzer

import (
	"math"
	"sort"

	"charmon/internal/model"
)

// changePercent computes the period-over-period change. A topic appearing
// from nothing is fixed at +100% rather than computed from zero.
func changePercent(current, previous int) float64 {
	switch {
	case previous > 0:
		return round1(float64(current-previous) / float64(previous) * 100)
	case current > 0:
		return 100.0
	default:
		return 0.0
	}
}

// classifyChange maps a change percentage onto up/down/stable. Exactly ±10%
// is still stable.
func classifyChange(change float64) string {
	switch {
	case change > 10:
		return "up"
	case change < -10:
		return "down"
	default:
		return "stable"
	}
}

// CalculateDailyStats aggregates one day's posts. An empty day yields all
// zeroes, never a division error.
func CalculateDailyStats(posts []model.Post) model.DailyStats {
	if len(posts) == 0 {
		return model.DailyStats{}
	}

	stats := model.DailyStats{TotalPosts: len(posts)}
	for _, p := range posts {
		stats.TotalViews += p.ViewCount
		stats.TotalRecommends += p.RecommendCount
		stats.TotalComments += p.CommentCount
	}
	n := float64(len(posts))
	stats.AvgViews = round1(float64(stats.TotalViews) / n)
	stats.AvgRecommends = round1(float64(stats.TotalRecommends) / n)
	stats.AvgComments = round1(float64(stats.TotalComments) / n)
	return stats
}

// HotPostWeights are the linear popularity coefficients. The 1/10/5 defaults
// are inherited policy, deliberately configurable rather than derived.
type HotPostWeights struct {
	View      float64
	Recommend float64
	Comment   float64
}

// DefaultHotPostWeights returns the inherited 1/10/5 weighting.
func DefaultHotPostWeights() HotPostWeights {
	return HotPostWeights{View: 1, Recommend: 10, Comment: 5}
}

// IdentifyHotPosts scores every post linearly and returns the topN by score.
func IdentifyHotPosts(posts []model.Post, topN int, w HotPostWeights) []model.HotPost {
	scored := make([]model.HotPost, 0, len(posts))
	for _, p := range posts {
		score := float64(p.ViewCount)*w.View +
			float64(p.RecommendCount)*w.Recommend +
			float64(p.CommentCount)*w.Comment
		scored = append(scored, model.HotPost{Post: p, PopularityScore: round1(score)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].PopularityScore > scored[j].PopularityScore
	})
	if topN > 0 && len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}

// FindTrendingTopics detects keywords whose mention count grew by at least
// threshold percent, returning at most limit topics. Keywords under
// minMentions current mentions are excluded regardless of growth:
// 1 -> 2 mentions is +100% and statistically nothing.
func FindTrendingTopics(current, previous []model.KeywordEntry, threshold float64, minMentions, limit int) []model.TrendingTopic {
	previousCounts := map[string]int{}
	for _, k := range previous {
		previousCounts[k.Keyword] = k.Count
	}
	currentCounts := map[string]int{}
	var order []string
	for _, k := range current {
		currentCounts[k.Keyword] = k.Count
		order = append(order, k.Keyword)
	}
	for _, k := range previous {
		if _, dup := currentCounts[k.Keyword]; !dup {
			order = append(order, k.Keyword)
		}
	}

	var trending []model.TrendingTopic
	for _, keyword := range order {
		cur := currentCounts[keyword]
		prev := previousCounts[keyword]
		if cur < minMentions {
			continue
		}

		var growth float64
		if prev > 0 {
			growth = round1(float64(cur-prev) / float64(prev) * 100)
		} else {
			growth = 100.0 // new entrant
		}
		if growth < threshold {
			continue
		}

		trending = append(trending, model.TrendingTopic{
			Topic:    keyword,
			Current:  cur,
			Previous: prev,
			Growth:   growth,
		})
	}

	sort.SliceStable(trending, func(i, j int) bool {
		return trending[i].Growth > trending[j].Growth
	})
	if limit > 0 && len(trending) > limit {
		trending = trending[:limit]
	}
	return trending
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
