// =============================================================================
// keywords.go - tokenization and keyword extraction
// =============================================================================
//
// Titles are split into script-aware word runs (Hangul runs and Latin runs
// extracted separately), short tokens and stop words are dropped, and the
// surviving stream feeds frequency ranking, TF-IDF weighting, and n-gram
// phrase extraction. The extractor is an injected component, not a global.
//
// =============================================================================
package analyzer

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"charmon/internal/model"
)

// reToken extracts Hangul and Latin runs separately; a mixed-script title
// yields one token per script run.
var reToken = regexp.MustCompile(`[가-힣]+|[a-zA-Z]+`)

// defaultStopwords covers general discourse filler, board jargon, and
// domain-generic terms that would otherwise dominate every ranking.
var defaultStopwords = []string{
	// general filler
	"있다", "하다", "되다", "이다", "것", "수", "등", "더", "좀", "그", "저",
	"이", "그것", "저것", "뭐", "무엇", "어떤", "이런", "저런", "그런",
	"하는", "하면", "해서", "하고", "하지", "않다", "없다", "같다",
	// board jargon
	"갤러리", "글", "댓글", "추천", "비추", "게시글", "작성",
	"ㅋㅋ", "ㅋㅋㅋ", "ㅋㅋㅋㅋ", "ㅎㅎ", "ㅎㅎㅎ", "ㄷㄷ", "ㅇㅇ",
	"ㄹㅇ", "ㅈㄱㄴ", "ㅁㅊ", "ㅂㅅ", "ㄱㅇㄷ",
	// too generic in this domain to rank
	"캐릭터", "챗봇", "봇", "채팅", "대화", "ai", "bot", "chat",
}

// KeywordExtractor tokenizes text and ranks keywords.
type KeywordExtractor struct {
	stopwords map[string]struct{}
}

// NewKeywordExtractor builds an extractor with the default stop-word set.
func NewKeywordExtractor() *KeywordExtractor {
	return NewKeywordExtractorWithStopwords(defaultStopwords)
}

// NewKeywordExtractorWithStopwords builds an extractor with a custom set.
func NewKeywordExtractorWithStopwords(stopwords []string) *KeywordExtractor {
	set := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &KeywordExtractor{stopwords: set}
}

// Tokenize returns the filtered token stream for one text: script-aware word
// runs, minimum two characters, stop words removed.
func (e *KeywordExtractor) Tokenize(text string) []string {
	var tokens []string
	for _, tok := range reToken.FindAllString(text, -1) {
		if utf8.RuneCountInString(tok) < 2 {
			continue
		}
		if _, stop := e.stopwords[strings.ToLower(tok)]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// ExtractKeywords ranks keywords by raw frequency. Score is the keyword's
// proportion of all tokens. Ties keep first-encountered order.
func (e *KeywordExtractor) ExtractKeywords(texts []string, topN int) []model.KeywordEntry {
	counts := map[string]int{}
	var order []string
	total := 0

	for _, text := range texts {
		for _, tok := range e.Tokenize(text) {
			if _, seen := counts[tok]; !seen {
				order = append(order, tok)
			}
			counts[tok]++
			total++
		}
	}
	if total == 0 {
		return nil
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if topN > 0 && len(order) > topN {
		order = order[:topN]
	}

	entries := make([]model.KeywordEntry, 0, len(order))
	for _, kw := range order {
		entries = append(entries, model.KeywordEntry{
			Keyword: kw,
			Count:   counts[kw],
			Score:   round4(float64(counts[kw]) / float64(total)),
		})
	}
	return entries
}

// ExtractKeywordsWeighted ranks keywords by average TF-IDF across the text
// collection, normalized so the top score is 1. Counts are raw frequencies.
// With fewer than two documents the weighting collapses to frequency order,
// which is the intended degradation.
func (e *KeywordExtractor) ExtractKeywordsWeighted(texts []string, topN int) []model.KeywordEntry {
	docs := make([][]string, 0, len(texts))
	for _, text := range texts {
		if toks := e.Tokenize(text); len(toks) > 0 {
			docs = append(docs, toks)
		}
	}
	if len(docs) == 0 {
		return nil
	}

	counts := map[string]int{}  // corpus-wide raw frequency
	docFreq := map[string]int{} // documents containing the term
	var order []string
	for _, doc := range docs {
		inDoc := map[string]bool{}
		for _, tok := range doc {
			if _, seen := counts[tok]; !seen {
				order = append(order, tok)
			}
			counts[tok]++
			if !inDoc[tok] {
				inDoc[tok] = true
				docFreq[tok]++
			}
		}
	}

	// Average tf-idf per term over all documents, smoothed the same way
	// scikit-learn does (idf = ln((1+n)/(1+df)) + 1).
	n := float64(len(docs))
	scores := map[string]float64{}
	for _, doc := range docs {
		tf := map[string]float64{}
		for _, tok := range doc {
			tf[tok]++
		}
		for tok, f := range tf {
			idf := math.Log((1+n)/(1+float64(docFreq[tok]))) + 1
			scores[tok] += (f / float64(len(doc))) * idf
		}
	}
	maxScore := 0.0
	for tok := range scores {
		scores[tok] /= n
		if scores[tok] > maxScore {
			maxScore = scores[tok]
		}
	}
	if maxScore > 0 {
		for tok := range scores {
			scores[tok] /= maxScore
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	if topN > 0 && len(order) > topN {
		order = order[:topN]
	}

	entries := make([]model.KeywordEntry, 0, len(order))
	for _, kw := range order {
		entries = append(entries, model.KeywordEntry{
			Keyword: kw,
			Count:   counts[kw],
			Score:   round4(scores[kw]),
		})
	}
	return entries
}

// ExtractNgrams ranks contiguous n-token phrases built from the filtered
// token stream, by raw count.
func (e *KeywordExtractor) ExtractNgrams(texts []string, n, topN int) []model.NgramEntry {
	if n < 2 {
		n = 2
	}
	counts := map[string]int{}
	var order []string

	for _, text := range texts {
		tokens := e.Tokenize(text)
		for i := 0; i+n <= len(tokens); i++ {
			gram := strings.Join(tokens[i:i+n], " ")
			if _, seen := counts[gram]; !seen {
				order = append(order, gram)
			}
			counts[gram]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if topN > 0 && len(order) > topN {
		order = order[:topN]
	}

	entries := make([]model.NgramEntry, 0, len(order))
	for _, gram := range order {
		entries = append(entries, model.NgramEntry{Ngram: gram, Count: counts[gram]})
	}
	return entries
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
