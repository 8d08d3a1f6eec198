package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeScriptAwareRuns(t *testing.T) {
	e := NewKeywordExtractor()

	// Hangul and Latin runs come out as separate tokens.
	require.Equal(t, []string{"루나", "설정", "공유"}, e.Tokenize("루나Ai설정 공유"))
	require.Equal(t, []string{"janitor", "프롬프트"}, e.Tokenize("janitor용 프롬프트!!"))
}

func TestTokenizeDropsShortTokensAndStopwords(t *testing.T) {
	e := NewKeywordExtractor()

	require.Empty(t, e.Tokenize("ㅋㅋㅋ 봇 추천"))
	// "chat" is stop-listed case-insensitively.
	require.Empty(t, e.Tokenize("Chat CHAT"))
	// single-character runs vanish
	require.Empty(t, e.Tokenize("a b 글"))
}

func TestExtractKeywordsFrequencyRanking(t *testing.T) {
	e := NewKeywordExtractor()
	texts := []string{
		"루나 설정 공유",
		"루나 프롬프트",
		"세라핀 프롬프트",
	}

	entries := e.ExtractKeywords(texts, 10)
	require.Len(t, entries, 5)

	// 루나 and 프롬프트 both have 2 mentions; 루나 was seen first.
	require.Equal(t, "루나", entries[0].Keyword)
	require.Equal(t, 2, entries[0].Count)
	require.Equal(t, "프롬프트", entries[1].Keyword)

	// Score is the proportion of all tokens (2 of 7).
	require.InDelta(t, 2.0/7.0, entries[0].Score, 0.0001)
}

func TestExtractKeywordsEmptyInput(t *testing.T) {
	e := NewKeywordExtractor()
	require.Empty(t, e.ExtractKeywords(nil, 10))
	require.Empty(t, e.ExtractKeywords([]string{"", "ㅋㅋ"}, 10))
}

func TestExtractKeywordsWeighted(t *testing.T) {
	e := NewKeywordExtractor()
	texts := []string{
		"루나 설정",
		"루나 공략집",
		"세라핀 수위조절 가이드",
	}

	entries := e.ExtractKeywordsWeighted(texts, 10)
	require.NotEmpty(t, entries)

	// Top entry is normalized to score 1.0 and counts stay raw.
	require.Equal(t, 1.0, entries[0].Score)
	byKeyword := map[string]int{}
	for _, k := range entries {
		byKeyword[k.Keyword] = k.Count
	}
	require.Equal(t, 2, byKeyword["루나"])
	require.Equal(t, 1, byKeyword["세라핀"])
}

func TestExtractKeywordsWeightedEmptyInput(t *testing.T) {
	e := NewKeywordExtractor()
	require.Empty(t, e.ExtractKeywordsWeighted(nil, 10))
}

func TestExtractKeywordsTopN(t *testing.T) {
	e := NewKeywordExtractor()
	entries := e.ExtractKeywords([]string{"하나 두울 세엣 네엣"}, 2)
	require.Len(t, entries, 2)
}

func TestExtractNgrams(t *testing.T) {
	e := NewKeywordExtractor()
	texts := []string{
		"루나 설정 공유",
		"루나 설정 질문글",
	}

	grams := e.ExtractNgrams(texts, 2, 10)
	require.NotEmpty(t, grams)
	require.Equal(t, "루나 설정", grams[0].Ngram)
	require.Equal(t, 2, grams[0].Count)
}

func TestExtractNgramsSkipsShortStreams(t *testing.T) {
	e := NewKeywordExtractor()
	require.Empty(t, e.ExtractNgrams([]string{"루나"}, 2, 10))
}
