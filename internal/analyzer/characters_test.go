package analyzer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestExtractNamesRules(t *testing.T) {
	require.Equal(t, []string{"루나"}, ExtractNames("[루나] 설정 공유한다"))
	require.Equal(t, []string{"세라핀"}, ExtractNames(`"세라핀" 써본 사람?`))
	require.Equal(t, []string{"하연"}, ExtractNames("《하연》 후기"))
	require.Equal(t, []string{"집사"}, ExtractNames("집사봇 말투 왜이럼"))
}

func TestExtractNamesUnionsIndependentRules(t *testing.T) {
	names := ExtractNames(`[루나] 그리고 "세라핀" 비교`)
	require.Contains(t, names, "루나")
	require.Contains(t, names, "세라핀")
}

func TestExtractNamesFiltersNoise(t *testing.T) {
	// Board vocabulary, platform names, pure numbers, and URLs are rejected.
	require.Empty(t, ExtractNames("[추천] 글"))
	require.Empty(t, ExtractNames(`"claude" 얘기`))
	require.Empty(t, ExtractNames("[12345] 정리"))
	require.Empty(t, ExtractNames(`"https://example.com/x" 링크`))
	require.Empty(t, ExtractNames(`"@someone" 호출`))
}

func TestExtractNamesLengthBounds(t *testing.T) {
	long := strings.Repeat("가", 31)
	texts := []string{
		"[루나] 공유", `"세라핀" 후기`, "《하연》", "집사봇",
		"[" + long + "]", `"a"`,
	}
	for _, text := range texts {
		for _, name := range ExtractNames(text) {
			n := utf8.RuneCountInString(name)
			require.GreaterOrEqual(t, n, 2, "name %q from %q", name, text)
			require.LessOrEqual(t, n, 30, "name %q from %q", name, text)
			_, noise := nonCharacterWords[strings.ToLower(name)]
			require.False(t, noise, "noise word %q escaped the filter", name)
			_, platform := knownPlatforms[strings.ToLower(name)]
			require.False(t, platform, "platform %q escaped the filter", name)
		}
	}
}

func TestRankCharactersCaseFolds(t *testing.T) {
	texts := []string{"[Luna] 설정", "[luna] 후기", "[LUNA] 프롬프트"}

	rankings := RankCharacters(texts, 10)
	require.Len(t, rankings, 1)
	require.Equal(t, 3, rankings[0].Mentions)
	require.Equal(t, 1, rankings[0].Rank)
	// Equal surface counts: the first-seen spelling wins.
	require.Equal(t, "Luna", rankings[0].Name)
}

func TestRankCharactersCanonicalFormIsMostFrequent(t *testing.T) {
	texts := []string{"[luna] 설정", "[Luna] 후기", "[Luna] 프롬프트"}

	rankings := RankCharacters(texts, 10)
	require.Len(t, rankings, 1)
	require.Equal(t, "Luna", rankings[0].Name)
	require.Equal(t, 3, rankings[0].Mentions)
}

func TestRankCharactersOrderAndTies(t *testing.T) {
	texts := []string{
		"[세라핀] 1", "[세라핀] 2",
		"[루나] 1", "[루나] 2",
		"[하연] 1",
	}

	rankings := RankCharacters(texts, 10)
	require.Len(t, rankings, 3)
	// 세라핀 and 루나 tie on 2 mentions; 세라핀 was seen first.
	require.Equal(t, "세라핀", rankings[0].Name)
	require.Equal(t, "루나", rankings[1].Name)
	require.Equal(t, "하연", rankings[2].Name)
	require.Equal(t, []int{1, 2, 3}, []int{rankings[0].Rank, rankings[1].Rank, rankings[2].Rank})
}

func TestAnalyzeCharacterTrends(t *testing.T) {
	current := []string{"[루나] a", "[루나] b", "[루나] c", "[세라핀] a", "[하연] a"}
	previous := []string{"[루나] x", "[세라핀] x", "[세라핀] y", "[지원] x"}

	trends := AnalyzeCharacterTrends(current, previous, 10)
	byName := map[string]struct {
		current  int
		previous int
		change   float64
		trend    string
	}{}
	for _, tr := range trends {
		byName[strings.ToLower(tr.Name)] = struct {
			current  int
			previous int
			change   float64
			trend    string
		}{tr.Current, tr.Previous, tr.Change, tr.Trend}
	}

	require.Equal(t, 200.0, byName["루나"].change)
	require.Equal(t, "up", byName["루나"].trend)
	require.Equal(t, -50.0, byName["세라핀"].change)
	require.Equal(t, "down", byName["세라핀"].trend)
	// new entrant is fixed at +100%
	require.Equal(t, 100.0, byName["하연"].change)
	// disappeared character
	require.Equal(t, -100.0, byName["지원"].change)

	// Sorted by current volume descending.
	require.Equal(t, "루나", trends[0].Name)
}
