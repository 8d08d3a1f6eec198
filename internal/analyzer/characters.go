// =============================================================================
// characters.go - character name extraction and ranking
// =============================================================================
//
// Candidate names come from an ordered list of independent extraction rules
// (bracket, quote, double-angle, bot-suffix); the union passes through one
// shared filter stage. Ranking case-folds candidates and picks the most
// frequent original spelling as the canonical display form.
//
// =============================================================================
package analyzer

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"charmon/internal/model"
)

// knownPlatforms are chat services and models, not characters.
var knownPlatforms = map[string]struct{}{
	"character.ai": {}, "캐릭터ai": {}, "캐릭터 ai": {}, "c.ai": {}, "시에이아이": {},
	"chai": {}, "차이": {}, "replika": {}, "레플리카": {},
	"janitor ai": {}, "제니터": {}, "jailbreak": {},
	"spicychat": {}, "스파이시챗": {},
	"crushon": {}, "크러션": {},
	"talkie": {}, "토키": {}, "botify": {}, "보티파이": {},
	"poe": {}, "포우": {}, "클로드": {}, "claude": {}, "gpt": {}, "chatgpt": {},
}

// nonCharacterWords are board vocabulary that extraction rules keep catching.
var nonCharacterWords = map[string]struct{}{
	"캐릭터": {}, "챗봇": {}, "봇": {}, "ai": {}, "채팅": {}, "대화": {}, "설정": {}, "프롬프트": {},
	"페르소나": {}, "시나리오": {}, "설명": {}, "소개": {}, "공략": {}, "공유": {},
	"추천": {}, "질문": {}, "답변": {}, "리뷰": {}, "후기": {}, "버그": {}, "오류": {},
	"업데이트": {}, "패치": {}, "뉴비": {}, "초보": {}, "고수": {}, "도움": {},
	"사진": {}, "이미지": {}, "그림": {}, "일러스트": {}, "스크린샷": {},
}

// Each rule extracts candidates independently; results are unioned before
// the shared filter stage.
var (
	reBracketName = regexp.MustCompile(`\[([^\]]{2,30})\]`)
	reQuoteName   = regexp.MustCompile(`["']([^"']{2,30})["']`)
	reAngleName   = regexp.MustCompile(`《([^》]{2,30})》`)
	reBotSuffix   = regexp.MustCompile(`(?i)([가-힣a-zA-Z0-9]{2,15})(?:봇|bot)`)
	reURLOrHandle = regexp.MustCompile(`^(https?://|www\.|@)`)
	reAllDigits   = regexp.MustCompile(`^\d+$`)
)

var nameRules = []func(text string) []string{
	func(text string) []string { return captureAll(reBracketName, text) },
	func(text string) []string { return captureAll(reQuoteName, text) },
	func(text string) []string { return captureAll(reAngleName, text) },
	func(text string) []string { return captureAll(reBotSuffix, text) },
}

func captureAll(re *regexp.Regexp, text string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// ExtractNames returns the filtered character-name candidates found in text.
// Duplicates survive deliberately; mention counting happens in ranking.
func ExtractNames(text string) []string {
	var candidates []string
	for _, rule := range nameRules {
		candidates = append(candidates, rule(text)...)
	}

	var names []string
	for _, name := range candidates {
		name = strings.TrimSpace(name)
		if validCharacterName(name) {
			names = append(names, name)
		}
	}
	return names
}

func validCharacterName(name string) bool {
	runes := utf8.RuneCountInString(name)
	if runes < 2 || runes > 30 {
		return false
	}
	lower := strings.ToLower(name)
	if _, noise := nonCharacterWords[lower]; noise {
		return false
	}
	if _, platform := knownPlatforms[lower]; platform {
		return false
	}
	if reAllDigits.MatchString(name) {
		return false
	}
	if reURLOrHandle.MatchString(lower) {
		return false
	}
	return true
}

// RankCharacters counts mentions across texts, case-folding variants into one
// entry. The displayed name is the most frequent original spelling; ties keep
// the first-seen form. Ranking ties likewise keep first-seen order.
func RankCharacters(texts []string, topN int) []model.CharacterRanking {
	mentions := map[string]int{}
	var keyOrder []string
	// per key: surface spellings in first-seen order with their counts
	surfaceCounts := map[string]map[string]int{}
	surfaceOrder := map[string][]string{}

	for _, text := range texts {
		for _, name := range ExtractNames(text) {
			key := strings.ToLower(name)
			if _, seen := mentions[key]; !seen {
				keyOrder = append(keyOrder, key)
				surfaceCounts[key] = map[string]int{}
			}
			mentions[key]++
			if _, seen := surfaceCounts[key][name]; !seen {
				surfaceOrder[key] = append(surfaceOrder[key], name)
			}
			surfaceCounts[key][name]++
		}
	}

	sort.SliceStable(keyOrder, func(i, j int) bool {
		return mentions[keyOrder[i]] > mentions[keyOrder[j]]
	})
	if topN > 0 && len(keyOrder) > topN {
		keyOrder = keyOrder[:topN]
	}

	rankings := make([]model.CharacterRanking, 0, len(keyOrder))
	for i, key := range keyOrder {
		rankings = append(rankings, model.CharacterRanking{
			Name:     canonicalSurface(surfaceCounts[key], surfaceOrder[key]),
			Mentions: mentions[key],
			Rank:     i + 1,
		})
	}
	return rankings
}

// canonicalSurface picks the most frequent original spelling; first-seen
// order breaks ties.
func canonicalSurface(counts map[string]int, order []string) string {
	best := ""
	bestCount := -1
	for _, form := range order {
		if counts[form] > bestCount {
			best = form
			bestCount = counts[form]
		}
	}
	return best
}

// AnalyzeCharacterTrends compares mention volume between two periods for the
// union of ranked characters, classifying each as up/down/stable. Output is
// sorted by current volume, truncated to topN.
func AnalyzeCharacterTrends(currentTexts, previousTexts []string, topN int) []model.TrendEntry {
	current := RankCharacters(currentTexts, topN*2)
	previous := RankCharacters(previousTexts, topN*2)

	currentByKey := map[string]model.CharacterRanking{}
	previousByKey := map[string]model.CharacterRanking{}
	var keys []string
	for _, r := range current {
		key := strings.ToLower(r.Name)
		currentByKey[key] = r
		keys = append(keys, key)
	}
	for _, r := range previous {
		key := strings.ToLower(r.Name)
		if _, dup := currentByKey[key]; !dup {
			keys = append(keys, key)
		}
		previousByKey[key] = r
	}

	trends := make([]model.TrendEntry, 0, len(keys))
	for _, key := range keys {
		cur := currentByKey[key].Mentions
		prev := previousByKey[key].Mentions
		change := changePercent(cur, prev)

		name := currentByKey[key].Name
		if name == "" {
			name = previousByKey[key].Name
		}
		trends = append(trends, model.TrendEntry{
			Name:     name,
			Current:  cur,
			Previous: prev,
			Change:   change,
			Trend:    classifyChange(change),
		})
	}

	sort.SliceStable(trends, func(i, j int) bool {
		return trends[i].Current > trends[j].Current
	})
	if topN > 0 && len(trends) > topN {
		trends = trends[:topN]
	}
	return trends
}
