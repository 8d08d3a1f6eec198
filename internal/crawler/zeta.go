// =============================================================================
// zeta.go - Zeta ranking-service adapter
// =============================================================================
//
// Zeta's landing page renders each ranked character as a pair of anchors
// sharing one /ko/plots/{id}/profile href: one carries only the view count,
// the other carries the name and description spans. The parser pairs them by
// href and assigns ranks in document order.
//
// =============================================================================
package crawler

import (
	"bytes"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"charmon/internal/model"
)

const zetaBase = "https://zeta-ai.io"

var (
	reZetaProfile = regexp.MustCompile(`/ko/plots/([^/]+)/profile`)
	reViewsOnly   = regexp.MustCompile(`^[\d,\.]+[만천]?$`)
)

type zetaAdapter struct{}

func (zetaAdapter) Name() string       { return "zeta" }
func (zetaAdapter) Supported() bool    { return true }
func (zetaAdapter) RankingURL() string { return zetaBase + "/ko" }

func (zetaAdapter) ParseRankings(body []byte, limit int, crawledAt time.Time) []model.CharacterCard {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	// Collect every profile anchor in document order, grouped by href.
	type anchor struct {
		href string
		text string
		sel  *goquery.Selection
	}
	var anchors []anchor
	byHref := map[string][]anchor{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !reZetaProfile.MatchString(href) {
			return
		}
		a := anchor{href: href, text: cleanText(s.Text()), sel: s}
		anchors = append(anchors, a)
		byHref[href] = append(byHref[href], a)
	})

	seen := map[string]bool{}
	var cards []model.CharacterCard
	rank := 1

	for _, a := range anchors {
		if limit > 0 && rank > limit {
			break
		}
		// The view-count anchor is the pairing pivot; its text is numeric.
		if !reViewsOnly.MatchString(a.text) {
			continue
		}
		charID := reZetaProfile.FindStringSubmatch(a.href)[1]
		if seen[charID] {
			continue
		}

		// The companion anchor with the same href holds name + description.
		var nameSel *goquery.Selection
		for _, other := range byHref[a.href] {
			if other.text != a.text {
				nameSel = other.sel
				break
			}
		}
		if nameSel == nil {
			continue
		}
		spans := nameSel.Find("span")
		if spans.Length() < 2 {
			continue
		}
		name := cleanText(spans.Eq(0).Text())
		if name == "" {
			continue
		}
		description := cleanText(spans.Eq(1).Text())

		// Tags render as a single "#tag1#tag2" div near the name anchor.
		var tags []string
		nameSel.Parent().Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
			text := cleanText(div.Text())
			if !strings.HasPrefix(text, "#") {
				return true
			}
			for _, t := range strings.Split(text, "#") {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
			return false
		})

		cards = append(cards, model.CharacterCard{
			Service:      "zeta",
			CharacterID:  charID,
			Rank:         rank,
			Name:         name,
			Views:        parseViews(a.text),
			Tags:         tags,
			Description:  description,
			CharacterURL: resolveURL(zetaBase, a.href),
			CrawledAt:    crawledAt,
		})
		seen[charID] = true
		rank++
	}
	return cards
}
