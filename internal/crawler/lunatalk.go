// =============================================================================
// lunatalk.go - LunaTalk ranking-service adapter
// =============================================================================
//
// LunaTalk serves its daily ranking as static HTML: one div.cCont card per
// character with an explicit rank tag, so this is the most tabular of the
// ranking sources.
//
// =============================================================================
package crawler

import (
	"bytes"
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"

	"charmon/internal/model"
)

const lunatalkBase = "https://lunatalk.chat"

var reLunatalkID = regexp.MustCompile(`/character/detail/(\d+)`)

type lunatalkAdapter struct{}

func (lunatalkAdapter) Name() string    { return "lunatalk" }
func (lunatalkAdapter) Supported() bool { return true }
func (lunatalkAdapter) RankingURL() string {
	return lunatalkBase + "/character/rank?period=daily"
}

func (lunatalkAdapter) ParseRankings(body []byte, limit int, crawledAt time.Time) []model.CharacterCard {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var cards []model.CharacterCard
	doc.Find("div.cCont").EachWithBreak(func(i int, card *goquery.Selection) bool {
		if limit > 0 && len(cards) >= limit {
			return false
		}

		link := card.Find("a[href]").First()
		href, _ := link.Attr("href")
		m := reLunatalkID.FindStringSubmatch(href)
		if m == nil {
			return true
		}

		name := cleanText(card.Find("h5.lTit").First().Text())
		if name == "" {
			return true
		}

		rank := parseCount(card.Find("div.rankTag").First().Text())
		if rank == 0 {
			rank = i + 1
		}

		var tags []string
		card.Find("ul.lTag li").Each(func(_ int, li *goquery.Selection) {
			if t := cleanText(li.Text()); t != "" {
				tags = append(tags, t)
			}
		})

		thumbnail := ""
		if src, ok := card.Find("img").First().Attr("src"); ok {
			thumbnail = resolveURL(lunatalkBase, src)
		}

		cards = append(cards, model.CharacterCard{
			Service:      "lunatalk",
			CharacterID:  m[1],
			Rank:         rank,
			Name:         name,
			Views:        parseViews(card.Find("div.lChat span").First().Text()),
			Tags:         tags,
			Description:  cleanText(card.Find("div.lTxt p").First().Text()),
			ThumbnailURL: thumbnail,
			CharacterURL: resolveURL(lunatalkBase, href),
			CrawledAt:    crawledAt,
		})
		return true
	})
	return cards
}
