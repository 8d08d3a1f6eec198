// =============================================================================
// arcalive.go - Arca.live board adapter
// =============================================================================
//
// Arca.live renders each post as one a.vrow anchor. Notice rows carry a
// "notice" class and are excluded before any field parsing.
//
// =============================================================================
package crawler

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"charmon/internal/model"
)

const arcaliveBase = "https://arca.live"

var reArcaPostID = regexp.MustCompile(`/(\d+)\?`)

func arcalivePageURL(listURL string, page int) string {
	sep := "?"
	if strings.Contains(listURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sp=%d", listURL, sep, page)
}

func parseArcaliveList(body []byte, sourceID string, now time.Time) ([]model.Post, parseSkips) {
	var skips parseSkips
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, skips
	}

	var posts []model.Post
	doc.Find("a.vrow").Each(func(_ int, row *goquery.Selection) {
		if row.HasClass("notice") {
			skips.notice++
			return
		}

		href, _ := row.Attr("href")
		m := reArcaPostID.FindStringSubmatch(href)
		if m == nil {
			skips.noID++
			return
		}
		postID := m[1]

		title := cleanText(row.Find(".title").First().Text())
		if title == "" {
			skips.noTitle++
			return
		}

		var published *time.Time
		if timeEl := row.Find("time").First(); timeEl.Length() > 0 {
			published = parseDate(cleanText(timeEl.Text()), now)
		}

		posts = append(posts, model.Post{
			PostID:         postID,
			SourceID:       sourceID,
			Title:          title,
			Author:         cleanText(row.Find(".user-info").First().Text()),
			PublishedAt:    published,
			CrawledAt:      now,
			ViewCount:      parseCount(row.Find(".vcol-hits, .col-rate").First().Text()),
			RecommendCount: parseCount(row.Find(".vcol-rate").First().Text()),
			CommentCount:   parseCount(row.Find(".vcol-comment").First().Text()),
			URL:            resolveURL(arcaliveBase, href),
		})
	})
	return posts, skips
}
