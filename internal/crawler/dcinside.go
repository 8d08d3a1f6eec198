// =============================================================================
// dcinside.go - DC Inside gallery adapter (regular + minor)
// =============================================================================
//
// DC Inside renders galleries as a table; one tr.ub-content per post. Minor
// galleries differ only in the listing URL, so both variants share the parser.
//
// =============================================================================
package crawler

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"charmon/internal/model"
)

const dcinsideBase = "https://gall.dcinside.com"

// dcinsidePageURL appends the page parameter to the configured listing URL.
func dcinsidePageURL(listURL string, page int) string {
	sep := "?"
	if strings.Contains(listURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", listURL, sep, page)
}

// parseDCInsideList extracts posts from one gallery listing page.
// Rows without a numeric id (notices, surveys) and rows without a title are
// skipped; every other missing field degrades to its zero value.
func parseDCInsideList(body []byte, sourceID string, now time.Time) ([]model.Post, parseSkips) {
	var skips parseSkips
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, skips
	}

	var posts []model.Post
	doc.Find("tr.ub-content").Each(func(_ int, row *goquery.Selection) {
		postID := cleanText(row.Find("td.gall_num").Text())
		if postID == "" {
			skips.noID++
			return
		}
		if !isDigits(postID) {
			skips.nonNumericID++
			return
		}

		titleLink := row.Find("td.gall_tit a").First()
		title := cleanText(titleLink.Text())
		if title == "" {
			skips.noTitle++
			return
		}

		href, _ := titleLink.Attr("href")
		url := resolveURL(dcinsideBase, href)

		author := cleanText(row.Find("td.gall_writer span.nickname, td.gall_writer em").First().Text())

		var published *time.Time
		dateCell := row.Find("td.gall_date")
		if dateCell.Length() > 0 {
			dateStr, ok := dateCell.Attr("title")
			if !ok || dateStr == "" {
				dateStr = dateCell.Text()
			}
			published = parseDate(cleanText(dateStr), now)
		}

		posts = append(posts, model.Post{
			PostID:         postID,
			SourceID:       sourceID,
			Title:          title,
			Author:         author,
			PublishedAt:    published,
			CrawledAt:      now,
			ViewCount:      parseCount(row.Find("td.gall_count").Text()),
			RecommendCount: parseCount(row.Find("td.gall_recommend").Text()),
			CommentCount:   parseCount(row.Find("td.gall_tit span.reply_num").Text()),
			URL:            url,
		})
	})
	return posts, skips
}
