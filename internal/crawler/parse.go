// =============================================================================
// parse.go - shared field parsers
// =============================================================================
//
// Field-level extraction helpers used by every adapter. All of them degrade
// to a zero value instead of failing: a board changing one cell's markup
// should cost us that field, not the row and never the crawl.
//
// =============================================================================
package crawler

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Package-level compiled regex for performance (avoid recompiling in loops)
var (
	reDigits    = regexp.MustCompile(`\d+`)
	reMonthDay  = regexp.MustCompile(`^\d{2}[.-]\d{2}$`)
	reClockOnly = regexp.MustCompile(`^\d{2}:\d{2}$`)
	reZeroWidth = regexp.MustCompile("[\u200b\u200c\u200d\ufeff]")
)

// cleanText collapses whitespace and strips zero-width characters.
func cleanText(s string) string {
	s = reZeroWidth.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// parseCount extracts the first digit run from s, defaulting to 0.
// Handles cells like "댓글 [12]" and placeholder dashes alike.
func parseCount(s string) int {
	m := reDigits.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// parseViews interprets Korean magnitude suffixes before falling back to a
// plain integer parse: "3,884만" -> 38840000, "24.2만" -> 242000,
// "1.5천" -> 1500, "598,508" -> 598508. Unparsable text maps to 0.
func parseViews(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	switch {
	case strings.HasSuffix(s, "만"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "만"), 64)
		if err != nil {
			return 0
		}
		return int(f * 10000)
	case strings.HasSuffix(s, "천"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "천"), 64)
		if err != nil {
			return 0
		}
		return int(f * 1000)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// parseDate recognizes the date formats the boards actually render and
// returns nil when none match. Partial dates borrow the missing pieces
// from now: "01-15" is assumed this year, "12:30" is assumed today.
func parseDate(s string, now time.Time) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if strings.Contains(s, "-") && strings.Contains(s, ":") {
		if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, now.Location()); err == nil {
			return &t
		}
	}
	if t, err := time.ParseInLocation("2006.01.02", s, now.Location()); err == nil {
		return &t
	}
	if reMonthDay.MatchString(s) {
		normalized := strings.ReplaceAll(s, ".", "-")
		if t, err := time.ParseInLocation("2006-01-02", strconv.Itoa(now.Year())+"-"+normalized, now.Location()); err == nil {
			return &t
		}
	}
	if reClockOnly.MatchString(s) {
		if t, err := time.ParseInLocation("2006-01-02 15:04", now.Format("2006-01-02")+" "+s, now.Location()); err == nil {
			return &t
		}
	}
	return nil
}

// resolveURL joins a possibly relative href against the page's site root.
func resolveURL(base, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return base + href
}

// isDigits reports whether s is a non-empty run of ASCII digits. Board rows
// whose identity cell is not numeric are notices and surveys, not posts.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
