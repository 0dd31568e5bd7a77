package tweet

import (
	"regexp"
	"strings"
)

// UnknownDate is the placeholder some upstreams emit when a post date is not
// available.
const UnknownDate = "Unknown"

// Author identifies the account that posted a tweet.
type Author struct {
	Fullname string `json:"fullname"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Stats holds engagement counters. Missing values are zero.
type Stats struct {
	Replies   int `json:"replies"`
	Retweets  int `json:"retweets"`
	Quotes    int `json:"quotes"`
	Likes     int `json:"likes"`
	Views     int `json:"views,omitempty"`
	Bookmarks int `json:"bookmarks,omitempty"`
}

// Any reports whether at least one counter is nonzero.
func (s Stats) Any() bool {
	return s.Replies != 0 || s.Retweets != 0 || s.Quotes != 0 || s.Likes != 0 || s.Views != 0 || s.Bookmarks != 0
}

// Engagement is the interaction total used for ranking.
func (s Stats) Engagement() int {
	return s.Replies + s.Retweets + s.Likes
}

// Record is a single tweet as returned by a source client. After
// canonicalization the same type represents the one record kept per tweet.
type Record struct {
	Author       Author `json:"user"`
	Content      string `json:"content"`
	URL          string `json:"url"`
	Date         string `json:"date"`
	RelativeDate string `json:"relativeDate,omitempty"`
	Stats        Stats  `json:"stats"`
	IsRetweet    bool   `json:"isRetweet,omitempty"`
	IsQuote      bool   `json:"isQuote,omitempty"`
	Source       string `json:"source"`
	MatchedBy    string `json:"matchedBy,omitempty"`
}

// HasDate reports whether the record carries a real (non-placeholder) date.
func (r Record) HasDate() bool {
	return !IsPlaceholderDate(r.Date)
}

// ID returns the tweet id parsed from the record URL, or "".
func (r Record) ID() string {
	return IDFromURL(r.URL)
}

// IsPlaceholderDate reports whether d is empty or the "Unknown" sentinel.
func IsPlaceholderDate(d string) bool {
	d = strings.TrimSpace(d)
	return d == "" || strings.EqualFold(d, UnknownDate)
}

var statusRe = regexp.MustCompile(`/status(?:es)?/(\d+)`)

// IDFromURL extracts the numeric id from a ".../status/<id>" URL.
func IDFromURL(u string) string {
	m := statusRe.FindStringSubmatch(u)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// NormalizeUsername strips a leading "@" and lower-cases.
func NormalizeUsername(u string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(u), "@"))
}

// StatusURL builds the canonical x.com URL for a tweet.
func StatusURL(username, id string) string {
	return "https://x.com/" + strings.TrimPrefix(username, "@") + "/status/" + id
}
