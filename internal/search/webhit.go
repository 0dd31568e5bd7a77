package search

import (
	"net/url"
	"strings"

	"github.com/hyperifyio/copyfinder/internal/extract"
	"github.com/hyperifyio/copyfinder/internal/tweet"
)

// siteScope restricts a web search engine to tweet URLs.
const siteScope = "site:x.com"

func scopedQuery(q string) string {
	return strings.TrimSpace(q) + " " + siteScope
}

// hitToRecord converts a web search hit pointing at a tweet into a record.
// Hits that are not status URLs are rejected.
func hitToRecord(link, title, snippet, source string) (tweet.Record, bool) {
	id := tweet.IDFromURL(link)
	if id == "" {
		return tweet.Record{}, false
	}
	u, err := url.Parse(link)
	if err != nil {
		return tweet.Record{}, false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "x.com" && host != "twitter.com" && host != "mobile.twitter.com" {
		return tweet.Record{}, false
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	username := ""
	if len(segs) >= 3 && segs[0] != "i" {
		username = segs[0]
	}
	content := extract.Text(snippet)
	if content == "" {
		content = extract.Text(title)
	}
	r := tweet.Record{
		Author:  tweet.Author{Username: username, Fullname: fullnameFromTitle(title)},
		Content: content,
		URL:     link,
		Date:    tweet.UnknownDate,
		Source:  source,
	}
	if username != "" {
		r.URL = tweet.StatusURL(username, id)
	}
	return r, true
}

// fullnameFromTitle reads "Name on X: ..." style titles.
func fullnameFromTitle(title string) string {
	t := extract.Text(title)
	for _, sep := range []string{" on X:", " on Twitter:", " (@"} {
		if i := strings.Index(t, sep); i > 0 {
			return strings.TrimSpace(t[:i])
		}
	}
	return ""
}
