package search

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/copyfinder/internal/extract"
	"github.com/hyperifyio/copyfinder/internal/tweet"
)

// Nitter searches a set of Nitter mirrors by scraping the tweets timeline of
// the /search page.
type Nitter struct {
	// Mirrors are base URLs such as https://nitter.net.
	Mirrors []string
	HTTP    Getter
}

func (n *Nitter) Name() string { return "nitter" }

func (n *Nitter) Instances() []string {
	out := make([]string, 0, len(n.Mirrors))
	for _, m := range n.Mirrors {
		if m = strings.TrimRight(strings.TrimSpace(m), "/"); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// Search tries each mirror in order until one answers.
func (n *Nitter) Search(ctx context.Context, query string, opt Options) (Response, error) {
	instances := n.Instances()
	if len(instances) == 0 {
		return Response{}, ErrNoInstances
	}
	var lastErr error
	for _, inst := range instances {
		resp, err := n.SearchInstance(ctx, inst, query, opt)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return Response{}, lastErr
}

func (n *Nitter) SearchInstance(ctx context.Context, instance, query string, opt Options) (Response, error) {
	if n.HTTP == nil {
		return Response{}, fmt.Errorf("nitter: missing http client")
	}
	base, err := url.Parse(strings.TrimRight(instance, "/"))
	if err != nil {
		return Response{}, fmt.Errorf("nitter: bad instance %q: %w", instance, err)
	}
	u := *base
	u.Path = strings.TrimRight(u.Path, "/") + "/search"
	q := url.Values{}
	q.Set("f", "tweets")
	q.Set("q", query)
	u.RawQuery = q.Encode()

	ctx, cancel := withTimeout(ctx, opt)
	defer cancel()
	body, _, err := n.HTTP.Get(ctx, u.String())
	if err != nil {
		return Response{}, fmt.Errorf("nitter %s: %w", base.Host, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("nitter %s: parse: %w", base.Host, err)
	}
	if doc.Find(".timeline").Length() == 0 && doc.Find(".timeline-item").Length() == 0 {
		return Response{}, fmt.Errorf("nitter %s: unexpected page layout", base.Host)
	}
	var out []tweet.Record
	doc.Find(".timeline .timeline-item").Each(func(_ int, s *goquery.Selection) {
		if s.HasClass("show-more") || s.HasClass("unavailable") {
			return
		}
		if r, ok := parseNitterItem(s, base); ok {
			out = append(out, r)
		}
	})
	return Response{Results: out, Instance: base.Host}, nil
}

// parseNitterItem reads one tweet block. It is shared by the timeline and the
// status page, whose main tweet uses the same markup.
func parseNitterItem(s *goquery.Selection, base *url.URL) (tweet.Record, bool) {
	username := tweet.NormalizeUsername(strings.TrimSpace(s.Find(".tweet-header .username, .username").First().Text()))
	href, _ := s.Find("a.tweet-link").First().Attr("href")
	if href == "" {
		href, _ = s.Find(".tweet-date a").First().Attr("href")
	}
	id := tweet.IDFromURL(href)
	content := ""
	if c := s.Find(".tweet-content").First(); len(c.Nodes) > 0 {
		content = extract.NodeText(c.Nodes[0])
	}
	if id == "" && (username == "" || content == "") {
		return tweet.Record{}, false
	}
	if username == "" {
		username = usernameFromPath(href)
	}

	r := tweet.Record{
		Author: tweet.Author{
			Fullname: strings.TrimSpace(s.Find(".fullname").First().Text()),
			Username: username,
		},
		Content: content,
		Date:    tweet.UnknownDate,
		Source:  "nitter",
	}
	if id != "" {
		r.URL = tweet.StatusURL(username, id)
	}
	if src, ok := s.Find("img.avatar").First().Attr("src"); ok && src != "" {
		r.Author.Avatar = absolute(base, src)
	}
	if d := s.Find(".tweet-date a").First(); d.Length() > 0 {
		if title, ok := d.Attr("title"); ok && strings.TrimSpace(title) != "" {
			r.Date = strings.TrimSpace(title)
		}
		r.RelativeDate = strings.TrimSpace(d.Text())
	}
	s.Find(".tweet-stats .tweet-stat").Each(func(_ int, st *goquery.Selection) {
		v := parseCount(st.Text())
		switch {
		case st.Find(".icon-comment").Length() > 0:
			r.Stats.Replies = v
		case st.Find(".icon-retweet").Length() > 0:
			r.Stats.Retweets = v
		case st.Find(".icon-quote").Length() > 0:
			r.Stats.Quotes = v
		case st.Find(".icon-heart").Length() > 0:
			r.Stats.Likes = v
		case st.Find(".icon-views, .icon-play").Length() > 0:
			r.Stats.Views = v
		}
	})
	r.IsRetweet = s.Find(".retweet-header").Length() > 0
	r.IsQuote = s.Find(".quote").Length() > 0
	return r, true
}

func usernameFromPath(p string) string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	if len(segs) >= 3 && segs[1] == "status" {
		return tweet.NormalizeUsername(segs[0])
	}
	return ""
}

func absolute(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil || base == nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
