package search

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultDuckDuckGoURL is the JavaScript-free results endpoint.
const DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the HTML results page.
type DuckDuckGo struct {
	BaseURL string
	HTTP    Getter
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Search(ctx context.Context, query string, opt Options) (Response, error) {
	if d.HTTP == nil {
		return Response{}, fmt.Errorf("duckduckgo: missing http client")
	}
	base := d.BaseURL
	if base == "" {
		base = DefaultDuckDuckGoURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return Response{}, err
	}
	q := u.Query()
	q.Set("q", scopedQuery(query))
	u.RawQuery = q.Encode()

	ctx, cancel := withTimeout(ctx, opt)
	defer cancel()
	body, _, err := d.HTTP.Get(ctx, u.String())
	if err != nil {
		return Response{}, fmt.Errorf("duckduckgo: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("duckduckgo: parse: %w", err)
	}
	var resp Response
	doc.Find(".result").Each(func(_ int, s *goquery.Selection) {
		a := s.Find("a.result__a").First()
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		title, _ := a.Html()
		snippet, _ := s.Find(".result__snippet").First().Html()
		if rec, ok := hitToRecord(unwrapRedirect(href), title, snippet, d.Name()); ok {
			resp.Results = append(resp.Results, rec)
		}
	})
	return resp, nil
}

// unwrapRedirect resolves DuckDuckGo's //duckduckgo.com/l/?uddg=<target> links.
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return href
}
