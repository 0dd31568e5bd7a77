package search

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NitterDetail reads a single status page from a Nitter mirror. It is the
// slow but thorough detail lookup.
type NitterDetail struct {
	Mirrors []string
	HTTP    Getter
}

func (n *NitterDetail) Name() string { return "nitter-detail" }

func (n *NitterDetail) Lookup(ctx context.Context, id string, opt Options) (Detail, error) {
	if strings.TrimSpace(id) == "" {
		return Detail{}, fmt.Errorf("nitter-detail: empty id")
	}
	if n.HTTP == nil {
		return Detail{}, fmt.Errorf("nitter-detail: missing http client")
	}
	ctx, cancel := withTimeout(ctx, opt)
	defer cancel()
	var lastErr error = ErrNoInstances
	for _, m := range n.Mirrors {
		m = strings.TrimRight(strings.TrimSpace(m), "/")
		if m == "" {
			continue
		}
		d, err := n.lookupOn(ctx, m, id)
		if err == nil {
			return d, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return Detail{}, lastErr
}

func (n *NitterDetail) lookupOn(ctx context.Context, mirror, id string) (Detail, error) {
	base, err := url.Parse(mirror)
	if err != nil {
		return Detail{}, fmt.Errorf("nitter-detail: bad instance %q: %w", mirror, err)
	}
	body, _, err := n.HTTP.Get(ctx, mirror+"/i/status/"+url.PathEscape(id))
	if err != nil {
		return Detail{}, fmt.Errorf("nitter-detail %s: %w", base.Host, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Detail{}, fmt.Errorf("nitter-detail %s: parse: %w", base.Host, err)
	}
	main := doc.Find(".main-tweet .timeline-item, .main-tweet").First()
	if main.Length() == 0 {
		return Detail{}, fmt.Errorf("nitter-detail %s: status %s not found", base.Host, id)
	}
	r, ok := parseNitterItem(main, base)
	if !ok {
		return Detail{}, fmt.Errorf("nitter-detail %s: status %s unreadable", base.Host, id)
	}
	return Detail{Author: r.Author, Content: r.Content, Date: r.Date, Stats: r.Stats}, nil
}
