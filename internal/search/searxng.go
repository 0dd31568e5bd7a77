package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// SearxNG queries a SearxNG instance's JSON API scoped to tweet URLs.
type SearxNG struct {
	BaseURL string
	APIKey  string // optional
	HTTP    Getter
}

func (s *SearxNG) Name() string { return "searxng" }

func (s *SearxNG) Search(ctx context.Context, query string, opt Options) (Response, error) {
	if s.BaseURL == "" {
		return Response{}, fmt.Errorf("missing searxng base url")
	}
	if s.HTTP == nil {
		return Response{}, fmt.Errorf("searxng: missing http client")
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return Response{}, err
	}
	if !strings.HasSuffix(u.Path, "/search") {
		u.Path = strings.TrimRight(u.Path, "/") + "/search"
	}
	q := u.Query()
	q.Set("q", scopedQuery(query))
	q.Set("format", "json")
	q.Set("language", "auto")
	q.Set("safesearch", "0")
	q.Set("categories", "general")
	if s.APIKey != "" {
		q.Set("apikey", s.APIKey)
	}
	u.RawQuery = q.Encode()

	ctx, cancel := withTimeout(ctx, opt)
	defer cancel()
	body, _, err := s.HTTP.Get(ctx, u.String())
	if err != nil {
		return Response{}, fmt.Errorf("searxng: %w", err)
	}
	var sr searxResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return Response{}, fmt.Errorf("searxng: decode: %w", err)
	}
	var resp Response
	for _, r := range sr.Results {
		if rec, ok := hitToRecord(strings.TrimSpace(r.URL), r.Title, r.Content, s.Name()); ok {
			resp.Results = append(resp.Results, rec)
		}
	}
	return resp, nil
}

type searxResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}
