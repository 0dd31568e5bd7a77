package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// DefaultGoogleCSEURL is the Custom Search JSON API endpoint.
const DefaultGoogleCSEURL = "https://www.googleapis.com/customsearch/v1"

// GoogleCSE queries a Programmable Search Engine.
type GoogleCSE struct {
	BaseURL string
	APIKey  string
	CX      string
	HTTP    Getter
}

func (g *GoogleCSE) Name() string { return "google" }

func (g *GoogleCSE) Search(ctx context.Context, query string, opt Options) (Response, error) {
	if g.APIKey == "" || g.CX == "" {
		return Response{}, fmt.Errorf("google: missing api key or cx")
	}
	if g.HTTP == nil {
		return Response{}, fmt.Errorf("google: missing http client")
	}
	base := g.BaseURL
	if base == "" {
		base = DefaultGoogleCSEURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return Response{}, err
	}
	q := u.Query()
	q.Set("key", g.APIKey)
	q.Set("cx", g.CX)
	q.Set("q", scopedQuery(query))
	q.Set("num", "10")
	u.RawQuery = q.Encode()

	ctx, cancel := withTimeout(ctx, opt)
	defer cancel()
	body, _, err := g.HTTP.Get(ctx, u.String())
	if err != nil {
		return Response{}, fmt.Errorf("google: %w", err)
	}
	var gr struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &gr); err != nil {
		return Response{}, fmt.Errorf("google: decode: %w", err)
	}
	var resp Response
	for _, it := range gr.Items {
		if rec, ok := hitToRecord(it.Link, it.Title, it.Snippet, g.Name()); ok {
			resp.Results = append(resp.Results, rec)
		}
	}
	return resp, nil
}
