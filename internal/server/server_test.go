package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperifyio/copyfinder/internal/pipeline"
	"github.com/hyperifyio/copyfinder/internal/tweet"
)

type stubEngine struct {
	got  pipeline.Request
	resp pipeline.Response
}

func (s *stubEngine) Run(_ context.Context, req pipeline.Request) pipeline.Response {
	s.got = req
	return s.resp
}

func (s *stubEngine) Similarity() func(a, b string) int {
	return func(a, b string) int {
		if a == b {
			return 100
		}
		return 50
	}
}

func post(t *testing.T, srv *httptest.Server, body string, header map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/search", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSearch_RanksResults(t *testing.T) {
	q := "hello world this is long enough"
	eng := &stubEngine{resp: pipeline.Response{Status: http.StatusOK, Body: pipeline.Body{
		Results: []tweet.Record{
			{Author: tweet.Author{Username: "low"}, Content: "something else", Date: tweet.UnknownDate},
			{Author: tweet.Author{Username: "high"}, Content: q, Date: "Jan 1, 2024", Stats: tweet.Stats{Likes: 10}},
		},
		Meta: pipeline.Meta{Reason: pipeline.ReasonResultsFound},
	}}}
	srv := httptest.NewServer(New(eng, Options{}).Handler())
	defer srv.Close()

	resp := post(t, srv, `{"query":"`+q+`","excludeTweetId":"123","excludeUsername":"@me"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
	var out struct {
		Results []struct {
			User       tweet.Author `json:"user"`
			Similarity int          `json:"similarity"`
			Quality    float64      `json:"quality"`
		} `json:"results"`
		Meta      pipeline.Meta `json:"meta"`
		RequestID string        `json:"requestId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Results) != 2 || out.Results[0].User.Username != "high" || out.Results[0].Similarity != 100 {
		t.Fatalf("ranking: %+v", out.Results)
	}
	if out.Results[0].Quality <= out.Results[1].Quality {
		t.Fatalf("qualities not ordered: %+v", out.Results)
	}
	if out.Meta.Reason != pipeline.ReasonResultsFound || out.RequestID == "" {
		t.Fatalf("meta/request id: %+v %q", out.Meta, out.RequestID)
	}
	if eng.got.ExcludeTweetID != "123" || eng.got.ExcludeUsername != "@me" {
		t.Fatalf("request not forwarded: %+v", eng.got)
	}
}

func TestSearch_PassesThroughEngineStatus(t *testing.T) {
	eng := &stubEngine{resp: pipeline.Response{Status: http.StatusInternalServerError, Body: pipeline.Body{
		Meta:  pipeline.Meta{Reason: pipeline.ReasonAllSourcesFailed},
		Error: "all sources failed",
	}}}
	srv := httptest.NewServer(New(eng, Options{}).Handler())
	defer srv.Close()

	resp := post(t, srv, `{"query":"anything goes here"}`, map[string]string{"X-Request-ID": "abc-1"})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") != "abc-1" {
		t.Fatalf("request id not propagated: %q", resp.Header.Get("X-Request-ID"))
	}
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), `"results":[]`) || !strings.Contains(string(b), reasonJSON(pipeline.ReasonAllSourcesFailed)) {
		t.Fatalf("body = %s", b)
	}
}

func reasonJSON(r string) string { return `"reason":"` + r + `"` }

func TestSearch_BadInput(t *testing.T) {
	srv := httptest.NewServer(New(&stubEngine{}, Options{}).Handler())
	defer srv.Close()

	if resp := post(t, srv, `{not json`, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid json status = %d", resp.StatusCode)
	}
	if resp := post(t, srv, `{"query":"x","unknown":1}`, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d", resp.StatusCode)
	}
	resp := post(t, srv, `{"query":"some words here","excludeTweetId":"abc","queryInputType":"pdf"}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("validation status = %d", resp.StatusCode)
	}
	var out errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Fields["excludeTweetId"] != "numeric" || out.Fields["queryInputType"] != "oneof" {
		t.Fatalf("fields = %+v", out.Fields)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := httptest.NewServer(New(&stubEngine{}, Options{}).Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/health")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("health: %v %v", resp, err)
	}
	resp.Body.Close()

	resp, err = srv.Client().Get(srv.URL + "/metrics")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: %v %v", resp, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), "copyfinder_search_seconds") {
		t.Fatalf("metrics output missing collectors")
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := httptest.NewServer(New(&stubEngine{}, Options{AllowedOrigins: []string{"https://app.example"}}).Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/search", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Fatalf("cors header = %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}
