package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hyperifyio/copyfinder/internal/fetch"
)

const nitterTimeline = `<!doctype html><html><body><div class="timeline">
<div class="timeline-item">
  <a class="tweet-link" href="/alice/status/111#m"></a>
  <div class="tweet-body">
    <div class="tweet-header">
      <a class="tweet-avatar" href="/alice"><img class="avatar round" src="/pic/profile_images/a.jpg"></a>
      <div class="tweet-name-row">
        <div class="fullname-and-username"><a class="fullname" href="/alice">Alice A</a><a class="username" href="/alice">@alice</a></div>
        <span class="tweet-date"><a href="/alice/status/111#m" title="Jan 2, 2024 · 3:04 PM UTC">2h</a></span>
      </div>
    </div>
    <div class="tweet-content media-body">hello world this is <a href="/search?q=%23long">#long</a> enough</div>
    <div class="tweet-stats">
      <span class="tweet-stat"><div class="icon-container"><span class="icon-comment"></span> 1,234</div></span>
      <span class="tweet-stat"><div class="icon-container"><span class="icon-retweet"></span> 5</div></span>
      <span class="tweet-stat"><div class="icon-container"><span class="icon-quote"></span></div></span>
      <span class="tweet-stat"><div class="icon-container"><span class="icon-heart"></span> 1.2K</div></span>
    </div>
  </div>
</div>
<div class="timeline-item">
  <a class="tweet-link" href="/Bob/status/222#m"></a>
  <div class="retweet-header"><span><div class="icon-container"><span class="icon-retweet"></span> carol retweeted</div></span></div>
  <div class="tweet-body">
    <div class="tweet-header"><a class="fullname" href="/Bob">Bob</a><a class="username" href="/Bob">@Bob</a></div>
    <div class="tweet-content media-body">copied text here</div>
  </div>
</div>
<div class="show-more"><a href="?cursor=abc">Load more</a></div>
</div></body></html>`

func nitterServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNitter_SearchInstance_ParsesTimeline(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(nitterTimeline))
	}))
	defer srv.Close()

	n := &Nitter{Mirrors: []string{srv.URL}, HTTP: &fetch.Client{MaxAttempts: 1}}
	resp, err := n.SearchInstance(context.Background(), srv.URL, `"hello world"`, Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if gotQuery.Get("f") != "tweets" || gotQuery.Get("q") != `"hello world"` {
		t.Fatalf("unexpected query params: %v", gotQuery)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	a := resp.Results[0]
	if a.Author.Username != "alice" || a.Author.Fullname != "Alice A" {
		t.Fatalf("author: %+v", a.Author)
	}
	if a.URL != "https://x.com/alice/status/111" {
		t.Fatalf("url: %s", a.URL)
	}
	if a.Author.Avatar != srv.URL+"/pic/profile_images/a.jpg" {
		t.Fatalf("avatar: %s", a.Author.Avatar)
	}
	if a.Content != "hello world this is #long enough" {
		t.Fatalf("content: %q", a.Content)
	}
	if !strings.HasPrefix(a.Date, "Jan 2, 2024") || a.RelativeDate != "2h" {
		t.Fatalf("date: %q %q", a.Date, a.RelativeDate)
	}
	if a.Stats.Replies != 1234 || a.Stats.Retweets != 5 || a.Stats.Quotes != 0 || a.Stats.Likes != 1200 {
		t.Fatalf("stats: %+v", a.Stats)
	}
	if a.Source != "nitter" || a.IsRetweet {
		t.Fatalf("unexpected flags: %+v", a)
	}
	b := resp.Results[1]
	if b.Author.Username != "bob" || !b.IsRetweet || b.Date != "Unknown" {
		t.Fatalf("second record: %+v", b)
	}
	if resp.Instance == "" {
		t.Fatal("instance not reported")
	}
}

func TestNitter_EmptyTimelineIsSuccess(t *testing.T) {
	srv := nitterServer(t, `<html><body><div class="timeline"><div class="timeline-none">No items found</div></div></body></html>`, 0)
	n := &Nitter{Mirrors: []string{srv.URL}, HTTP: &fetch.Client{MaxAttempts: 1}}
	resp, err := n.Search(context.Background(), "nothing here at all", Options{})
	if err != nil || len(resp.Results) != 0 {
		t.Fatalf("expected empty success, got %d results err=%v", len(resp.Results), err)
	}
}

func TestNitter_UnexpectedLayoutIsError(t *testing.T) {
	srv := nitterServer(t, `<html><body><p>maintenance</p></body></html>`, 0)
	n := &Nitter{Mirrors: []string{srv.URL}, HTTP: &fetch.Client{MaxAttempts: 1}}
	if _, err := n.Search(context.Background(), "q q q", Options{}); err == nil {
		t.Fatal("expected layout error")
	}
}

func TestNitter_SearchFallsThroughMirrors(t *testing.T) {
	bad := nitterServer(t, "", http.StatusTooManyRequests)
	good := nitterServer(t, nitterTimeline, 0)
	n := &Nitter{Mirrors: []string{bad.URL, good.URL + "/"}, HTTP: &fetch.Client{MaxAttempts: 1}}
	resp, err := n.Search(context.Background(), "hello", Options{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	u, _ := url.Parse(good.URL)
	if resp.Instance != u.Host {
		t.Fatalf("instance = %q want %q", resp.Instance, u.Host)
	}
}

func TestNitter_NoInstances(t *testing.T) {
	n := &Nitter{}
	if _, err := n.Search(context.Background(), "x", Options{}); err != ErrNoInstances {
		t.Fatalf("expected ErrNoInstances, got %v", err)
	}
}

func TestNitterDetail_Lookup(t *testing.T) {
	page := `<html><body><div class="main-tweet"><div class="timeline-item">
  <div class="tweet-header"><a class="fullname">Alice A</a><a class="username">@alice</a>
  <span class="tweet-date"><a href="/alice/status/111#m" title="Jan 2, 2024 · 3:04 PM UTC">2h</a></span></div>
  <div class="tweet-content">original words</div>
  <div class="tweet-stats"><span class="tweet-stat"><span class="icon-heart"></span> 42</span></div>
</div></div></body></html>`
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	d := &NitterDetail{Mirrors: []string{srv.URL}, HTTP: &fetch.Client{MaxAttempts: 1}}
	got, err := d.Lookup(context.Background(), "111", Options{})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if path != "/i/status/111" {
		t.Fatalf("path = %s", path)
	}
	if got.Stats.Likes != 42 || got.Author.Username != "alice" || !strings.HasPrefix(got.Date, "Jan 2") {
		t.Fatalf("detail: %+v", got)
	}
}

func TestParseCount(t *testing.T) {
	cases := map[string]int{"": 0, "7": 7, "1,234": 1234, "1.2K": 1200, "3M": 3000000, "n/a": 0}
	for in, want := range cases {
		if got := parseCount(in); got != want {
			t.Fatalf("parseCount(%q)=%d want %d", in, got, want)
		}
	}
}
