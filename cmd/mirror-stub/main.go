package main

import (
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/hyperifyio/copyfinder/internal/textnorm"
	"github.com/hyperifyio/copyfinder/internal/tweet"
)

// stubTweet is one canned tweet served by every endpoint.
type stubTweet struct {
	ID       string
	Username string
	Fullname string
	Content  string
	Date     string
	Replies  int
	Retweets int
	Likes    int
}

var tweets = []stubTweet{
	{ID: "1790000000000000001", Username: "original", Fullname: "Original Author", Content: "Ship small changes often and your deploys stop being scary", Date: "May 13, 2024 · 9:00 AM UTC", Replies: 12, Retweets: 40, Likes: 512},
	{ID: "1790000000000000002", Username: "copycat", Fullname: "Copy Cat", Content: "Ship small changes often and your deploys stop being scary", Date: "May 14, 2024 · 7:30 PM UTC", Replies: 1, Retweets: 3, Likes: 20},
	{ID: "1790000000000000003", Username: "reposter", Fullname: "Re Poster", Content: "ship small changes often, and your deploys stop being scary!!", Date: "May 15, 2024 · 1:10 AM UTC"},
	{ID: "1790000000000000004", Username: "original", Fullname: "Original Author", Content: "Ship small changes often and your deploys stop being scary", Date: "Jun 2, 2024 · 8:00 AM UTC", Likes: 2},
}

var timeline = template.Must(template.New("timeline").Parse(`<!doctype html><html><head><title>Search</title></head><body>
<div class="timeline">
{{- range . }}
<div class="timeline-item">
  <a class="tweet-link" href="/{{ .Username }}/status/{{ .ID }}#m"></a>
  <div class="tweet-body">
    <div class="tweet-header">
      <a class="tweet-avatar" href="/{{ .Username }}"><img class="avatar round" src="/pic/{{ .Username }}.jpg" alt=""></a>
      <a class="fullname" href="/{{ .Username }}">{{ .Fullname }}</a><a class="username" href="/{{ .Username }}">@{{ .Username }}</a>
      <span class="tweet-date"><a href="/{{ .Username }}/status/{{ .ID }}#m" title="{{ .Date }}">1d</a></span>
    </div>
    <div class="tweet-content media-body">{{ .Content }}</div>
    <div class="tweet-stats">
      <span class="tweet-stat"><div class="icon-container"><span class="icon-comment"></span> {{ .Replies }}</div></span>
      <span class="tweet-stat"><div class="icon-container"><span class="icon-retweet"></span> {{ .Retweets }}</div></span>
      <span class="tweet-stat"><div class="icon-container"><span class="icon-heart"></span> {{ .Likes }}</div></span>
    </div>
  </div>
</div>
{{- end }}
</div></body></html>`))

var status = template.Must(template.New("status").Parse(`<!doctype html><html><body>
<div class="main-tweet"><div class="timeline-item">
  <div class="tweet-header">
    <a class="fullname" href="/{{ .Username }}">{{ .Fullname }}</a><a class="username" href="/{{ .Username }}">@{{ .Username }}</a>
    <span class="tweet-date"><a href="/{{ .Username }}/status/{{ .ID }}#m" title="{{ .Date }}">1d</a></span>
  </div>
  <div class="tweet-content media-body">{{ .Content }}</div>
  <div class="tweet-stats">
    <span class="tweet-stat"><span class="icon-comment"></span> {{ .Replies }}</span>
    <span class="tweet-stat"><span class="icon-retweet"></span> {{ .Retweets }}</span>
    <span class="tweet-stat"><span class="icon-heart"></span> {{ .Likes }}</span>
  </div>
</div></div></body></html>`))

const challengePage = `<!doctype html><html><head><title>Just a moment...</title></head><body><div id="challenge-platform"></div></body></html>`

func main() {
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8090"
	}
	// STUB_MODE=challenge or STUB_MODE=ratelimit makes search fail the way
	// real mirrors do under load.
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("STUB_MODE")))

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		switch mode {
		case "challenge":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(challengePage))
			return
		case "ratelimit":
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := timeline.Execute(w, match(r.URL.Query().Get("q"))); err != nil {
			log.Printf("render timeline: %v", err)
		}
	})
	mux.HandleFunc("/i/status/", func(w http.ResponseWriter, r *http.Request) {
		t, ok := byID(strings.TrimPrefix(r.URL.Path, "/i/status/"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := status.Execute(w, t); err != nil {
			log.Printf("render status: %v", err)
		}
	})
	mux.HandleFunc("/tweet-result", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		t, ok := byID(r.URL.Query().Get("id"))
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]any{"__typename": "TweetTombstone"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"__typename":         "Tweet",
			"id_str":             t.ID,
			"text":               t.Content,
			"created_at":         "2024-05-13T09:00:00.000Z",
			"favorite_count":     t.Likes,
			"retweet_count":      t.Retweets,
			"conversation_count": t.Replies,
			"user":               map[string]any{"name": t.Fullname, "screen_name": t.Username},
		})
	})

	log.Printf("mirror-stub listening on %s (mode=%q)", addr, mode)
	log.Fatal(http.ListenAndServe(addr, mux))
}

// match returns the canned tweets containing every term of q, or the exact
// phrase when q is quoted.
func match(q string) []stubTweet {
	q = strings.TrimSpace(strings.ReplaceAll(q, "site:x.com", ""))
	var terms []string
	if len(q) >= 2 && strings.HasPrefix(q, `"`) && strings.HasSuffix(q, `"`) {
		terms = []string{strings.ToLower(textnorm.Normalize(q[1 : len(q)-1]))}
	} else {
		terms = textnorm.Tokens(strings.ToLower(textnorm.NormalizeStrict(q)))
	}
	var out []stubTweet
	for _, t := range tweets {
		body := strings.ToLower(textnorm.Normalize(t.Content))
		ok := len(terms) > 0
		for _, term := range terms {
			if !strings.Contains(body, term) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, t)
		}
	}
	return out
}

func byID(id string) (stubTweet, bool) {
	id = tweet.IDFromURL("/i/status/" + strings.Trim(id, "/"))
	for _, t := range tweets {
		if t.ID == id {
			return t, true
		}
	}
	return stubTweet{}, false
}
