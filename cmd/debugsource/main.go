package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hyperifyio/copyfinder/internal/fetch"
	"github.com/hyperifyio/copyfinder/internal/search"
)

func main() {
	source := flag.String("source", "nitter", "nitter, searxng, duckduckgo, google, file, syndication or nitter-detail")
	base := flag.String("url", os.Getenv("DEBUG_SOURCE_URL"), "Base URL (mirror, SearxNG instance, endpoint override) or file path")
	key := flag.String("key", os.Getenv("DEBUG_SOURCE_KEY"), "API key where the source needs one")
	cx := flag.String("cx", os.Getenv("GOOGLE_CSE_CX"), "Google engine id")
	timeout := flag.Duration("timeout", 10*time.Second, "Call timeout")
	flag.Parse()

	q := "just setting up my twttr"
	if flag.NArg() > 0 {
		q = flag.Arg(0)
	}
	getter := &fetch.Client{UserAgent: "copyfinder-debugsource/1.0", MaxAttempts: 1, PerRequestTimeout: *timeout}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout+time.Second)
	defer cancel()
	opt := search.Options{Timeout: *timeout}

	var detail search.DetailClient
	var client search.Client
	switch *source {
	case "nitter":
		mirror := *base
		if mirror == "" {
			mirror = "http://localhost:8090"
		}
		client = &search.Nitter{Mirrors: []string{mirror}, HTTP: getter}
	case "searxng":
		u := *base
		if u == "" {
			u = "http://localhost:8888"
		}
		client = &search.SearxNG{BaseURL: u, APIKey: *key, HTTP: getter}
	case "duckduckgo":
		client = &search.DuckDuckGo{BaseURL: *base, HTTP: getter}
	case "google":
		client = &search.GoogleCSE{BaseURL: *base, APIKey: *key, CX: *cx, HTTP: getter}
	case "file":
		client = &search.FileProvider{Path: *base}
	case "syndication":
		detail = &search.Syndication{BaseURL: *base, HTTP: getter}
	case "nitter-detail":
		mirror := *base
		if mirror == "" {
			mirror = "http://localhost:8090"
		}
		detail = &search.NitterDetail{Mirrors: []string{mirror}, HTTP: getter}
	default:
		fmt.Fprintf(os.Stderr, "unknown source %q\n", *source)
		os.Exit(2)
	}

	start := time.Now()
	if detail != nil {
		d, err := detail.Lookup(ctx, q, opt)
		fmt.Println("err:", err, "elapsed:", time.Since(start).Round(time.Millisecond))
		if err == nil {
			fmt.Printf("@%s (%s) %s\n  %s\n  replies=%d retweets=%d likes=%d views=%d\n",
				d.Author.Username, d.Author.Fullname, d.Date, d.Content,
				d.Stats.Replies, d.Stats.Retweets, d.Stats.Likes, d.Stats.Views)
		}
		return
	}
	res, err := client.Search(ctx, q, opt)
	fmt.Println("err:", err, "instance:", res.Instance, "elapsed:", time.Since(start).Round(time.Millisecond))
	for i, r := range res.Results {
		fmt.Printf("%d. @%s %s — %s\n   %s\n", i+1, r.Author.Username, r.Date, r.URL, r.Content)
	}
}
