package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperifyio/copyfinder/internal/cache"
	"github.com/hyperifyio/copyfinder/internal/server"
)

const appQuery = "the quick brown fox jumps over the lazy dog at dawn"

func writeFixture(t *testing.T, dir string) string {
	t.Helper()
	records := `[
  {"user":{"fullname":"Alice","username":"alice"},"content":"The quick brown fox jumps over the lazy dog at dawn","url":"https://x.com/alice/status/111","date":"","stats":{}},
  {"user":{"fullname":"Bob","username":"bob"},"content":"the quick brown fox jumps over the lazy dog at dawn","url":"https://x.com/bob/status/222","date":"2024-01-02","stats":{"likes":3}},
  {"user":{"fullname":"Carol","username":"carol"},"content":"something else entirely","url":"https://x.com/carol/status/333","date":"2024-01-02","stats":{}}
]`
	p := filepath.Join(dir, "records.json")
	if err := os.WriteFile(p, []byte(records), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return p
}

func syndicationServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "111" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"__typename":"Tweet","id_str":"111","text":"x","created_at":"2024-03-01T10:00:00.000Z","favorite_count":40,"retweet_count":2,"user":{"name":"Alice","screen_name":"alice"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearch_OfflineEndToEnd(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.json")
	cfg := Config{
		Query:           appQuery,
		ExcludeUsername: "@bob",
		OutputPath:      out,
		FileSearchPath:  writeFixture(t, dir),
		NoDuckDuckGo:    true,
		SyndicationURL:  syndicationServer(t).URL,
		CacheDir:        filepath.Join(dir, "cache"),
		Deadline:        5 * time.Second,
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	a.Close()

	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var resp server.SearchResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Meta.Reason != "results_found" {
		t.Fatalf("reason=%q", resp.Meta.Reason)
	}
	if len(resp.Results) != 1 || resp.Results[0].Author.Username != "alice" {
		t.Fatalf("results: %+v", resp.Results)
	}
	if resp.Results[0].Stats.Likes != 40 || resp.Results[0].Date != "2024-03-01T10:00:00.000Z" {
		t.Fatalf("expected backfilled metrics, got %+v", resp.Results[0].Record)
	}
	if len(resp.SelfDuplicates) != 1 || resp.SelfDuplicates[0].Author.Username != "bob" {
		t.Fatalf("self duplicates: %+v", resp.SelfDuplicates)
	}
	entries, _ := filepath.Glob(filepath.Join(dir, "cache", "*.json"))
	if len(entries) == 0 {
		t.Fatalf("expected file store entries")
	}
}

func TestSearch_Errors(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{FileSearchPath: writeFixture(t, dir), NoDuckDuckGo: true, OutputPath: filepath.Join(dir, "out.json")}
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if err := a.Search(context.Background()); !errors.Is(err, ErrNoQuery) {
		t.Fatalf("err=%v, want ErrNoQuery", err)
	}

	a.cfg.Query = "hi"
	err = a.Search(context.Background())
	var se *SearchError
	if !errors.As(err, &se) || se.Status != http.StatusBadRequest || se.Reason != "unsearchable_query" {
		t.Fatalf("err=%v, want 400 unsearchable_query", err)
	}
}

func TestOpenStore_Selection(t *testing.T) {
	a := &App{cfg: Config{}}
	s, err := a.openStore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*cache.Memory); !ok {
		t.Fatalf("got %T, want memory store", s)
	}

	dir := t.TempDir()
	stale := filepath.Join(dir, "old.json")
	if err := os.WriteFile(stale, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-48 * time.Hour)
	_ = os.Chtimes(stale, old, old)
	a = &App{cfg: Config{CacheDir: dir, CacheMaxAge: time.Hour, CacheStrictPerms: true}}
	s, err = a.openStore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	fs, ok := s.(*cache.FileStore)
	if !ok || !fs.StrictPerms {
		t.Fatalf("got %T %+v, want strict file store", s, s)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale entry should be purged, stat err=%v", err)
	}
}

func TestBuildSources_Order(t *testing.T) {
	deps := buildSources(Config{
		NitterMirrors:  []string{"https://n.example"},
		SearxURL:       "https://searx.example",
		GoogleAPIKey:   "k",
		GoogleCX:       "cx",
		FileSearchPath: "records.json",
	}, nil)
	if deps.Primary == nil || deps.Heavy == nil || deps.Fast == nil {
		t.Fatalf("missing primary or detail clients: %+v", deps)
	}
	var names []string
	for _, f := range deps.Fallbacks {
		names = append(names, f.Name())
	}
	want := []string{"searxng", "duckduckgo", "google", "file"}
	if len(names) != len(want) {
		t.Fatalf("fallbacks=%v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("fallbacks=%v, want %v", names, want)
		}
	}

	deps = buildSources(Config{NoDuckDuckGo: true}, nil)
	if deps.Primary != nil || deps.Heavy != nil || len(deps.Fallbacks) != 0 {
		t.Fatalf("expected no sources, got %+v", deps)
	}
}

func TestHandler_Health(t *testing.T) {
	a, err := New(context.Background(), Config{FileSearchPath: "unused.json", NoDuckDuckGo: true})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
}
