package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperifyio/copyfinder/internal/app"
)

func TestParseFlags(t *testing.T) {
	fs := flag.NewFlagSet("copyfinder", flag.ContinueOnError)
	cfg, configPath, _, version := parseFlags(fs, []string{
		"-config", "cf.yaml",
		"-q", "some tweet text",
		"-nitter.mirrors", "https://a.example, https://b.example",
		"-deadline", "7s",
		"-ssl.noVerify",
	})
	if configPath != "cf.yaml" || version {
		t.Fatalf("configPath=%q version=%v", configPath, version)
	}
	if cfg.Query != "some tweet text" || cfg.Deadline != 7*time.Second {
		t.Fatalf("cfg: %+v", cfg)
	}
	if len(cfg.NitterMirrors) != 2 || cfg.NitterMirrors[1] != "https://b.example" {
		t.Fatalf("mirrors: %v", cfg.NitterMirrors)
	}
	if cfg.SSLVerify {
		t.Fatalf("-ssl.noVerify should disable verification")
	}
	if cfg.ListenAddr != app.DefaultListenAddr || cfg.CacheDir != app.DefaultCacheDir {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

// Flags win over the file; the file fills what flags left at defaults.
func TestLoadConfig_Layering(t *testing.T) {
	t.Setenv("NITTER_MIRRORS", "")
	t.Setenv("SEARX_URL", "")
	t.Setenv("SEARXNG_URL", "")
	dir := t.TempDir()
	p := filepath.Join(dir, "cf.yaml")
	yaml := "listen: \":9090\"\nnitter:\n  mirrors: [\"https://file.example\"]\nsearx:\n  url: https://searx.example\nengine:\n  deadline: 9s\n"
	if err := os.WriteFile(p, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := app.Config{ListenAddr: app.DefaultListenAddr, NitterMirrors: []string{"https://flag.example"}}
	if err := loadConfig(&cfg, p, ""); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.SearxURL != "https://searx.example" || cfg.Deadline != 9*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.NitterMirrors[0] != "https://flag.example" {
		t.Fatalf("flag mirrors overwritten: %v", cfg.NitterMirrors)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{&app.SearchError{Status: 500, Reason: "all_sources_failed"}, 1},
		{&app.SearchError{Status: 400, Reason: "missing_query"}, 2},
		{errors.New("boom"), 2},
	}
	for _, c := range cases {
		if got := exitCode(c.err); got != c.want {
			t.Fatalf("exitCode(%v)=%d, want %d", c.err, got, c.want)
		}
	}
}

func TestRun_OneShotFromFile(t *testing.T) {
	dir := t.TempDir()
	records := filepath.Join(dir, "records.json")
	body := `[{"user":{"username":"dave"},"content":"a perfectly ordinary sentence worth copying around","url":"https://x.com/dave/status/9","date":"2024-05-05","stats":{"likes":1}}]`
	if err := os.WriteFile(records, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.json")
	err := run(context.Background(), app.Config{
		Query:          "a perfectly ordinary sentence worth copying around",
		FileSearchPath: records,
		NoDuckDuckGo:   true,
		OutputPath:     out,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if b, err := os.ReadFile(out); err != nil || len(b) == 0 {
		t.Fatalf("expected output, err=%v", err)
	}
}
