// Package app wires configuration, stores, sources, the search engine and
// the HTTP server into a runnable process.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/copyfinder/internal/cache"
	"github.com/hyperifyio/copyfinder/internal/detach"
	"github.com/hyperifyio/copyfinder/internal/fetch"
	"github.com/hyperifyio/copyfinder/internal/health"
	"github.com/hyperifyio/copyfinder/internal/pipeline"
	"github.com/hyperifyio/copyfinder/internal/search"
	"github.com/hyperifyio/copyfinder/internal/server"
)

// ErrNoQuery is returned by Search when the configured query is blank.
var ErrNoQuery = errors.New("no query")

// SearchError carries a non-200 one-shot result so the CLI can map it to an
// exit code.
type SearchError struct {
	Status int
	Reason string
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search failed: HTTP %d (%s)", e.Status, e.Reason)
}

type App struct {
	cfg     Config
	store   cache.Store
	closers []io.Closer
	pool    *detach.Pool
	engine  *pipeline.Engine
	server  *server.Server
}

// New builds the process graph. A configured Redis that cannot be reached
// is an error; file and memory stores never fail here.
func New(ctx context.Context, cfg Config) (*App, error) {
	a := &App{cfg: cfg, pool: &detach.Pool{}}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = store

	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}
	getter := &fetch.Client{
		HTTPClient:      newHighThroughputHTTPClient(cfg.SSLVerify),
		UserAgent:       ua,
		MaxAttempts:     2,
		RedirectMaxHops: 5,
		MaxConcurrent:   32,
	}

	deps := buildSources(cfg, getter)
	policy := health.DefaultPolicy
	if cfg.HealthCooldown > 0 {
		policy.Cooldown = cfg.HealthCooldown
	}
	deps.Health = &health.KV{Store: store, Policy: policy}
	deps.Store = store
	deps.Spawner = a.pool

	a.engine = pipeline.New(deps, pipeline.Config{
		Deadline:               cfg.Deadline,
		BatchSize:              cfg.BatchSize,
		EarlyStop:              cfg.EarlyStop,
		MaxVariants:            cfg.MaxVariants,
		DisableCache:           cfg.DisableCache,
		SelfDuplicateThreshold: cfg.SelfDuplicateThreshold,
		GenericTerms:           cfg.GenericTerms,
	})
	a.server = server.New(a.engine, server.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		RankLimit:      cfg.RankLimit,
		PerAuthor:      cfg.PerAuthor,
	})

	fallbacks := make([]string, 0, len(deps.Fallbacks))
	for _, f := range deps.Fallbacks {
		fallbacks = append(fallbacks, f.Name())
	}
	log.Info().
		Int("mirrors", len(cfg.NitterMirrors)).
		Strs("fallbacks", fallbacks).
		Str("store", fmt.Sprintf("%T", store)).
		Str("version", BuildVersion).
		Msg("copyfinder ready")
	return a, nil
}

// openStore picks Redis, then the file store, then memory.
func (a *App) openStore(ctx context.Context) (cache.Store, error) {
	cfg := a.cfg
	if cfg.RedisAddr != "" {
		r, err := cache.NewRedis(ctx, cache.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		a.closers = append(a.closers, r)
		return r, nil
	}
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge)
			if err != nil {
				log.Warn().Err(err).Msg("cache purge failed")
			} else if n > 0 {
				log.Info().Int("removed", n).Msg("purged stale cache entries")
			}
		}
		return &cache.FileStore{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}, nil
	}
	return cache.NewMemory(), nil
}

// buildSources maps configuration onto the primary mirror source, the
// fallback chain in priority order and the backfill lookups. Clients whose
// settings are absent are left out entirely.
func buildSources(cfg Config, getter search.Getter) pipeline.Deps {
	var deps pipeline.Deps
	if len(cfg.NitterMirrors) > 0 {
		deps.Primary = &search.Nitter{Mirrors: cfg.NitterMirrors, HTTP: getter}
		deps.Heavy = &search.NitterDetail{Mirrors: cfg.NitterMirrors, HTTP: getter}
	}
	if cfg.SearxURL != "" {
		deps.Fallbacks = append(deps.Fallbacks, &search.SearxNG{BaseURL: cfg.SearxURL, APIKey: cfg.SearxKey, HTTP: getter})
	}
	if !cfg.NoDuckDuckGo {
		deps.Fallbacks = append(deps.Fallbacks, &search.DuckDuckGo{BaseURL: cfg.DuckDuckGoURL, HTTP: getter})
	}
	if cfg.GoogleAPIKey != "" && cfg.GoogleCX != "" {
		deps.Fallbacks = append(deps.Fallbacks, &search.GoogleCSE{APIKey: cfg.GoogleAPIKey, CX: cfg.GoogleCX, HTTP: getter})
	}
	if cfg.FileSearchPath != "" {
		deps.Fallbacks = append(deps.Fallbacks, &search.FileProvider{Path: cfg.FileSearchPath})
	}
	deps.Fast = &search.Syndication{BaseURL: cfg.SyndicationURL, HTTP: getter}
	return deps
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// Close waits briefly for detached writes and releases the store.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.pool.Wait(ctx); err != nil {
		log.Warn().Err(err).Msg("detached tasks still running at shutdown")
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Debug().Err(err).Msg("close")
		}
	}
}

// Run performs a one-shot search when a query is configured and otherwise
// serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if strings.TrimSpace(a.cfg.Query) != "" {
		return a.Search(ctx)
	}
	return a.Serve(ctx)
}

// Search runs the configured query once and writes the ranked JSON to
// OutputPath, or stdout when no path is set.
func (a *App) Search(ctx context.Context) error {
	if strings.TrimSpace(a.cfg.Query) == "" {
		return ErrNoQuery
	}
	status, out := a.server.Search(ctx, pipeline.Request{
		Query:           a.cfg.Query,
		QueryInputType:  a.cfg.QueryInputType,
		ExcludeTweetID:  a.cfg.ExcludeTweetID,
		ExcludeUsername: a.cfg.ExcludeUsername,
		ExcludeContent:  a.cfg.ExcludeContent,
	})
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	b = append(b, '\n')
	if a.cfg.OutputPath == "" {
		if _, err := os.Stdout.Write(b); err != nil {
			return fmt.Errorf("write stdout: %w", err)
		}
	} else if err := os.WriteFile(a.cfg.OutputPath, b, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info().
		Int("status", status).
		Str("reason", out.Meta.Reason).
		Int("results", len(out.Results)).
		Int("selfDuplicates", len(out.SelfDuplicates)).
		Int64("elapsedMs", out.Meta.ElapsedMS).
		Msg("search done")
	if status != http.StatusOK {
		return &SearchError{Status: status, Reason: out.Meta.Reason}
	}
	return nil
}

// Serve listens on ListenAddr until ctx is done, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	addr := a.cfg.ListenAddr
	if addr == "" {
		addr = DefaultListenAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
