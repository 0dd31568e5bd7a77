package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/copyfinder/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, configPath, envFiles, showVersion := parseFlags(flag.CommandLine, os.Args[1:])
	if showVersion {
		fmt.Println(app.Version())
		return
	}
	if err := loadConfig(&cfg, configPath, envFiles); err != nil {
		log.Error().Err(err).Msg("config")
		os.Exit(2)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(exitCode(run(ctx, cfg)))
}

// parseFlags maps the command line onto a Config. String lists are comma
// separated.
func parseFlags(fs *flag.FlagSet, args []string) (cfg app.Config, configPath, envFiles string, version bool) {
	var (
		mirrors  string
		origins  string
		generic  string
		noVerify bool
	)
	fs.StringVar(&configPath, "config", os.Getenv("COPYFINDER_CONFIG"), "Path to YAML or JSON config file")
	fs.StringVar(&envFiles, "env", ".env", "Comma-separated dotenv files to load")
	fs.BoolVar(&version, "version", false, "Print version and exit")

	fs.StringVar(&cfg.Query, "q", "", "Run one search for this text and print the ranked JSON, instead of serving")
	fs.StringVar(&cfg.QueryInputType, "q.type", "", "Query input type: text or url")
	fs.StringVar(&cfg.ExcludeTweetID, "exclude.id", "", "Source tweet id to exclude from results")
	fs.StringVar(&cfg.ExcludeUsername, "exclude.user", "", "Source author; their copies are reported as self duplicates")
	fs.StringVar(&cfg.ExcludeContent, "exclude.content", "", "Source tweet text for self-duplicate comparison")
	fs.StringVar(&cfg.OutputPath, "output", "", "Write one-shot JSON here instead of stdout")

	fs.StringVar(&cfg.ListenAddr, "listen", app.DefaultListenAddr, "HTTP listen address")
	fs.StringVar(&origins, "cors.origins", "", "Comma-separated allowed CORS origins (default any)")

	fs.StringVar(&mirrors, "nitter.mirrors", "", "Comma-separated Nitter mirror base URLs, in priority order")
	fs.StringVar(&cfg.SearxURL, "searx.url", "", "SearxNG base URL")
	fs.StringVar(&cfg.SearxKey, "searx.key", "", "SearxNG API key (optional)")
	fs.StringVar(&cfg.DuckDuckGoURL, "ddg.url", "", "DuckDuckGo HTML endpoint override")
	fs.BoolVar(&cfg.NoDuckDuckGo, "ddg.disable", false, "Do not use DuckDuckGo as a fallback")
	fs.StringVar(&cfg.GoogleAPIKey, "google.key", "", "Google Custom Search API key")
	fs.StringVar(&cfg.GoogleCX, "google.cx", "", "Google Custom Search engine id")
	fs.StringVar(&cfg.FileSearchPath, "search.file", "", "JSON file of tweet records for offline search")
	fs.StringVar(&cfg.SyndicationURL, "syndication.url", "", "Syndication endpoint override for metrics backfill")
	fs.StringVar(&cfg.UserAgent, "ua", app.DefaultUserAgent, "User-Agent for upstream requests")
	fs.BoolVar(&noVerify, "ssl.noVerify", false, "Skip TLS verification for upstreams (self-signed mirrors)")

	fs.DurationVar(&cfg.Deadline, "deadline", 0, "Per-request search deadline (default 12s)")
	fs.IntVar(&cfg.BatchSize, "batch", 0, "Fallback sources queried in parallel (default 2)")
	fs.IntVar(&cfg.EarlyStop, "earlyStop", 0, "Stop after this many canonical results (default 20)")
	fs.IntVar(&cfg.MaxVariants, "variants", 0, "Maximum base query variants (default 4)")
	fs.IntVar(&cfg.SelfDuplicateThreshold, "selfdup.threshold", 0, "Similarity 0..100 at which a same-author hit is a self duplicate (default 90)")
	fs.StringVar(&generic, "generic.terms", "", "Comma-separated words that make a query generic")
	fs.IntVar(&cfg.RankLimit, "rank.limit", 0, "Maximum ranked results (0 = all)")
	fs.IntVar(&cfg.PerAuthor, "rank.perAuthor", 0, "Maximum ranked results per author (0 = no cap)")
	fs.DurationVar(&cfg.HealthCooldown, "health.cooldown", 0, "Cooldown for a failing source (default 60s)")

	fs.StringVar(&cfg.RedisAddr, "redis.addr", "", "Redis address host:port; enables the shared store")
	fs.StringVar(&cfg.RedisPassword, "redis.password", "", "Redis password")
	fs.IntVar(&cfg.RedisDB, "redis.db", 0, "Redis database")
	fs.StringVar(&cfg.CacheDir, "cache.dir", app.DefaultCacheDir, "File store directory used when Redis is not configured")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", 0, "Purge file store entries older than this at startup; 0 disables")
	fs.BoolVar(&cfg.CacheClear, "cache.clear", false, "Clear the file store before starting")
	fs.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", false, "Restrict file store permissions (0700 dirs, 0600 files)")
	fs.BoolVar(&cfg.DisableCache, "cache.disable", false, "Disable the response and per-source caches")
	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")
	_ = fs.Parse(args)

	cfg.NitterMirrors = app.SplitList(mirrors)
	cfg.AllowedOrigins = app.SplitList(origins)
	cfg.GenericTerms = app.SplitList(generic)
	cfg.SSLVerify = !noVerify
	return cfg, configPath, envFiles, version
}

// loadConfig layers the config file, environment and dotenv files under
// the flags, then validates.
func loadConfig(cfg *app.Config, configPath, envFiles string) error {
	if err := app.LoadEnvFiles(app.SplitList(envFiles)...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
		app.ApplyFileConfig(cfg, fc)
	}
	app.ApplyEnvToConfig(cfg)
	return app.ValidateConfig(*cfg)
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()
	return a.Run(ctx)
}

// exitCode: 0 on success, 1 when the search ran but failed upstream, 2 for
// bad input or setup errors.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var se *app.SearchError
	if errors.As(err, &se) {
		log.Warn().Int("status", se.Status).Str("reason", se.Reason).Msg("search did not succeed")
		if se.Status >= http.StatusInternalServerError {
			return 1
		}
		return 2
	}
	log.Error().Err(err).Msg("run failed")
	return 2
}
