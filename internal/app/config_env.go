package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.SearxURL == "" {
		// Support both SEARX_URL and SEARXNG_URL; prefer SEARX_URL if set
		v := os.Getenv("SEARX_URL")
		if v == "" {
			v = os.Getenv("SEARXNG_URL")
		}
		cfg.SearxURL = v
	}
	if cfg.SearxKey == "" {
		v := os.Getenv("SEARX_KEY")
		if v == "" {
			v = os.Getenv("SEARXNG_KEY")
		}
		cfg.SearxKey = v
	}
	setString(&cfg.GoogleAPIKey, "GOOGLE_CSE_KEY")
	setString(&cfg.GoogleCX, "GOOGLE_CSE_CX")
	setString(&cfg.DuckDuckGoURL, "DUCKDUCKGO_URL")
	setString(&cfg.SyndicationURL, "SYNDICATION_URL")
	setString(&cfg.FileSearchPath, "SEARCH_FILE")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	// Flag defaults count as unset.
	setOverDefault(&cfg.CacheDir, "CACHE_DIR", DefaultCacheDir)
	setOverDefault(&cfg.ListenAddr, "LISTEN_ADDR", DefaultListenAddr)
	setOverDefault(&cfg.UserAgent, "USER_AGENT", DefaultUserAgent)

	setList(&cfg.NitterMirrors, "NITTER_MIRRORS")
	setList(&cfg.AllowedOrigins, "ALLOWED_ORIGINS")
	setList(&cfg.GenericTerms, "GENERIC_TERMS")

	setInt(&cfg.RedisDB, "REDIS_DB")
	setInt(&cfg.SelfDuplicateThreshold, "SELF_DUPLICATE_THRESHOLD")
	setInt(&cfg.EarlyStop, "EARLY_STOP")

	setDuration(&cfg.Deadline, "SEARCH_DEADLINE")
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")

	setBool := func(dst *bool, envKey string) {
		if *dst {
			return
		}
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			if s == "1" || s == "true" || s == "yes" || s == "on" {
				*dst = true
			}
		}
	}
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
	setBool(&cfg.DisableCache, "DISABLE_CACHE")
	setBool(&cfg.NoDuckDuckGo, "NO_DUCKDUCKGO")

	switch strings.ToLower(strings.TrimSpace(os.Getenv("SSL_VERIFY"))) {
	case "0", "false", "no", "off":
		cfg.SSLVerify = false
	}
}

func setString(dst *string, key string) {
	if *dst != "" {
		return
	}
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setOverDefault(dst *string, key, def string) {
	if *dst != "" && *dst != def {
		return
	}
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	if len(*dst) > 0 {
		return
	}
	if v := SplitList(os.Getenv(key)); len(v) > 0 {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if *dst != 0 {
		return
	}
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && n >= 0 {
		*dst = n
	}
}

func setDuration(dst *time.Duration, key string) {
	if *dst != 0 {
		return
	}
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			*dst = d
		}
	}
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
