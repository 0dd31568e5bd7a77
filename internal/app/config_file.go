package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// ErrNoSources is returned by ValidateConfig when no search source is
// configured at all.
var ErrNoSources = errors.New("config: no search source configured")

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	Listen  string   `yaml:"listen" json:"listen"`
	Origins []string `yaml:"origins" json:"origins"`
	Output  string   `yaml:"output" json:"output"`

	Nitter struct {
		Mirrors []string `yaml:"mirrors" json:"mirrors"`
	} `yaml:"nitter" json:"nitter"`

	Searx struct {
		URL string `yaml:"url" json:"url"`
		Key string `yaml:"key" json:"key"`
	} `yaml:"searx" json:"searx"`

	DuckDuckGo struct {
		URL     string `yaml:"url" json:"url"`
		Disable bool   `yaml:"disable" json:"disable"`
	} `yaml:"duckduckgo" json:"duckduckgo"`

	Google struct {
		Key string `yaml:"key" json:"key"`
		CX  string `yaml:"cx" json:"cx"`
	} `yaml:"google" json:"google"`

	Search struct {
		File      string `yaml:"file" json:"file"`
		UserAgent string `yaml:"ua" json:"ua"`
	} `yaml:"search" json:"search"`

	Syndication struct {
		URL string `yaml:"url" json:"url"`
	} `yaml:"syndication" json:"syndication"`

	Engine struct {
		Deadline               time.Duration `yaml:"deadline" json:"deadline"`
		BatchSize              int           `yaml:"batchSize" json:"batchSize"`
		EarlyStop              int           `yaml:"earlyStop" json:"earlyStop"`
		MaxVariants            int           `yaml:"maxVariants" json:"maxVariants"`
		SelfDuplicateThreshold int           `yaml:"selfDuplicateThreshold" json:"selfDuplicateThreshold"`
		GenericTerms           []string      `yaml:"genericTerms" json:"genericTerms"`
		HealthCooldown         time.Duration `yaml:"healthCooldown" json:"healthCooldown"`
	} `yaml:"engine" json:"engine"`

	Rank struct {
		Limit     int `yaml:"limit" json:"limit"`
		PerAuthor int `yaml:"perAuthor" json:"perAuthor"`
	} `yaml:"rank" json:"rank"`

	Redis struct {
		Addr     string `yaml:"addr" json:"addr"`
		Password string `yaml:"password" json:"password"`
		DB       int    `yaml:"db" json:"db"`
	} `yaml:"redis" json:"redis"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		Disable     bool          `yaml:"disable" json:"disable"`
	} `yaml:"cache" json:"cache"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset or still at their flag default.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}

	if (cfg.ListenAddr == "" || cfg.ListenAddr == DefaultListenAddr) && fc.Listen != "" {
		cfg.ListenAddr = fc.Listen
	}
	if len(cfg.AllowedOrigins) == 0 && len(fc.Origins) > 0 {
		cfg.AllowedOrigins = append([]string{}, fc.Origins...)
	}
	if cfg.OutputPath == "" && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}

	if len(cfg.NitterMirrors) == 0 && len(fc.Nitter.Mirrors) > 0 {
		cfg.NitterMirrors = append([]string{}, fc.Nitter.Mirrors...)
	}
	if cfg.SearxURL == "" && fc.Searx.URL != "" {
		cfg.SearxURL = fc.Searx.URL
	}
	if cfg.SearxKey == "" && fc.Searx.Key != "" {
		cfg.SearxKey = fc.Searx.Key
	}
	if cfg.DuckDuckGoURL == "" && fc.DuckDuckGo.URL != "" {
		cfg.DuckDuckGoURL = fc.DuckDuckGo.URL
	}
	if !cfg.NoDuckDuckGo && fc.DuckDuckGo.Disable {
		cfg.NoDuckDuckGo = true
	}
	if cfg.GoogleAPIKey == "" && fc.Google.Key != "" {
		cfg.GoogleAPIKey = fc.Google.Key
	}
	if cfg.GoogleCX == "" && fc.Google.CX != "" {
		cfg.GoogleCX = fc.Google.CX
	}
	if cfg.FileSearchPath == "" && fc.Search.File != "" {
		cfg.FileSearchPath = fc.Search.File
	}
	if (cfg.UserAgent == "" || cfg.UserAgent == DefaultUserAgent) && fc.Search.UserAgent != "" {
		cfg.UserAgent = fc.Search.UserAgent
	}
	if cfg.SyndicationURL == "" && fc.Syndication.URL != "" {
		cfg.SyndicationURL = fc.Syndication.URL
	}

	if cfg.Deadline == 0 && fc.Engine.Deadline > 0 {
		cfg.Deadline = fc.Engine.Deadline
	}
	if cfg.BatchSize == 0 && fc.Engine.BatchSize > 0 {
		cfg.BatchSize = fc.Engine.BatchSize
	}
	if cfg.EarlyStop == 0 && fc.Engine.EarlyStop > 0 {
		cfg.EarlyStop = fc.Engine.EarlyStop
	}
	if cfg.MaxVariants == 0 && fc.Engine.MaxVariants > 0 {
		cfg.MaxVariants = fc.Engine.MaxVariants
	}
	if cfg.SelfDuplicateThreshold == 0 && fc.Engine.SelfDuplicateThreshold > 0 {
		cfg.SelfDuplicateThreshold = fc.Engine.SelfDuplicateThreshold
	}
	if len(cfg.GenericTerms) == 0 && len(fc.Engine.GenericTerms) > 0 {
		cfg.GenericTerms = append([]string{}, fc.Engine.GenericTerms...)
	}
	if cfg.HealthCooldown == 0 && fc.Engine.HealthCooldown > 0 {
		cfg.HealthCooldown = fc.Engine.HealthCooldown
	}
	if cfg.RankLimit == 0 && fc.Rank.Limit > 0 {
		cfg.RankLimit = fc.Rank.Limit
	}
	if cfg.PerAuthor == 0 && fc.Rank.PerAuthor > 0 {
		cfg.PerAuthor = fc.Rank.PerAuthor
	}

	if cfg.RedisAddr == "" && fc.Redis.Addr != "" {
		cfg.RedisAddr = fc.Redis.Addr
	}
	if cfg.RedisPassword == "" && fc.Redis.Password != "" {
		cfg.RedisPassword = fc.Redis.Password
	}
	if cfg.RedisDB == 0 && fc.Redis.DB > 0 {
		cfg.RedisDB = fc.Redis.DB
	}

	if (cfg.CacheDir == "" || cfg.CacheDir == DefaultCacheDir) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if !cfg.DisableCache && fc.Cache.Disable {
		cfg.DisableCache = true
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal schema validation for required settings.
func ValidateConfig(cfg Config) error {
	for _, m := range cfg.NitterMirrors {
		if err := checkURL("nitter mirror", m); err != nil {
			return err
		}
	}
	if cfg.SearxURL != "" {
		if err := checkURL("searx.url", cfg.SearxURL); err != nil {
			return err
		}
	}
	if (cfg.GoogleAPIKey == "") != (cfg.GoogleCX == "") {
		return errors.New("config: google.key and google.cx must be set together")
	}
	if cfg.Deadline < 0 || cfg.CacheMaxAge < 0 || cfg.HealthCooldown < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	if cfg.BatchSize < 0 || cfg.EarlyStop < 0 || cfg.MaxVariants < 0 || cfg.RankLimit < 0 || cfg.PerAuthor < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.SelfDuplicateThreshold < 0 || cfg.SelfDuplicateThreshold > 100 {
		return errors.New("config: selfDuplicateThreshold must be within 0..100")
	}
	if cfg.QueryInputType != "" && cfg.QueryInputType != "text" && cfg.QueryInputType != "url" {
		return fmt.Errorf("config: unknown query input type %q", cfg.QueryInputType)
	}
	if len(cfg.NitterMirrors) == 0 && cfg.SearxURL == "" && cfg.GoogleAPIKey == "" &&
		cfg.FileSearchPath == "" && cfg.NoDuckDuckGo {
		return ErrNoSources
	}
	return nil
}

func checkURL(field, raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: %s %q is not an http(s) URL", field, raw)
	}
	return nil
}
