package app

import "time"

// Config is the process configuration. Flags fill it first, then the config
// file, then the environment.
type Config struct {
	// One-shot mode: when Query is set, Run performs a single search and
	// writes the ranked JSON to OutputPath (stdout when empty).
	Query           string
	QueryInputType  string
	ExcludeTweetID  string
	ExcludeUsername string
	ExcludeContent  string
	OutputPath      string

	// Server
	ListenAddr     string
	AllowedOrigins []string

	// Sources
	NitterMirrors  []string
	SearxURL       string
	SearxKey       string
	DuckDuckGoURL  string
	NoDuckDuckGo   bool
	GoogleAPIKey   string
	GoogleCX       string
	FileSearchPath string
	SyndicationURL string
	UserAgent      string
	SSLVerify      bool

	// Engine tuning; zero values take pipeline defaults.
	Deadline               time.Duration
	BatchSize              int
	EarlyStop              int
	MaxVariants            int
	SelfDuplicateThreshold int
	GenericTerms           []string
	RankLimit              int
	PerAuthor              int
	HealthCooldown         time.Duration

	// Cache: Redis when RedisAddr is set, otherwise files under CacheDir,
	// otherwise memory.
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	DisableCache     bool

	Verbose bool
}

// Defaults used by the CLI flags. File config only overrides a field that
// still carries its default.
const (
	DefaultListenAddr = ":8080"
	DefaultUserAgent  = "copyfinder/1.0 (+https://github.com/hyperifyio/copyfinder)"
	DefaultCacheDir   = ".copyfinder-cache"
)
