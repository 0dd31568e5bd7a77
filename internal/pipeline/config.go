package pipeline

import (
	"time"

	"github.com/hyperifyio/copyfinder/internal/aggregate"
	"github.com/hyperifyio/copyfinder/internal/planner"
)

// Config tunes one Engine. Zero fields take the defaults of DefaultConfig.
type Config struct {
	// Deadline is the wall-clock budget of one request. It gates scheduling
	// of new calls only.
	Deadline time.Duration
	// PrimaryTimeout bounds each call to a primary mirror instance.
	PrimaryTimeout time.Duration
	// FallbackTimeout is the base timeout for fallback sources before health
	// adjustments; MinTimeout is its floor.
	FallbackTimeout time.Duration
	MinTimeout      time.Duration
	// BatchSize is how many fallback sources run in parallel.
	BatchSize int
	// EarlyStop stops trying variants once this many canonical results exist.
	EarlyStop int
	// MaxVariants caps the base variant list.
	MaxVariants int

	// DisableCache turns off the response and per-source caches.
	DisableCache bool
	ResponseTTL  time.Duration
	SourceTTL    time.Duration
	// PopularityTTL is the counting window of the per-query request counter.
	PopularityTTL time.Duration

	// BackfillItems and SelfBackfillItems cap backfill per partition.
	BackfillItems       int
	SelfBackfillItems   int
	BackfillConcurrency int
	BackfillTimeout     time.Duration

	SelfDuplicateThreshold int
	// GenericTerms overrides the generic-query word list when non-nil.
	GenericTerms []string
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Deadline:               12 * time.Second,
		PrimaryTimeout:         4 * time.Second,
		FallbackTimeout:        5 * time.Second,
		MinTimeout:             1200 * time.Millisecond,
		BatchSize:              2,
		EarlyStop:              20,
		MaxVariants:            planner.DefaultMaxVariants,
		ResponseTTL:            30 * time.Minute,
		SourceTTL:              10 * time.Minute,
		PopularityTTL:          24 * time.Hour,
		BackfillItems:          12,
		SelfBackfillItems:      4,
		BackfillConcurrency:    4,
		BackfillTimeout:        3 * time.Second,
		SelfDuplicateThreshold: aggregate.DefaultSelfDuplicateThreshold,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Deadline <= 0 {
		c.Deadline = d.Deadline
	}
	if c.PrimaryTimeout <= 0 {
		c.PrimaryTimeout = d.PrimaryTimeout
	}
	if c.FallbackTimeout <= 0 {
		c.FallbackTimeout = d.FallbackTimeout
	}
	if c.MinTimeout <= 0 {
		c.MinTimeout = d.MinTimeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.EarlyStop <= 0 {
		c.EarlyStop = d.EarlyStop
	}
	if c.MaxVariants <= 0 {
		c.MaxVariants = d.MaxVariants
	}
	if c.ResponseTTL <= 0 {
		c.ResponseTTL = d.ResponseTTL
	}
	if c.SourceTTL <= 0 {
		c.SourceTTL = d.SourceTTL
	}
	if c.PopularityTTL <= 0 {
		c.PopularityTTL = d.PopularityTTL
	}
	if c.BackfillItems < 0 {
		c.BackfillItems = 0
	} else if c.BackfillItems == 0 {
		c.BackfillItems = d.BackfillItems
	}
	if c.SelfBackfillItems < 0 {
		c.SelfBackfillItems = 0
	} else if c.SelfBackfillItems == 0 {
		c.SelfBackfillItems = d.SelfBackfillItems
	}
	if c.BackfillConcurrency <= 0 {
		c.BackfillConcurrency = d.BackfillConcurrency
	}
	if c.BackfillTimeout <= 0 {
		c.BackfillTimeout = d.BackfillTimeout
	}
	if c.SelfDuplicateThreshold <= 0 {
		c.SelfDuplicateThreshold = d.SelfDuplicateThreshold
	}
	return c
}
