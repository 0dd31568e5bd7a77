package pipeline

import (
	"github.com/hyperifyio/copyfinder/internal/aggregate"
	"github.com/hyperifyio/copyfinder/internal/planner"
	"github.com/hyperifyio/copyfinder/internal/tweet"
)

// Terminal reasons reported in Meta.Reason.
const (
	ReasonMissingQuery     = "missing_query"
	ReasonUnsearchable     = "unsearchable_query"
	ReasonAllSourcesFailed = "all_sources_failed"
	ReasonExhausted        = "exhausted_variants"
	ReasonResultsFound     = "results_found"
)

// Request is one search for copies of a tweet's text.
type Request struct {
	Query          string `json:"query"`
	QueryInputType string `json:"queryInputType,omitempty"`
	// The Exclude fields identify the source tweet, when known.
	ExcludeTweetID  string `json:"excludeTweetId,omitempty"`
	ExcludeUsername string `json:"excludeUsername,omitempty"`
	ExcludeContent  string `json:"excludeContent,omitempty"`
}

// Response pairs an HTTP-style status with the body.
type Response struct {
	Status int
	Body   Body
}

// Body is the serialized search outcome.
type Body struct {
	Results        []tweet.Record            `json:"results"`
	SelfDuplicates []aggregate.SelfDuplicate `json:"selfDuplicates"`
	Instance       string                    `json:"instance,omitempty"`
	Meta           Meta                      `json:"meta"`
	Error          string                    `json:"error,omitempty"`
}

// SourceStats counts calls to one source during a request.
type SourceStats struct {
	Attempts  int `json:"attempts"`
	Failures  int `json:"failures"`
	CacheHits int `json:"cacheHits,omitempty"`
}

// VariantStats records what one variant produced.
type VariantStats struct {
	Key    string `json:"key"`
	Query  string `json:"query"`
	Hits   int    `json:"hits"`
	Source string `json:"source,omitempty"`
}

// Meta is per-request diagnostics. Callers may surface it but should not
// branch on anything except Reason.
type Meta struct {
	Reason             string                 `json:"reason"`
	CacheHit           bool                   `json:"cacheHit"`
	SourceCacheHits    int                    `json:"sourceCacheHits"`
	Attempts           int                    `json:"attempts"`
	Failures           int                    `json:"failures"`
	Sources            map[string]SourceStats `json:"sources,omitempty"`
	Variants           []VariantStats         `json:"variants,omitempty"`
	Classification     planner.Classification `json:"classification"`
	CanonicalCount     int                    `json:"canonicalCount"`
	ExcludedCount      int                    `json:"excludedCount"`
	SelfDuplicateCount int                    `json:"selfDuplicateCount"`
	Backfilled         int                    `json:"backfilled"`
	EarlyStop          bool                   `json:"earlyStop,omitempty"`
	DeadlineHit        bool                   `json:"deadlineHit,omitempty"`
	Instance           string                 `json:"instance,omitempty"`
	ElapsedMS          int64                  `json:"elapsedMs"`
}

func (m *Meta) source(name string) SourceStats {
	if m.Sources == nil {
		m.Sources = map[string]SourceStats{}
	}
	return m.Sources[name]
}

func (m *Meta) attempt(name string, failed, cached bool) {
	s := m.source(name)
	s.Attempts++
	m.Attempts++
	if failed {
		s.Failures++
		m.Failures++
	}
	if cached {
		s.CacheHits++
		m.SourceCacheHits++
	}
	m.Sources[name] = s
}
