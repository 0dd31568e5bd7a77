// Package pipeline is the fan-out search engine: it builds query variants,
// queries the primary mirror source and health-ordered fallbacks under a
// global deadline, then canonicalizes, classifies and backfills the results.
package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/copyfinder/internal/aggregate"
	"github.com/hyperifyio/copyfinder/internal/backfill"
	"github.com/hyperifyio/copyfinder/internal/budget"
	"github.com/hyperifyio/copyfinder/internal/cache"
	"github.com/hyperifyio/copyfinder/internal/detach"
	"github.com/hyperifyio/copyfinder/internal/health"
	"github.com/hyperifyio/copyfinder/internal/metrics"
	"github.com/hyperifyio/copyfinder/internal/planner"
	"github.com/hyperifyio/copyfinder/internal/search"
	"github.com/hyperifyio/copyfinder/internal/textnorm"
	"github.com/hyperifyio/copyfinder/internal/tweet"
)

// Cache key prefixes.
const (
	ResponseKeyPrefix   = "copyfinder:search:v1:"
	SourceKeyPrefix     = "copyfinder:source:v1:"
	PopularityKeyPrefix = "copyfinder:popularity:v1:"
)

// Deps are the collaborators of an Engine. Nil fields get in-memory or
// no-op defaults; only the sources are required for useful output.
type Deps struct {
	Primary   search.MirrorClient
	Fallbacks []search.Client
	// Fast and Heavy are the detail lookups used by backfill.
	Fast  search.DetailClient
	Heavy search.DetailClient

	Health     health.Store
	Store      cache.Store
	Similarity func(a, b string) int
	Spawner    detach.Spawner
	Now        func() time.Time
}

// Engine runs search requests. It is safe for concurrent use.
type Engine struct {
	deps       Deps
	cfg        Config
	classifier *planner.Classifier
	backfiller *backfill.Backfiller
}

// New wires an Engine.
func New(deps Deps, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	if deps.Health == nil {
		deps.Health = health.NewMemory(health.DefaultPolicy)
	}
	if deps.Store == nil {
		deps.Store = cache.NewMemory()
	}
	if deps.Similarity == nil {
		deps.Similarity = textnorm.Similarity
	}
	if deps.Spawner == nil {
		deps.Spawner = &detach.Pool{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Engine{
		deps:       deps,
		cfg:        cfg,
		classifier: planner.NewClassifier(cfg.GenericTerms),
		backfiller: backfill.New(deps.Fast, deps.Heavy, backfill.Options{
			Concurrency: cfg.BackfillConcurrency,
			Timeout:     cfg.BackfillTimeout,
		}),
	}
}

// Similarity exposes the configured similarity function for callers that
// rank the results.
func (e *Engine) Similarity() func(a, b string) int { return e.deps.Similarity }

// ResponseKey is the response cache key for a request whose query normalizes
// to norm.
func ResponseKey(norm string, req Request) string {
	return cache.KeyFrom(ResponseKeyPrefix,
		norm,
		strings.TrimSpace(req.QueryInputType),
		strings.TrimSpace(req.ExcludeTweetID),
		tweet.NormalizeUsername(req.ExcludeUsername),
		textnorm.Normalize(req.ExcludeContent),
	)
}

// SourceKey is the per-source raw cache key for query.
func SourceKey(source, query string) string {
	return cache.KeyFrom(SourceKeyPrefix+source+":", query)
}

// Run executes one search. Upstream failures never surface as errors; they
// are folded into Meta and the terminal reason.
func (e *Engine) Run(ctx context.Context, req Request) Response {
	start := e.deps.Now()
	dl := budget.NewDeadline(start, e.cfg.Deadline, e.deps.Now)
	var meta Meta

	finish := func(status int, body Body) Response {
		body.Meta.ElapsedMS = dl.Elapsed().Milliseconds()
		if body.Results == nil {
			body.Results = []tweet.Record{}
		}
		if body.SelfDuplicates == nil {
			body.SelfDuplicates = []aggregate.SelfDuplicate{}
		}
		metrics.Searches.WithLabelValues(body.Meta.Reason).Inc()
		metrics.SearchLatency.Observe(dl.Elapsed().Seconds())
		return Response{Status: status, Body: body}
	}

	raw := strings.TrimSpace(req.Query)
	if raw == "" {
		meta.Reason = ReasonMissingQuery
		return finish(http.StatusBadRequest, Body{Meta: meta, Error: "query is required"})
	}
	norm := textnorm.Normalize(raw)
	key := ResponseKey(norm, req)

	if !e.cfg.DisableCache {
		e.bumpPopularity(ctx, key)
		if body, ok := e.cachedResponse(ctx, key); ok {
			body.Meta.CacheHit = true
			return finish(http.StatusOK, body)
		}
	}

	meta.Classification = e.classifier.Classify(raw)
	variants := planner.BuildQueryVariants(raw, planner.Options{MaxVariants: e.cfg.MaxVariants})
	if len(variants) == 0 {
		meta.Reason = ReasonUnsearchable
		return finish(http.StatusBadRequest, Body{Meta: meta, Error: "query is too short to search"})
	}
	if meta.Classification.Short || meta.Classification.Generic {
		variants = planner.AdaptiveVariants(raw, variants, meta.Classification)
	}

	var all, canonical []tweet.Record
	failures := map[string]int{}
	for _, v := range variants {
		if dl.Expired() || ctx.Err() != nil {
			meta.DeadlineHit = true
			break
		}
		results, source := e.queryPrimary(ctx, v, dl, &meta)
		if len(results) == 0 {
			results, source = e.queryFallbacks(ctx, v, dl, &meta, failures)
		}
		for i := range results {
			if results[i].Source == "" {
				results[i].Source = source
			}
			results[i].MatchedBy = v.Key
		}
		meta.Variants = append(meta.Variants, VariantStats{Key: v.Key, Query: v.Query, Hits: len(results), Source: source})
		all = append(all, results...)
		canonical = aggregate.Canonicalize(all)
		if len(canonical) >= e.cfg.EarlyStop {
			meta.EarlyStop = true
			break
		}
	}
	meta.CanonicalCount = len(canonical)

	split := aggregate.SplitSelfDuplicates(canonical, aggregate.SourceTweet{
		ID:       strings.TrimSpace(req.ExcludeTweetID),
		Username: req.ExcludeUsername,
		Content:  req.ExcludeContent,
	}, norm, aggregate.SplitOptions{
		Threshold:  e.cfg.SelfDuplicateThreshold,
		Similarity: e.deps.Similarity,
	})
	meta.ExcludedCount = split.Excluded
	meta.SelfDuplicateCount = len(split.SelfDuplicates)

	external, n := e.backfiller.Fill(ctx, split.External, e.cfg.BackfillItems)
	meta.Backfilled += n
	selfDups := e.backfillSelf(ctx, split.SelfDuplicates, &meta)

	body := Body{Results: external, SelfDuplicates: selfDups, Instance: meta.Instance}
	status := http.StatusOK
	switch {
	case meta.Attempts > 0 && meta.Failures == meta.Attempts && len(canonical) == 0:
		meta.Reason = ReasonAllSourcesFailed
		status = http.StatusInternalServerError
		body.Error = "all sources failed"
	case len(external) == 0:
		meta.Reason = ReasonExhausted
	default:
		meta.Reason = ReasonResultsFound
	}
	body.Meta = meta

	// A run cut short or never answered says nothing about the query.
	if status == http.StatusOK && !e.cfg.DisableCache && !meta.DeadlineHit && meta.Attempts > 0 {
		e.storeResponse(ctx, key, body)
	}
	return finish(status, body)
}

func (e *Engine) backfillSelf(ctx context.Context, dups []aggregate.SelfDuplicate, meta *Meta) []aggregate.SelfDuplicate {
	if len(dups) == 0 {
		return dups
	}
	recs := make([]tweet.Record, len(dups))
	for i, d := range dups {
		recs[i] = d.Record
	}
	filled, n := e.backfiller.Fill(ctx, recs, e.cfg.SelfBackfillItems)
	meta.Backfilled += n
	out := make([]aggregate.SelfDuplicate, len(dups))
	for i, d := range dups {
		d.Record = filled[i]
		out[i] = d
	}
	return out
}

func (e *Engine) cachedResponse(ctx context.Context, key string) (Body, bool) {
	var body Body
	b, ok, err := e.deps.Store.Get(ctx, key)
	if err != nil {
		log.Debug().Err(err).Msg("response cache read failed")
	}
	if err != nil || !ok {
		metrics.CacheLookups.WithLabelValues("response", "miss").Inc()
		return body, false
	}
	if err := json.Unmarshal(b, &body); err != nil {
		log.Debug().Err(err).Msg("discarding unreadable cached response")
		metrics.CacheLookups.WithLabelValues("response", "miss").Inc()
		return Body{}, false
	}
	metrics.CacheLookups.WithLabelValues("response", "hit").Inc()
	return body, true
}

func (e *Engine) storeResponse(ctx context.Context, key string, body Body) {
	b, err := json.Marshal(body)
	if err != nil {
		log.Debug().Err(err).Msg("response not cacheable")
		return
	}
	ttl := e.cfg.ResponseTTL
	e.deps.Spawner.Go(ctx, "cache.response", func(ctx context.Context) error {
		return e.deps.Store.Set(ctx, key, b, ttl)
	})
}

func (e *Engine) bumpPopularity(ctx context.Context, key string) {
	ttl := e.cfg.PopularityTTL
	e.deps.Spawner.Go(ctx, "cache.popularity", func(ctx context.Context) error {
		_, err := e.deps.Store.Incr(ctx, PopularityKeyPrefix+strings.TrimPrefix(key, ResponseKeyPrefix), ttl)
		return err
	})
}
