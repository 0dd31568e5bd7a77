package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/copyfinder/internal/budget"
	"github.com/hyperifyio/copyfinder/internal/health"
	"github.com/hyperifyio/copyfinder/internal/metrics"
	"github.com/hyperifyio/copyfinder/internal/planner"
	"github.com/hyperifyio/copyfinder/internal/search"
	"github.com/hyperifyio/copyfinder/internal/tweet"
)

// queryPrimary tries the primary source's instances in health order until one
// answers. It returns the results and the source name, or nil when every
// instance failed or none was tried.
func (e *Engine) queryPrimary(ctx context.Context, v planner.Variant, dl budget.Deadline, meta *Meta) ([]tweet.Record, string) {
	p := e.deps.Primary
	if p == nil {
		return nil, ""
	}
	name := p.Name()
	if resp, ok := e.sourceCacheGet(ctx, name, v.Query); ok {
		meta.attempt(name, false, true)
		if resp.Instance != "" {
			meta.Instance = resp.Instance
		}
		return resp.Results, name
	}

	instances := p.Instances()
	cands := make([]health.Candidate, 0, len(instances))
	for i, inst := range instances {
		cands = append(cands, health.Candidate{Name: inst, Priority: i, State: e.healthState(ctx, instanceKey(name, inst))})
	}
	for _, c := range health.Prioritize(cands, e.deps.Now()) {
		if dl.Expired() {
			meta.DeadlineHit = true
			break
		}
		timeout := budget.Cap(e.cfg.PrimaryTimeout, dl.Remaining())
		hkey := instanceKey(name, c.Name)
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		t0 := time.Now()
		resp, err := p.SearchInstance(callCtx, c.Name, v.Query, search.Options{Timeout: timeout})
		cancel()
		metrics.SourceLatency.WithLabelValues(name).Observe(time.Since(t0).Seconds())
		if err != nil {
			meta.attempt(name, true, false)
			metrics.SourceCalls.WithLabelValues(name, "error").Inc()
			log.Warn().Err(err).Str("source", name).Str("instance", c.Name).Str("variant", v.Key).Msg("primary instance failed")
			e.recordHealth(ctx, hkey, err)
			continue
		}
		meta.attempt(name, false, false)
		metrics.SourceCalls.WithLabelValues(name, outcomeOf(resp)).Inc()
		e.recordHealth(ctx, hkey, nil)
		if resp.Instance == "" {
			resp.Instance = c.Name
		}
		meta.Instance = resp.Instance
		e.sourceCachePut(ctx, name, v.Query, resp)
		return resp.Results, name
	}
	return nil, ""
}

type fallbackOutcome struct {
	name   string
	resp   search.Response
	err    error
	cached bool
}

// queryFallbacks runs fallback sources in health-ordered batches. Members of
// a batch race; the first to answer with at least one result wins and later
// batches are skipped. Members still running when a winner is found finish
// in the background and only update health and the source cache.
func (e *Engine) queryFallbacks(ctx context.Context, v planner.Variant, dl budget.Deadline, meta *Meta, failures map[string]int) ([]tweet.Record, string) {
	if len(e.deps.Fallbacks) == 0 {
		return nil, ""
	}
	byName := make(map[string]search.Client, len(e.deps.Fallbacks))
	cands := make([]health.Candidate, 0, len(e.deps.Fallbacks))
	for i, c := range e.deps.Fallbacks {
		name := c.Name()
		if _, dup := byName[name]; dup {
			continue
		}
		byName[name] = c
		cands = append(cands, health.Candidate{Name: name, Priority: i, State: e.healthState(ctx, name)})
	}
	ordered := health.Prioritize(cands, e.deps.Now())

	for start := 0; start < len(ordered); start += e.cfg.BatchSize {
		if dl.Expired() || ctx.Err() != nil {
			meta.DeadlineHit = true
			break
		}
		end := start + e.cfg.BatchSize
		if end > len(ordered) {
			end = len(ordered)
		}
		outcomes := e.startBatch(ctx, v, ordered[start:end], byName, dl, failures)

		pending := end - start
		for pending > 0 {
			var o fallbackOutcome
			select {
			case o = <-outcomes:
			case <-ctx.Done():
				meta.DeadlineHit = true
				go e.settleLate(ctx, v, outcomes, pending)
				return nil, ""
			}
			pending--
			switch {
			case o.cached:
				meta.attempt(o.name, false, true)
			case o.err != nil:
				meta.attempt(o.name, true, false)
				failures[o.name]++
			default:
				meta.attempt(o.name, false, false)
			}
			e.settleFallback(ctx, v, o)
			if o.err == nil && len(o.resp.Results) > 0 {
				if pending > 0 {
					go e.settleLate(ctx, v, outcomes, pending)
				}
				return o.resp.Results, o.name
			}
		}
	}
	return nil, ""
}

// startBatch launches every member of batch and returns the channel their
// outcomes arrive on, in completion order. Calls are detached from ctx
// cancellation and bounded by their own timeout, so a member that loses
// the race still reports its health.
func (e *Engine) startBatch(ctx context.Context, v planner.Variant, batch []health.Candidate, byName map[string]search.Client, dl budget.Deadline, failures map[string]int) <-chan fallbackOutcome {
	outcomes := make(chan fallbackOutcome, len(batch))
	callBase := context.WithoutCancel(ctx)
	for _, c := range batch {
		c := c
		client := byName[c.Name]
		timeout := budget.AdaptiveTimeout(e.cfg.FallbackTimeout, c.State.Score, failures[c.Name], e.cfg.MinTimeout, dl.Remaining())
		go func() {
			out := fallbackOutcome{name: c.Name}
			if resp, ok := e.sourceCacheGet(ctx, c.Name, v.Query); ok {
				out.resp, out.cached = resp, true
			} else {
				callCtx, cancel := context.WithTimeout(callBase, timeout)
				t0 := time.Now()
				out.resp, out.err = client.Search(callCtx, v.Query, search.Options{Timeout: timeout})
				cancel()
				metrics.SourceLatency.WithLabelValues(c.Name).Observe(time.Since(t0).Seconds())
			}
			outcomes <- out
		}()
	}
	return outcomes
}

// settleFallback records metrics, health and the source cache for one
// finished member.
func (e *Engine) settleFallback(ctx context.Context, v planner.Variant, o fallbackOutcome) {
	switch {
	case o.cached:
	case o.err != nil:
		metrics.SourceCalls.WithLabelValues(o.name, "error").Inc()
		log.Warn().Err(o.err).Str("source", o.name).Str("variant", v.Key).Msg("fallback source failed")
		e.recordHealth(ctx, o.name, o.err)
	default:
		metrics.SourceCalls.WithLabelValues(o.name, outcomeOf(o.resp)).Inc()
		e.recordHealth(ctx, o.name, nil)
		e.sourceCachePut(ctx, o.name, v.Query, o.resp)
	}
}

// settleLate drains members that were still running when the request moved
// on.
func (e *Engine) settleLate(ctx context.Context, v planner.Variant, outcomes <-chan fallbackOutcome, pending int) {
	for ; pending > 0; pending-- {
		e.settleFallback(ctx, v, <-outcomes)
	}
}

func outcomeOf(resp search.Response) string {
	if len(resp.Results) == 0 {
		return "empty"
	}
	return "ok"
}

func instanceKey(source, instance string) string {
	return source + ":" + instance
}

// healthState reads health; store errors read as a neutral state.
func (e *Engine) healthState(ctx context.Context, key string) health.State {
	s, err := e.deps.Health.Get(ctx, key)
	if err != nil {
		log.Debug().Err(err).Str("source", key).Msg("health read failed")
		return health.State{}
	}
	return s
}

// recordHealth submits a detached health update; a nil cause is a success.
func (e *Engine) recordHealth(ctx context.Context, key string, cause error) {
	store := e.deps.Health
	e.deps.Spawner.Go(ctx, "health."+key, func(ctx context.Context) error {
		var s health.State
		var err error
		if cause == nil {
			s, err = store.RecordSuccess(ctx, key)
		} else {
			s, err = store.RecordFailure(ctx, key, cause)
		}
		if err == nil {
			metrics.HealthScore.WithLabelValues(key).Set(float64(s.Score))
		}
		return err
	})
}

func (e *Engine) sourceCacheGet(ctx context.Context, source, query string) (search.Response, bool) {
	var resp search.Response
	if e.cfg.DisableCache {
		return resp, false
	}
	b, ok, err := e.deps.Store.Get(ctx, SourceKey(source, query))
	if err != nil {
		log.Debug().Err(err).Str("source", source).Msg("source cache read failed")
	}
	if err != nil || !ok || json.Unmarshal(b, &resp) != nil {
		metrics.CacheLookups.WithLabelValues("source", "miss").Inc()
		return search.Response{}, false
	}
	metrics.CacheLookups.WithLabelValues("source", "hit").Inc()
	metrics.SourceCalls.WithLabelValues(source, "cache").Inc()
	return resp, true
}

func (e *Engine) sourceCachePut(ctx context.Context, source, query string, resp search.Response) {
	if e.cfg.DisableCache {
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	ttl := e.cfg.SourceTTL
	e.deps.Spawner.Go(ctx, "cache.source."+source, func(ctx context.Context) error {
		return e.deps.Store.Set(ctx, SourceKey(source, query), b, ttl)
	})
}
