// Package backfill fills missing engagement stats and dates from detail
// lookups, fast client first and heavy client second.
package backfill

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/copyfinder/internal/metrics"
	"github.com/hyperifyio/copyfinder/internal/search"
	"github.com/hyperifyio/copyfinder/internal/tweet"
)

// Options configure a Backfiller. Zero values take defaults.
type Options struct {
	// Concurrency is the number of parallel lookup workers. Default 4.
	Concurrency int
	// Timeout bounds each single lookup. Default 3s.
	Timeout time.Duration
	// BreakerFailures consecutive heavy failures open the breaker. Default 5.
	BreakerFailures uint32
	// BreakerCooldown is how long the open breaker rejects calls. Default 30s.
	BreakerCooldown time.Duration
}

// Backfiller looks up tweets by id and merges what it finds.
type Backfiller struct {
	fast    search.DetailClient
	heavy   search.DetailClient
	opt     Options
	breaker *gobreaker.CircuitBreaker
}

// New builds a Backfiller. Either client may be nil.
func New(fast, heavy search.DetailClient, opt Options) *Backfiller {
	if opt.Concurrency <= 0 {
		opt.Concurrency = 4
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 3 * time.Second
	}
	if opt.BreakerFailures == 0 {
		opt.BreakerFailures = 5
	}
	if opt.BreakerCooldown <= 0 {
		opt.BreakerCooldown = 30 * time.Second
	}
	b := &Backfiller{fast: fast, heavy: heavy, opt: opt}
	if heavy != nil {
		failures := opt.BreakerFailures
		b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "backfill-" + heavy.Name(),
			MaxRequests: 1,
			Timeout:     opt.BreakerCooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				metrics.BreakerState.WithLabelValues(name).Set(float64(to))
				log.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("backfill breaker state change")
			},
		})
	}
	return b
}

// NeedsBackfill reports whether r lacks engagement stats or a real date.
func NeedsBackfill(r tweet.Record) bool {
	return !r.Stats.Any() || !r.HasDate()
}

// Fill returns a copy of records in which up to maxItems records needing
// backfill were enriched, and the number of records that changed. Records
// sharing an id are looked up once. Lookup failures leave records as they
// were.
func (b *Backfiller) Fill(ctx context.Context, records []tweet.Record, maxItems int) ([]tweet.Record, int) {
	out := append([]tweet.Record(nil), records...)
	if b == nil || maxItems <= 0 || (b.fast == nil && b.heavy == nil) {
		return out, 0
	}
	var targets []int
	var ids []string
	seen := map[string]bool{}
	for i, r := range out {
		if len(targets) >= maxItems {
			break
		}
		id := r.ID()
		if id == "" || !NeedsBackfill(r) {
			continue
		}
		targets = append(targets, i)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return out, 0
	}

	var mu sync.Mutex
	details := make(map[string]search.Detail, len(ids))
	var g errgroup.Group
	g.SetLimit(b.opt.Concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			d, err := b.lookup(ctx, id)
			if err != nil {
				log.Debug().Err(err).Str("id", id).Msg("backfill lookup failed")
				return nil
			}
			mu.Lock()
			details[id] = d
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	changed := 0
	for _, i := range targets {
		d, ok := details[out[i].ID()]
		if !ok {
			continue
		}
		merged, did := Merge(out[i], d)
		if did {
			out[i] = merged
			changed++
		}
	}
	return out, changed
}

func (b *Backfiller) lookup(ctx context.Context, id string) (search.Detail, error) {
	var errs []error
	if b.fast != nil {
		d, err := b.fast.Lookup(ctx, id, search.Options{Timeout: b.opt.Timeout})
		if err == nil {
			metrics.BackfillLookups.WithLabelValues(b.fast.Name(), "ok").Inc()
			return d, nil
		}
		metrics.BackfillLookups.WithLabelValues(b.fast.Name(), "error").Inc()
		errs = append(errs, err)
	}
	if b.heavy != nil {
		v, err := b.breaker.Execute(func() (interface{}, error) {
			return b.heavy.Lookup(ctx, id, search.Options{Timeout: b.opt.Timeout})
		})
		if err == nil {
			metrics.BackfillLookups.WithLabelValues(b.heavy.Name(), "ok").Inc()
			return v.(search.Detail), nil
		}
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
		}
		metrics.BackfillLookups.WithLabelValues(b.heavy.Name(), outcome).Inc()
		errs = append(errs, err)
	}
	return search.Detail{}, errors.Join(errs...)
}

// Merge copies fetched values into r only where r holds a zero or a
// placeholder. Existing data is never overwritten.
func Merge(r tweet.Record, d search.Detail) (tweet.Record, bool) {
	changed := false
	fill := func(dst *int, v int) {
		if *dst == 0 && v != 0 {
			*dst = v
			changed = true
		}
	}
	fill(&r.Stats.Replies, d.Stats.Replies)
	fill(&r.Stats.Retweets, d.Stats.Retweets)
	fill(&r.Stats.Quotes, d.Stats.Quotes)
	fill(&r.Stats.Likes, d.Stats.Likes)
	fill(&r.Stats.Views, d.Stats.Views)
	fill(&r.Stats.Bookmarks, d.Stats.Bookmarks)
	if !r.HasDate() && !tweet.IsPlaceholderDate(d.Date) {
		r.Date = d.Date
		changed = true
	}
	if r.Author.Avatar == "" && d.Author.Avatar != "" {
		r.Author.Avatar = d.Author.Avatar
		changed = true
	}
	if r.Author.Fullname == "" && d.Author.Fullname != "" {
		r.Author.Fullname = d.Author.Fullname
		changed = true
	}
	if r.Content == "" && d.Content != "" {
		r.Content = d.Content
		changed = true
	}
	return r, changed
}
