// Package search holds the upstream source clients. Every client converts
// its upstream format into tweet.Record at this boundary; absent stats are
// zero and absent dates are tweet.UnknownDate.
package search

import (
	"context"
	"errors"
	"time"

	"github.com/hyperifyio/copyfinder/internal/tweet"
)

// ErrNoInstances is returned by a mirror client with no configured instances.
var ErrNoInstances = errors.New("no instances configured")

// Options bound a single upstream call.
type Options struct {
	Timeout time.Duration
}

// Response is what one upstream call produced.
type Response struct {
	Results []tweet.Record `json:"results"`
	// Instance names the mirror that answered, when the source has several.
	Instance string `json:"instance,omitempty"`
}

// Client is a single-endpoint source. Search returns an error on any
// upstream failure; an empty Results slice is a successful "no matches".
type Client interface {
	Name() string
	Search(ctx context.Context, query string, opt Options) (Response, error)
}

// MirrorClient is a source served by several interchangeable instances whose
// health is tracked separately.
type MirrorClient interface {
	Name() string
	Instances() []string
	SearchInstance(ctx context.Context, instance, query string, opt Options) (Response, error)
}

// Detail is the authoritative metadata for one tweet.
type Detail struct {
	Author  tweet.Author
	Content string
	Date    string
	Stats   tweet.Stats
}

// DetailClient looks up a single tweet by id.
type DetailClient interface {
	Name() string
	Lookup(ctx context.Context, id string, opt Options) (Detail, error)
}

// Getter is the HTTP capability adapters need; *fetch.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

func withTimeout(ctx context.Context, opt Options) (context.Context, context.CancelFunc) {
	if opt.Timeout > 0 {
		return context.WithTimeout(ctx, opt.Timeout)
	}
	return context.WithCancel(ctx)
}
