// Package detach runs fire-and-forget side effects such as cache writes and
// health updates. A submitted task never blocks its caller and its error
// never reaches the request path; failures are logged and dropped.
package detach

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Task is a unit of detached work.
type Task func(ctx context.Context) error

// Spawner accepts detached tasks.
type Spawner interface {
	Go(ctx context.Context, name string, task Task)
}

// DefaultTimeout bounds a detached task when Pool.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// Pool runs each task on its own goroutine with a context that survives the
// caller's cancellation but is bounded by Timeout.
type Pool struct {
	Timeout time.Duration

	wg sync.WaitGroup
}

func (p *Pool) Go(ctx context.Context, name string, task Task) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		run(tctx, name, task)
	}()
}

// Wait blocks until every submitted task has finished or ctx is done.
func (p *Pool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inline runs tasks synchronously on the calling goroutine. Errors are still
// swallowed.
type Inline struct{}

func (Inline) Go(ctx context.Context, name string, task Task) {
	if ctx == nil {
		ctx = context.Background()
	}
	run(context.WithoutCancel(ctx), name, task)
}

func run(ctx context.Context, name string, task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("task", name).Interface("panic", r).Msg("detached task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		log.Debug().Err(err).Str("task", name).Msg("detached task failed")
	}
}
