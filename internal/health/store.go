package health

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/copyfinder/internal/cache"
)

// Store persists health per source or instance name.
type Store interface {
	Get(ctx context.Context, name string) (State, error)
	RecordSuccess(ctx context.Context, name string) (State, error)
	RecordFailure(ctx context.Context, name string, cause error) (State, error)
}

// Memory is an in-process Store.
type Memory struct {
	Policy Policy
	Now    func() time.Time

	mu     sync.Mutex
	states map[string]State
}

// NewMemory returns an empty in-memory registry.
func NewMemory(p Policy) *Memory {
	return &Memory{Policy: p, states: map[string]State{}}
}

func (m *Memory) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Memory) Get(_ context.Context, name string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[name], nil
}

func (m *Memory) RecordSuccess(_ context.Context, name string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states == nil {
		m.states = map[string]State{}
	}
	s := m.states[name].Succeed(m.now())
	m.states[name] = s
	return s, nil
}

func (m *Memory) RecordFailure(_ context.Context, name string, cause error) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states == nil {
		m.states = map[string]State{}
	}
	s := m.states[name].Fail(m.now(), cause, m.Policy)
	m.states[name] = s
	return s, nil
}

// KeyPrefix namespaces health entries in a shared cache.Store.
const KeyPrefix = "copyfinder:health:v1:"

// stateTTL bounds how long an untouched entry lingers in the shared store.
const stateTTL = 24 * time.Hour

// KV keeps health in a cache.Store so scores survive restarts and are shared
// between processes. Updates are read-modify-write without a transaction;
// concurrent writers may lose an update, which only blurs an advisory score.
type KV struct {
	Store  cache.Store
	Policy Policy
	Now    func() time.Time
}

func (k *KV) now() time.Time {
	if k.Now != nil {
		return k.Now()
	}
	return time.Now()
}

func (k *KV) Get(ctx context.Context, name string) (State, error) {
	var s State
	b, ok, err := k.Store.Get(ctx, KeyPrefix+name)
	if err != nil || !ok {
		return s, err
	}
	if err := json.Unmarshal(b, &s); err != nil {
		log.Debug().Err(err).Str("source", name).Msg("health: discarding unreadable state")
		return State{}, nil
	}
	return s, nil
}

func (k *KV) put(ctx context.Context, name string, s State) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return k.Store.Set(ctx, KeyPrefix+name, b, stateTTL)
}

func (k *KV) RecordSuccess(ctx context.Context, name string) (State, error) {
	cur, _ := k.Get(ctx, name)
	s := cur.Succeed(k.now())
	return s, k.put(ctx, name, s)
}

func (k *KV) RecordFailure(ctx context.Context, name string, cause error) (State, error) {
	cur, _ := k.Get(ctx, name)
	s := cur.Fail(k.now(), cause, k.Policy)
	return s, k.put(ctx, name, s)
}
