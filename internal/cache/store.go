package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Store is the key-value capability shared by the response cache, the
// per-source cache and the health registry. Callers treat every error as a
// miss; the pipeline behaves the same whether a store is up or down.
type Store interface {
	// Get returns the value and true on a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for ttl; ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Incr atomically increments an integer counter and returns the new value.
	// A new counter expires after ttl; ttl <= 0 means no expiry.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// KeyFrom builds a stable hashed key under prefix from the given parts.
func KeyFrom(prefix string, parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return prefix + hex.EncodeToString(h[:])
}
