package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// fileEntry is the on-disk envelope for a FileStore value.
type fileEntry struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	SavedAt   time.Time `json:"saved_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// FileStore keeps entries as <sha256(key)>.json files under Dir. It gives a
// single host persistence across restarts without running Redis.
type FileStore struct {
	Dir string
	// StrictPerms, when true, enforces 0700 on the directory and 0600 on files.
	StrictPerms bool

	mu sync.Mutex
}

func (c *FileStore) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	perm := os.FileMode(0o755)
	if c.StrictPerms {
		perm = 0o700
	}
	if err := os.MkdirAll(c.Dir, perm); err != nil {
		return err
	}
	if c.StrictPerms {
		if info, err := os.Stat(c.Dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(c.Dir, 0o700)
		}
	}
	return nil
}

func (c *FileStore) pathFor(key string) string {
	h := sha256.Sum256([]byte(key))
	return filepath.Join(c.Dir, hex.EncodeToString(h[:])+".json")
}

func (c *FileStore) load(key string) (fileEntry, bool) {
	var e fileEntry
	b, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		return e, false
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return e, false
	}
	if !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt) {
		_ = os.Remove(c.pathFor(key))
		return e, false
	}
	return e, true
}

func (c *FileStore) save(e fileEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if c.StrictPerms {
		mode = 0o600
	}
	p := c.pathFor(e.Key)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, mode); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func (c *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := c.ensureDir(); err != nil {
		return nil, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.load(key)
	if !ok {
		return nil, false, nil
	}
	// Touch mtime on access so PurgeByAge behaves like LRU.
	now := time.Now()
	_ = os.Chtimes(c.pathFor(key), now, now)
	return e.Value, true, nil
}

func (c *FileStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := fileEntry{Key: key, Value: value, SavedAt: time.Now().UTC()}
	if ttl > 0 {
		e.ExpiresAt = e.SavedAt.Add(ttl)
	}
	return c.save(e)
}

func (c *FileStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if err := c.ensureDir(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC()
	e, ok := c.load(key)
	if !ok {
		e = fileEntry{Key: key}
		if ttl > 0 {
			e.ExpiresAt = now.Add(ttl)
		}
	}
	n, _ := strconv.ParseInt(string(e.Value), 10, 64)
	n++
	e.Value = []byte(strconv.FormatInt(n, 10))
	e.SavedAt = now
	if err := c.save(e); err != nil {
		return 0, err
	}
	return n, nil
}
