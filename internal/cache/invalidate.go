package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ClearDir deletes every FileStore entry in dir, including leftover temp
// files, and leaves the directory in place. Other files are not touched.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	_, err := sweep(dir, func(string, os.FileInfo) bool { return true })
	return err
}

// PurgeByAge removes FileStore entries that were not read or written within
// maxAge, or whose TTL has run out. Reads refresh the mtime, so recently
// used entries survive. A missing dir is not an error.
func PurgeByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now()
	return sweep(dir, func(path string, info os.FileInfo) bool {
		if now.Sub(info.ModTime()) > maxAge {
			return true
		}
		return expiredEntry(path, now)
	})
}

// sweep removes the entries of the flat store dir selected by drop.
func sweep(dir string, drop func(path string, info os.FileInfo) bool) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.tmp")) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, name)
		if !drop(path, info) {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed, nil
}

func expiredEntry(path string, now time.Time) bool {
	b, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var e fileEntry
	if json.Unmarshal(b, &e) != nil {
		return false
	}
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}
