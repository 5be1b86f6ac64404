package feature

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Key derives the cache identifier for a coordinate. Latitude and longitude
// are rounded to 5 decimal places (~1.1 m) so that physically close queries
// collapse to one entry and reuse a single synthetic sample.
func Key(lat, lon float64) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%.5f|%.5f", lat, lon))
	return fmt.Sprintf("%x", h)
}

// Cache is the read-or-absent store behind the resolver. Get returns the
// cached set only when a fresh entry exists; absence, corruption, and expiry
// are indistinguishable to the caller.
type Cache interface {
	Get(key string) (Set, bool)
	Put(key string, fs Set) error
}

// cacheRecord is the persisted cache entry layout.
type cacheRecord struct {
	Timestamp string `json:"timestamp"`
	Data      Set    `json:"data"`
}

// FileCache stores one JSON record per key under a directory.
type FileCache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// FileCacheOption configures a FileCache.
type FileCacheOption func(*FileCache)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) FileCacheOption {
	return func(c *FileCache) { c.now = now }
}

// NewFileCache creates a file-backed cache rooted at dir. The directory is
// created lazily on first write.
func NewFileCache(dir string, ttl time.Duration, opts ...FileCacheOption) *FileCache {
	c := &FileCache{dir: dir, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns the cached feature set for key if the entry exists, parses, and
// is younger than the TTL. Corrupt or unreadable entries are logged and
// treated as absent.
func (c *FileCache) Get(key string) (Set, bool) {
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("poi cache read failed", zap.String("key", shortKey(key)), zap.Error(err))
		}
		return nil, false
	}

	var rec cacheRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		zap.L().Warn("poi cache entry corrupt", zap.String("key", shortKey(key)), zap.Error(err))
		return nil, false
	}

	ts, err := time.Parse(time.RFC3339, rec.Timestamp)
	if err != nil {
		zap.L().Warn("poi cache timestamp corrupt", zap.String("key", shortKey(key)), zap.Error(err))
		return nil, false
	}

	if c.now().Sub(ts) >= c.ttl {
		return nil, false
	}

	zap.L().Debug("poi cache hit", zap.String("key", shortKey(key)))
	return rec.Data, true
}

// Put persists a feature set under key, stamped with the current time,
// overwriting any prior entry. The write goes through a temp file and rename
// so concurrent writers cannot leave a torn record.
func (c *FileCache) Put(key string, fs Set) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return eris.Wrap(err, "poicache: create dir")
	}

	raw, err := json.Marshal(cacheRecord{
		Timestamp: c.now().UTC().Format(time.RFC3339),
		Data:      fs,
	})
	if err != nil {
		return eris.Wrap(err, "poicache: marshal entry")
	}

	tmp, err := os.CreateTemp(c.dir, key+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "poicache: create temp file")
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return eris.Wrap(err, "poicache: write entry")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrap(err, "poicache: close temp file")
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrap(err, "poicache: rename entry")
	}
	return nil
}

// Purge deletes entries past the TTL, plus any that no longer parse. Returns
// the number of entries removed.
func (c *FileCache) Purge() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, eris.Wrap(err, "poicache: read dir")
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(c.dir, entry.Name())

		stale := false
		raw, err := os.ReadFile(path)
		if err != nil {
			stale = true
		} else {
			var rec cacheRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				stale = true
			} else if ts, err := time.Parse(time.RFC3339, rec.Timestamp); err != nil {
				stale = true
			} else if c.now().Sub(ts) >= c.ttl {
				stale = true
			}
		}

		if stale {
			if err := os.Remove(path); err != nil {
				zap.L().Warn("poi cache purge remove failed", zap.String("path", path), zap.Error(err))
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// MemCache is a map-backed Cache with the same TTL semantics, for tests and
// ephemeral runs.
type MemCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memEntry
}

type memEntry struct {
	at   time.Time
	data Set
}

// NewMemCache creates an in-memory cache with the given TTL.
func NewMemCache(ttl time.Duration, opts ...MemCacheOption) *MemCache {
	c := &MemCache{ttl: ttl, now: time.Now, entries: make(map[string]memEntry)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MemCacheOption configures a MemCache.
type MemCacheOption func(*MemCache)

// WithMemClock overrides the time source, for tests.
func WithMemClock(now func() time.Time) MemCacheOption {
	return func(c *MemCache) { c.now = now }
}

func (c *MemCache) Get(key string) (Set, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.at) >= c.ttl {
		return nil, false
	}
	return e.data.Clone(), true
}

func (c *MemCache) Put(key string, fs Set) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memEntry{at: c.now(), data: fs.Clone()}
	return nil
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
