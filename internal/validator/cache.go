package validator

import (
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/firefly-engineering/fixture-ctl/internal/logging"
	"github.com/firefly-engineering/fixture-ctl/internal/manifest"
)

const (
	// DefaultCacheTTL is how long a valid result stays cached.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheSize bounds the number of cached results.
	DefaultCacheSize = 256
)

// CacheKey identifies one observed state of a fixture.
type CacheKey struct {
	Dir          string
	FixtureID    string
	Checksum     string
	SnapshotSize int64
	SnapshotMod  time.Time

	// SnapshotInode and SnapshotChange come from the inode. They are zero
	// on platforms that do not expose them.
	SnapshotInode  uint64
	SnapshotChange time.Time
}

// Cache holds a bounded number of validation results for a bounded time.
type Cache struct {
	lru *expirable.LRU[CacheKey, *ValidationResult]
}

// NewCache creates a cache holding at most size entries, each expiring
// after ttl.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{lru: expirable.NewLRU[CacheKey, *ValidationResult](size, nil, ttl)}
}

// Get returns the cached result for key if it has not expired.
func (c *Cache) Get(key CacheKey) (*ValidationResult, bool) {
	return c.lru.Get(key)
}

// Put stores r under key, evicting the least recently used entry when full.
func (c *Cache) Put(key CacheKey, r *ValidationResult) {
	c.lru.Add(key, r)
}

// Invalidate drops every entry for a fixture directory.
func (c *Cache) Invalidate(dir string) {
	dir = filepath.Clean(dir)
	for _, k := range c.lru.Keys() {
		if k.Dir == dir {
			c.lru.Remove(k)
		}
	}
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// CachedValidator wraps a Validator with a Cache. The cache key is derived
// from the manifest and the snapshot's size, mtime, inode and ctime on every
// call, so an edited fixture always misses. Only valid results are cached.
type CachedValidator struct {
	validator *Validator
	cache     *Cache
}

// NewCachedValidator returns a CachedValidator. A nil v uses a new Validator.
func NewCachedValidator(v *Validator, ttl time.Duration) *CachedValidator {
	if v == nil {
		v = New()
	}
	return &CachedValidator{validator: v, cache: NewCache(DefaultCacheSize, ttl)}
}

// Cache returns the underlying cache.
func (c *CachedValidator) Cache() *Cache {
	return c.cache
}

// ValidateFixture returns a cached valid result when the fixture is
// unchanged, otherwise runs a full validation.
func (c *CachedValidator) ValidateFixture(dir string) *ValidationResult {
	key, ok := c.keyFor(dir)
	if !ok {
		return c.validator.ValidateFixture(dir)
	}

	if r, hit := c.cache.Get(key); hit {
		logging.Debug("validation cache hit", "dir", dir, "fixture", key.FixtureID)
		return r
	}

	r := c.validator.ValidateFixture(dir)
	if r.Valid {
		c.cache.Put(key, r)
	}
	return r
}

func (c *CachedValidator) keyFor(dir string) (CacheKey, bool) {
	m, err := manifest.Read(dir)
	if err != nil {
		return CacheKey{}, false
	}
	snapshot, err := manifest.SnapshotPath(dir, m)
	if err != nil {
		return CacheKey{}, false
	}
	info, err := os.Stat(snapshot)
	if err != nil {
		return CacheKey{}, false
	}
	key := CacheKey{
		Dir:          filepath.Clean(dir),
		FixtureID:    m.FixtureID,
		Checksum:     m.Checksum,
		SnapshotSize: info.Size(),
		SnapshotMod:  info.ModTime(),
	}
	if id, ok := fileIdentity(snapshot); ok {
		key.SnapshotInode = id.inode
		key.SnapshotChange = id.changed
	}
	return key, true
}
