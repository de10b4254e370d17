package wordlist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mietzen/catch-all-autofill/internal/models"
	"github.com/mietzen/catch-all-autofill/internal/shared"
	"golang.org/x/sync/singleflight"
)

const (
	// LocalKeyPrefix namespaces durable entries for bundled locales.
	LocalKeyPrefix = "local_wordlist_"

	// CustomKeyPrefix namespaces durable entries for custom URLs.
	CustomKeyPrefix = "wordlist_"

	digestLength = 20

	// FallbackTTL is how long a selector that fell back keeps being served the fallback pool
	// before its source is tried again.
	FallbackTTL = time.Minute
)

// CacheKey returns the durable key for sel. Custom URLs are keyed by a truncated SHA-256 digest.
func CacheKey(sel models.Selector) string {
	if sel.IsCustom() {
		sum := sha256.Sum256([]byte(sel.URL))
		return CustomKeyPrefix + hex.EncodeToString(sum[:])[:digestLength]
	}
	return LocalKeyPrefix + sel.Code
}

// Store is the durable tier. [repositories.KVRepository] satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Fetcher produces a pool for a selector. [Source] satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, sel models.Selector) (*Pool, error)
}

type slot struct {
	selector models.Selector
	result   Result
	expires  time.Time
}

// Result is a loaded pool and the selector that produced it.
type Result struct {
	Pool     *Pool
	Selector models.Selector

	// Cause is the source error when Selector is the fallback instead of the requested one.
	Cause error
}

// FellBack reports whether the requested selector failed and the fallback was served.
func (r Result) FellBack() bool { return r.Cause != nil }

// Cache is the two-tier wordlist cache.
//
// Tier 1 is a single in-memory slot holding the last loaded selector. Tier 2 is the
// durable store. Concurrent misses for the same selector share one load.
type Cache struct {
	source   Fetcher
	store    Store
	fallback models.Selector
	minSize  int
	logger   *log.Logger

	group singleflight.Group
	mu    sync.Mutex
	last  *slot
	now   func() time.Time
}

// NewCache creates a cache that falls back to the fallback locale when a source fails.
func NewCache(source Fetcher, store Store, fallback models.Selector, minSize int, logger *log.Logger) *Cache {
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	return &Cache{
		source:   source,
		store:    store,
		fallback: fallback,
		minSize:  minSize,
		logger:   logger,
		now:      time.Now,
	}
}

// Load returns the pool for sel, or the fallback pool when sel could not be loaded.
// Use [Cache.Resolve] to learn which one was served.
func (c *Cache) Load(ctx context.Context, sel models.Selector, force bool) (*Pool, error) {
	res, err := c.Resolve(ctx, sel, force)
	if err != nil {
		return nil, err
	}
	return res.Pool, nil
}

// Resolve loads sel and reports the selector actually served.
//
// Without force it checks the in-memory slot, then the durable store, then the source.
// With force it goes straight to the source and, if that fails, drops the stale durable
// entry. Either way a failed source falls back to the fallback locale and the slot keeps
// serving that fallback for sel until [FallbackTTL] passes. The error wraps
// [shared.ErrNoWordlist] only when both fail.
func (c *Cache) Resolve(ctx context.Context, sel models.Selector, force bool) (Result, error) {
	if !force {
		if res, ok := c.remembered(sel); ok {
			return res, nil
		}
	}

	key := CacheKey(sel)
	if force {
		key += "|force"
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.load(ctx, sel, force)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// Clear empties the in-memory slot.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = nil
}

// ClearDurable removes every durable wordlist entry and leaves other keys alone.
func (c *Cache) ClearDurable(ctx context.Context) (int, error) {
	total := 0
	for _, prefix := range []string{LocalKeyPrefix, CustomKeyPrefix} {
		n, err := c.store.DeletePrefix(ctx, prefix)
		if err != nil {
			return total, err
		}
		total += n
	}
	c.logger.Info("durable wordlist cache cleared", "entries", total)
	return total, nil
}

// Keys lists the durable wordlist entries.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	for _, prefix := range []string{LocalKeyPrefix, CustomKeyPrefix} {
		k, err := c.store.Keys(ctx, prefix)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k...)
	}
	return keys, nil
}

// Fallback returns the selector used when a source fails.
func (c *Cache) Fallback() models.Selector { return c.fallback }

func (c *Cache) load(ctx context.Context, sel models.Selector, force bool) (Result, error) {
	if !force {
		if pool := c.readDurable(ctx, sel); pool != nil {
			return c.remember(sel, Result{Pool: pool, Selector: sel}), nil
		}
	}

	pool, err := c.source.Fetch(ctx, sel)
	if err == nil {
		c.persist(ctx, sel, pool)
		return c.remember(sel, Result{Pool: pool, Selector: sel}), nil
	}

	if force {
		c.forget(ctx, sel)
	}

	if sel == c.fallback {
		return Result{}, fmt.Errorf("%w: %w", shared.ErrNoWordlist, err)
	}

	c.logger.Warn("wordlist source failed, using fallback", "selector", sel.String(), "fallback", c.fallback.String(), "err", err)

	fallback := c.readDurable(ctx, c.fallback)
	if fallback == nil {
		var fbErr error
		fallback, fbErr = c.source.Fetch(ctx, c.fallback)
		if fbErr != nil {
			return Result{}, fmt.Errorf("%w: %w", shared.ErrNoWordlist, errors.Join(err, fbErr))
		}
		c.persist(ctx, c.fallback, fallback)
	}

	return c.remember(sel, Result{Pool: fallback, Selector: c.fallback, Cause: err}), nil
}

func (c *Cache) remembered(sel models.Selector) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil || c.last.selector != sel {
		return Result{}, false
	}
	if c.last.result.FellBack() && !c.now().Before(c.last.expires) {
		return Result{}, false
	}
	return c.last.result, true
}

func (c *Cache) remember(sel models.Selector, res Result) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = &slot{selector: sel, result: res}
	if res.FellBack() {
		c.last.expires = c.now().Add(FallbackTTL)
	}
	return res
}

func (c *Cache) readDurable(ctx context.Context, sel models.Selector) *Pool {
	key := CacheKey(sel)

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			c.logger.Warn("durable wordlist read failed", "key", key, "err", err)
		}
		return nil
	}

	var words []string
	if err := json.Unmarshal(raw, &words); err != nil {
		c.logger.Warn("discarding corrupt durable wordlist", "key", key, "err", err)
		_ = c.store.Delete(ctx, key)
		return nil
	}

	pool, err := NewPool(words, c.minSize)
	if err != nil {
		c.logger.Warn("discarding invalid durable wordlist", "key", key, "err", err)
		_ = c.store.Delete(ctx, key)
		return nil
	}
	return pool
}

func (c *Cache) persist(ctx context.Context, sel models.Selector, pool *Pool) {
	key := CacheKey(sel)

	raw, err := json.Marshal(pool.words)
	if err == nil {
		err = c.store.Set(ctx, key, raw)
	}
	if err != nil {
		c.logger.Warn("failed to persist wordlist", "key", key, "err", err)
	}
}

func (c *Cache) forget(ctx context.Context, sel models.Selector) {
	c.mu.Lock()
	if c.last != nil && c.last.selector == sel {
		c.last = nil
	}
	c.mu.Unlock()

	if err := c.store.Delete(ctx, CacheKey(sel)); err != nil {
		c.logger.Warn("failed to drop stale wordlist", "selector", sel.String(), "err", err)
	}
}

// SelectorFunc reports the selector currently in effect.
type SelectorFunc func(ctx context.Context) (models.Selector, error)

// Current binds a cache to whatever selector is active when words are requested.
type Current struct {
	cache    *Cache
	selector SelectorFunc
}

// For returns a word source that resolves the selector on every call.
func (c *Cache) For(selector SelectorFunc) *Current {
	return &Current{cache: c, selector: selector}
}

// Words loads the pool for the active selector without forcing a reload.
func (cur *Current) Words(ctx context.Context) (*Pool, error) {
	sel, err := cur.selector(ctx)
	if err != nil {
		return nil, err
	}
	return cur.cache.Load(ctx, sel, false)
}
