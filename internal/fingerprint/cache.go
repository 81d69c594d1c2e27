package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/lesleslie/session-buddy/internal/port/cache"
)

// CachingComputer memoizes Compute behind a cache.Cache port, so repeated
// fingerprinting of the same content (e.g. re-assigning a memory that was
// already scored once) skips the n-gram shingling and hashing pass.
type CachingComputer struct {
	cache cache.Cache
}

// NewCachingComputer wraps store behind the fingerprint cache. A nil store
// makes Compute fall back to the uncached path.
func NewCachingComputer(store cache.Cache) *CachingComputer {
	return &CachingComputer{cache: store}
}

// Compute returns the MinHash signature for text, consulting the cache
// first and populating it on a miss.
func (c *CachingComputer) Compute(ctx context.Context, text string) (Signature, error) {
	if c.cache == nil {
		return Compute(text), nil
	}

	key := cacheKey(text)
	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		if sig, err := Unmarshal(data); err == nil {
			return sig, nil
		}
	}

	sig := Compute(text)
	_ = c.cache.Set(ctx, key, Marshal(sig), 0)
	return sig, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "fingerprint:" + hex.EncodeToString(sum[:])
}
