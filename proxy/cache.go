package proxy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/dcwiz/appkit/cache"
)

// CacheKey serializes every argument to a canonical JSON form before
// hashing, so unhashable values such as nested structures key identically
// when they serialize identically.
func CacheKey(parts ...any) string {
	h := sha256.New()
	for _, part := range parts {
		b, err := json.Marshal(part)
		if err != nil {
			b = []byte(fmt.Sprint(part))
		}
		h.Write(b)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// entryTTL returns the configured TTL with independent per-entry jitter of
// uniform(-0.5, 0.5) * jitter, so replicas do not expire in lockstep.
func (c *Client) entryTTL() time.Duration {
	jitter := time.Duration((rand.Float64() - 0.5) * float64(c.cfg.CacheTTLJitter))
	return c.cfg.CacheTTL + jitter
}

// Cached wraps fn with a TTL cache using the client's cache settings. Each
// wrapper owns a fresh store, so two wrapped functions never see each
// other's entries even when their arguments serialize identically. When the
// cache TTL is not positive the function is returned unchanged, so the
// passthrough is decided once at wrap time rather than per call. Only
// successful results are stored; errors always propagate live.
func Cached[T any](c *Client, fn func(ctx context.Context, args ...any) (T, error)) func(ctx context.Context, args ...any) (T, error) {
	if c.store == nil {
		return fn
	}
	store := cache.NewMemory()
	return func(ctx context.Context, args ...any) (T, error) {
		key := CacheKey(args...)
		if v, ok := store.Get(key); ok {
			return v.(T), nil
		}
		result, err := fn(ctx, args...)
		if err != nil {
			return result, err
		}
		store.Set(key, result, c.entryTTL())
		return result, nil
	}
}

// CachedRequest is Request backed by the response cache: an identical
// (method, URL, options) call within the entry's TTL window returns the
// cached body without a second network call. Error responses are never
// cached.
func (c *Client) CachedRequest(ctx context.Context, surface Surface, method, pathOrURL string, opts ...Option) (json.RawMessage, error) {
	if c.store == nil {
		return c.Request(ctx, surface, method, pathOrURL, opts...)
	}

	o := buildOptions(opts)
	key := CacheKey(string(surface), method, c.resolveURL(pathOrURL), o.query, o.body, o.bearer, o.expected)
	if v, ok := c.store.Get(key); ok {
		return v.(json.RawMessage), nil
	}

	body, err := c.Request(ctx, surface, method, pathOrURL, opts...)
	if err != nil {
		return nil, err
	}
	c.store.Set(key, body, c.entryTTL())
	return body, nil
}
