package googleauth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/upb/hue-gateway/internal/observability"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultJWKSURL is Google's published signing key set
	DefaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

	defaultJWKSTimeout = 5 * time.Second

	maxJWKSBodyBytes = 1 << 20
)

// KeySet is an immutable snapshot of the provider's signing keys.
// Public keys are derived once when the snapshot is built.
type KeySet struct {
	entries   map[string]keyEntry
	fetchedAt time.Time
}

type keyEntry struct {
	jwk JWK
	pub *rsa.PublicKey
	err error
}

func newKeySet(jwks []JWK, fetchedAt time.Time) *KeySet {
	entries := make(map[string]keyEntry, len(jwks))
	for _, k := range jwks {
		if k.Kid == "" {
			continue
		}
		pub, err := ReconstructPublicKey(k)
		entries[k.Kid] = keyEntry{jwk: k, pub: pub, err: err}
	}
	return &KeySet{entries: entries, fetchedAt: fetchedAt}
}

// Has reports whether kid is present in the set
func (s *KeySet) Has(kid string) bool {
	_, ok := s.entries[kid]
	return ok
}

// JWK returns the raw key record for kid
func (s *KeySet) JWK(kid string) (JWK, bool) {
	e, ok := s.entries[kid]
	return e.jwk, ok
}

// PublicKey returns the reconstructed key for kid
func (s *KeySet) PublicKey(kid string) (*rsa.PublicKey, error) {
	e, ok := s.entries[kid]
	if !ok {
		return nil, newAuthError(KindUnknownSigningKey, fmt.Sprintf("kid %q not found in JWKS", kid), nil)
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.pub, nil
}

// KIDs returns the key identifiers in sorted order
func (s *KeySet) KIDs() []string {
	kids := make([]string, 0, len(s.entries))
	for kid := range s.entries {
		kids = append(kids, kid)
	}
	sort.Strings(kids)
	return kids
}

// Len returns the number of keys
func (s *KeySet) Len() int {
	return len(s.entries)
}

// FetchedAt returns when the snapshot was retrieved
func (s *KeySet) FetchedAt() time.Time {
	return s.fetchedAt
}

// KeyCacheConfig holds configuration for KeyCache
type KeyCacheConfig struct {
	URL string
	// HTTPTimeout bounds a single JWKS fetch. Defaults to 5s.
	HTTPTimeout time.Duration
	// TTL of a fetched set. Zero keeps the set for the process lifetime.
	TTL time.Duration
	// MinRefreshInterval throttles refreshes triggered by unknown key ids.
	// A miss within this interval of the last fetch gets no refresh and
	// fails with ErrUnknownSigningKey. Zero allows a refresh on every miss.
	MinRefreshInterval time.Duration
	HTTPClient         *http.Client
	Logger             *zap.Logger
	Now                func() time.Time
}

// KeyCache memoizes the provider's JWKS. Readers get whole snapshots;
// refreshes build a new snapshot and swap it in.
type KeyCache struct {
	url        string
	timeout    time.Duration
	ttl        time.Duration
	minRefresh time.Duration
	client     *http.Client
	logger     *zap.Logger
	now        func() time.Time

	current atomic.Pointer[KeySet]
	group   singleflight.Group
	fetches atomic.Int64
}

// NewKeyCache creates a new KeyCache
func NewKeyCache(cfg KeyCacheConfig) *KeyCache {
	if cfg.URL == "" {
		cfg.URL = DefaultJWKSURL
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultJWKSTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &KeyCache{
		url:        cfg.URL,
		timeout:    cfg.HTTPTimeout,
		ttl:        cfg.TTL,
		minRefresh: cfg.MinRefreshInterval,
		client:     cfg.HTTPClient,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
}

// Get returns the cached key set, fetching it on a cold cache.
// With a TTL configured, an expired set is refreshed; if that refresh fails
// the stale set is served.
func (c *KeyCache) Get(ctx context.Context) (*KeySet, error) {
	set := c.current.Load()
	if set == nil {
		return c.Refresh(ctx)
	}
	if c.ttl <= 0 || c.now().Sub(set.fetchedAt) < c.ttl {
		return set, nil
	}

	fresh, err := c.Refresh(ctx)
	if err != nil {
		c.logger.Warn("jwks refresh failed, serving stale key set",
			zap.Time("fetched_at", set.fetchedAt),
			zap.Error(err))
		return set, nil
	}
	return fresh, nil
}

// Refresh fetches the key set and replaces the cached snapshot.
// Concurrent callers share one fetch. On failure the previous snapshot stays.
func (c *KeyCache) Refresh(ctx context.Context) (*KeySet, error) {
	ch := c.group.DoChan("jwks", func() (interface{}, error) {
		// detached so one caller's cancellation does not fail the others
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.fetch(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, newAuthError(KindUpstreamUnavailable, "jwks fetch abandoned", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeySet), nil
	}
}

// Key resolves kid to a public key. A miss gets at most one refresh; a
// cold-cache fetch made by this call counts as that refresh.
func (c *KeyCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	before := c.current.Load()
	set, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	if set.Has(kid) {
		return set.PublicKey(kid)
	}

	if set == before && c.refreshAllowed(set) {
		c.logger.Debug("unknown kid, refreshing jwks", zap.String("kid", kid))
		set, err = c.Refresh(ctx)
		if err != nil {
			return nil, err
		}
	}

	return set.PublicKey(kid)
}

func (c *KeyCache) refreshAllowed(set *KeySet) bool {
	if c.minRefresh <= 0 {
		return true
	}
	return c.now().Sub(set.fetchedAt) >= c.minRefresh
}

// Current returns the cached snapshot without fetching, or nil when cold
func (c *KeyCache) Current() *KeySet {
	return c.current.Load()
}

// Stats returns cache statistics
func (c *KeyCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"jwks_cached":  false,
		"jwks_fetches": c.fetches.Load(),
	}
	if set := c.current.Load(); set != nil {
		stats["jwks_cached"] = true
		stats["jwks_fetched_at"] = set.fetchedAt
		stats["jwks_keys_count"] = set.Len()
	}
	return stats
}

func (c *KeyCache) fetch(ctx context.Context) (*KeySet, error) {
	c.fetches.Add(1)
	start := c.now()

	set, err := c.download(ctx)
	if err != nil {
		observability.JWKSFetchTotal.WithLabelValues("error").Inc()
		c.logger.Warn("jwks fetch failed",
			zap.String("url", c.url),
			zap.String("kind", string(KindOf(err))),
			zap.Error(err))
		return nil, err
	}

	c.current.Store(set)
	observability.JWKSFetchTotal.WithLabelValues("success").Inc()
	observability.JWKSKeys.Set(float64(set.Len()))
	c.logger.Info("jwks fetched",
		zap.String("url", c.url),
		zap.Strings("kids", set.KIDs()),
		zap.Duration("duration", c.now().Sub(start)))
	return set, nil
}

func (c *KeyCache) download(ctx context.Context) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, newAuthError(KindUpstreamUnavailable, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, newAuthError(KindUpstreamUnavailable, "failed to fetch JWKS", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxJWKSBodyBytes))
		return nil, newAuthError(KindUpstreamUnavailable, fmt.Sprintf("status code %d", resp.StatusCode), nil)
	}

	var doc struct {
		Keys *[]JWK `json:"keys"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBodyBytes)).Decode(&doc); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, newAuthError(KindUpstreamUnavailable, "timed out reading JWKS", err)
		}
		return nil, newAuthError(KindMalformedResponse, "failed to decode JWKS", err)
	}
	if doc.Keys == nil {
		return nil, newAuthError(KindMalformedResponse, "JWKS has no keys array", nil)
	}

	return newKeySet(*doc.Keys, c.now()), nil
}
