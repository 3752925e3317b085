// Package auth verifies bearer tokens issued by the identity provider.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	domainerrors "github.com/studybuddy/study-service/internal/domain/errors"
	"github.com/studybuddy/study-service/internal/pkg/metrics"
)

const maxKeySetBytes = 1 << 20

// DefaultMinRefreshInterval is the default minimum spacing between forced
// refreshes.
const DefaultMinRefreshInterval = 10 * time.Second

// KeySetCacheConfig holds key set cache configuration.
type KeySetCacheConfig struct {
	URL               string
	Timeout           time.Duration
	AllowedAlgorithms []string
	HTTPClient        *http.Client
	Metrics           metrics.Recorder

	// MinRefreshInterval bounds how often forced refreshes reach the
	// identity provider; zero means DefaultMinRefreshInterval.
	MinRefreshInterval time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// KeySetCache fetches the identity provider's signing keys and keeps the
// most recent set. There is no expiry: a new set is only fetched on first
// use or when a caller forces a refresh. Once a set is cached, a forced
// refresh within MinRefreshInterval of the previous one is answered from
// the cache.
type KeySetCache struct {
	url         string
	timeout     time.Duration
	minInterval time.Duration
	allowed     map[string]bool
	httpClient  *http.Client
	metrics     metrics.Recorder
	now         func() time.Time

	keys       atomic.Pointer[KeySet]
	lastForced atomic.Int64
	group      singleflight.Group
}

// NewKeySetCache creates an empty key set cache.
func NewKeySetCache(config *KeySetCacheConfig) (*KeySetCache, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.URL == "" {
		return nil, fmt.Errorf("jwks URL is required")
	}
	if len(config.AllowedAlgorithms) == 0 {
		return nil, fmt.Errorf("at least one allowed algorithm is required")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	recorder := config.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	minInterval := config.MinRefreshInterval
	if minInterval <= 0 {
		minInterval = DefaultMinRefreshInterval
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &KeySetCache{
		url:         config.URL,
		timeout:     timeout,
		minInterval: minInterval,
		allowed:     algorithmSet(config.AllowedAlgorithms),
		httpClient:  httpClient,
		metrics:     recorder,
		now:         now,
	}, nil
}

// GetKeys returns the cached key set, fetching it when nothing is cached yet
// or forceRefresh is set. Concurrent fetches share a single request. A failed
// fetch leaves the previous set in place and returns ErrKeySetUnavailable.
func (c *KeySetCache) GetKeys(ctx context.Context, forceRefresh bool) (*KeySet, error) {
	if set := c.keys.Load(); set != nil {
		if !forceRefresh {
			return set, nil
		}
		if c.throttled() {
			c.metrics.RecordKeySetRefresh(metrics.OutcomeThrottled)
			return set, nil
		}
	}
	if forceRefresh {
		defer func() { c.lastForced.Store(c.now().UnixNano()) }()
	}

	ch := c.group.DoChan("jwks", func() (interface{}, error) {
		// The fetch outlives any single waiter; it is bounded by c.timeout.
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrKeySetUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeySet), nil
	}
}

// throttled reports whether the last forced refresh finished less than
// minInterval ago.
func (c *KeySetCache) throttled() bool {
	last := c.lastForced.Load()
	return last != 0 && c.now().UnixNano()-last < int64(c.minInterval)
}

func (c *KeySetCache) refresh(ctx context.Context) (*KeySet, error) {
	set, err := c.fetch(ctx)
	if err != nil {
		c.metrics.RecordKeySetRefresh(metrics.OutcomeError)
		log.Warn().Err(err).Str("url", c.url).Msg("failed to refresh signing keys")
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrKeySetUnavailable, err)
	}

	c.keys.Store(set)
	c.metrics.RecordKeySetRefresh(metrics.OutcomeSuccess)
	log.Debug().Int("keys", set.Len()).Str("url", c.url).Msg("signing keys refreshed")
	return set, nil
}

func (c *KeySetCache) fetch(ctx context.Context) (*KeySet, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("jwks fetch status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading jwks: %w", err)
	}
	if len(body) > maxKeySetBytes {
		return nil, errors.New("jwks document too large")
	}

	return parseKeySet(body, c.allowed)
}

func algorithmSet(algs []string) map[string]bool {
	set := make(map[string]bool, len(algs))
	for _, alg := range algs {
		set[alg] = true
	}
	return set
}
