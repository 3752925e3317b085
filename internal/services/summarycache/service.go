// Package summarycache caches each owner's session list so the sidebar
// listing does not hit the document store on every request.
package summarycache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/studybuddy/study-service/internal/core/cache"
	"github.com/studybuddy/study-service/internal/domain/models"
	"github.com/studybuddy/study-service/internal/pkg/seal"
)

// DefaultTTL is the default lifetime of a cached list.
const DefaultTTL = 2 * time.Minute

// Service caches per-owner session summaries.
//
// Every owner has a generation counter that Invalidate bumps. A list is
// stored together with the generation it was read under and only served
// while that generation is current, so a list read before a concurrent
// write can never be served after the write's invalidation.
type Service interface {
	// Get returns the cached summaries, or nil when nothing usable is cached,
	// along with the owner's current generation.
	Get(ctx context.Context, ownerID string) ([]models.SessionSummary, int64, error)

	// Set stores summaries read from the store under generation.
	Set(ctx context.Context, ownerID string, generation int64, summaries []models.SessionSummary) error

	// Invalidate bumps the owner's generation and drops the cached summaries.
	Invalidate(ctx context.Context, ownerID string) error
}

type entry struct {
	Generation int64                   `json:"generation"`
	Summaries  []models.SessionSummary `json:"summaries"`
}

// Config holds the configuration for the summary cache.
type Config struct {
	CacheClient cache.Client
	Sealer      seal.Sealer
	TTL         time.Duration
}

type service struct {
	cacheClient cache.Client
	sealer      seal.Sealer
	ttl         time.Duration
}

// NewService creates a new summary cache.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.CacheClient == nil {
		return nil, fmt.Errorf("cache client is required")
	}
	if cfg.Sealer == nil {
		return nil, fmt.Errorf("sealer is required")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	return &service{
		cacheClient: cfg.CacheClient,
		sealer:      cfg.Sealer,
		ttl:         ttl,
	}, nil
}

// Get retrieves cached summaries. An entry that cannot be opened or decoded
// (for example after a key change) is dropped and reported as a miss.
func (s *service) Get(ctx context.Context, ownerID string) ([]models.SessionSummary, int64, error) {
	generation, err := s.generation(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}

	key := BuildCacheKey(ownerID)
	sealed, err := s.cacheClient.Get(ctx, key)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get summaries from cache: %w", err)
	}
	if sealed == nil {
		return nil, generation, nil
	}

	plain, err := s.sealer.Open(sealed)
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("dropping unreadable cache entry")
		_, _ = s.cacheClient.Delete(ctx, key)
		return nil, generation, nil
	}

	var cached entry
	if err := json.Unmarshal(plain, &cached); err != nil {
		_, _ = s.cacheClient.Delete(ctx, key)
		return nil, generation, nil
	}
	if cached.Generation != generation {
		return nil, generation, nil
	}
	if cached.Summaries == nil {
		cached.Summaries = []models.SessionSummary{}
	}

	return cached.Summaries, generation, nil
}

// Set stores summaries for ownerID.
func (s *service) Set(ctx context.Context, ownerID string, generation int64, summaries []models.SessionSummary) error {
	if summaries == nil {
		summaries = []models.SessionSummary{}
	}

	data, err := json.Marshal(entry{Generation: generation, Summaries: summaries})
	if err != nil {
		return fmt.Errorf("failed to marshal summaries: %w", err)
	}

	sealed, err := s.sealer.Seal(data)
	if err != nil {
		return fmt.Errorf("failed to seal summaries: %w", err)
	}

	if err := s.cacheClient.Set(ctx, BuildCacheKey(ownerID), sealed, s.ttl); err != nil {
		return fmt.Errorf("failed to store summaries in cache: %w", err)
	}
	return nil
}

// Invalidate bumps the generation before dropping the entry so that a Set
// racing with this call stores a list nobody will serve.
func (s *service) Invalidate(ctx context.Context, ownerID string) error {
	if _, err := s.cacheClient.Incr(ctx, buildGenerationKey(ownerID)); err != nil {
		return fmt.Errorf("failed to bump summaries generation: %w", err)
	}
	if _, err := s.cacheClient.Delete(ctx, BuildCacheKey(ownerID)); err != nil {
		return fmt.Errorf("failed to invalidate summaries: %w", err)
	}
	return nil
}

func (s *service) generation(ctx context.Context, ownerID string) (int64, error) {
	raw, err := s.cacheClient.Get(ctx, buildGenerationKey(ownerID))
	if err != nil {
		return 0, fmt.Errorf("failed to get summaries generation: %w", err)
	}
	if raw == nil {
		return 0, nil
	}
	generation, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed summaries generation: %w", err)
	}
	return generation, nil
}

// BuildCacheKey generates the cache key for an owner's summaries.
func BuildCacheKey(ownerID string) string {
	return fmt.Sprintf("sessions:%s", ownerID)
}

func buildGenerationKey(ownerID string) string {
	return BuildCacheKey(ownerID) + ":gen"
}
