package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"FinScope/internal/domain/models"
)

// BytesCache stores raw bytes with a TTL. A miss is (nil, false, nil).
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key joins parts into a namespaced cache key, e.g. "analysis:AAPL:1d:252".
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// ResultCache stores AnalysisResults as JSON in a BytesCache.
type ResultCache struct {
	backend BytesCache
	ttl     time.Duration
}

func NewResultCache(backend BytesCache, ttl time.Duration) *ResultCache {
	return &ResultCache{backend: backend, ttl: ttl}
}

// AnalysisKey identifies one (ticker, interval, lookback) analysis.
func AnalysisKey(ticker, interval string, lookback int) string {
	return Key("analysis", strings.ToUpper(ticker), interval, fmt.Sprint(lookback))
}

func (c *ResultCache) Get(ctx context.Context, key string) (*models.AnalysisResult, bool, error) {
	b, ok, err := c.backend.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var r models.AnalysisResult
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, false, fmt.Errorf("decode cached result: %w", err)
	}
	return &r, true, nil
}

func (c *ResultCache) Set(ctx context.Context, key string, r *models.AnalysisResult) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return c.backend.SetBytes(ctx, key, b, c.ttl)
}
