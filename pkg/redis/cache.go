package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed JSON caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value into dest. A miss returns (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// DeletePrefix removes every cached key starting with keyPrefix, returns the count
// SCAN 기반 (KEYS 금지)
func (c *Cache) DeletePrefix(ctx context.Context, keyPrefix string) (int, error) {
	if !c.client.Enabled() {
		return 0, nil
	}

	rdb := c.client.Redis()
	iter := rdb.Scan(ctx, 0, c.fullKey(keyPrefix)+"*", 200).Iterator()
	deleted := 0
	for iter.Next(ctx) {
		if err := rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("cache delete %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("cache scan: %w", err)
	}
	return deleted, nil
}

// GetOrSet retrieves from cache or calls fn to populate it.
// Returns whether the value came from cache. A failed Set is not an error.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) (bool, error) {
	found, err := c.Get(ctx, key, dest)
	if err != nil {
		return false, err
	}
	if found {
		return true, nil
	}

	// Cache miss - call function
	value, err := fn()
	if err != nil {
		return false, err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("cache marshal failed: %w", err)
	}
	if c.client.Enabled() {
		_ = c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
	}

	return false, json.Unmarshal(data, dest)
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute  // ad-hoc 리포트 (요청 본문 해시)
	TTLMedium = 10 * time.Minute // 상관관계 행렬
	TTLLong   = 6 * time.Hour    // 전략별 리포트 (스케줄러가 갱신)
)

// ReportKey identifies a stored strategy's report under one parameter set
func ReportKey(strategyID, paramsHash string) string {
	return fmt.Sprintf("report:%s:%s", strategyID, shortHash(paramsHash))
}

// StrategyReportPrefix matches every cached report of a strategy
func StrategyReportPrefix(strategyID string) string {
	return fmt.Sprintf("report:%s:", strategyID)
}

// AdhocReportKey identifies a report computed from a request body
func AdhocReportKey(bodyHash string) string {
	return fmt.Sprintf("adhoc:%s", shortHash(bodyHash))
}

// CorrelationKey identifies a correlation matrix over a strategy set
func CorrelationKey(strategyIDs []string, paramsHash string) string {
	return fmt.Sprintf("correlation:%s:%s", strings.Join(strategyIDs, ","), shortHash(paramsHash))
}

// shortHash keeps keys readable; 16 hex chars of sha256 is plenty for a cache key
func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}
