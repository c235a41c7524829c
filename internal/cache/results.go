package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spherical/pitch-analyzer/internal/domain"
	"github.com/spherical/pitch-analyzer/internal/observability"
)

// ResultCache stores analysis results keyed by the hash of their input.
type ResultCache struct {
	client Client
	ttl    time.Duration
	logger *observability.Logger
}

// NewResultCache creates a result cache. A nil client disables caching.
func NewResultCache(client Client, ttl time.Duration, logger *observability.Logger) *ResultCache {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ResultCache{client: client, ttl: ttl, logger: logger.WithOperation("result_cache")}
}

// Key returns the cache key for an analysis kind and content hash.
func Key(kind domain.AnalysisKind, contentHash string) string {
	return keyPrefix + string(kind) + ":" + contentHash
}

const keyPrefix = "result:"

// Lookup decodes the cached result into v. It reports false on a miss or
// on any cache failure, which is logged.
func (c *ResultCache) Lookup(ctx context.Context, kind domain.AnalysisKind, contentHash string, v interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}
	data, err := c.client.Get(ctx, Key(kind, contentHash))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("kind", string(kind)).Msg("Cache lookup failed")
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.logger.Warn().Err(err).Str("kind", string(kind)).Msg("Discarding undecodable cache entry")
		if err := c.client.Delete(ctx, Key(kind, contentHash)); err != nil {
			c.logger.Warn().Err(err).Msg("Cache delete failed")
		}
		return false
	}
	return true
}

// Store caches v. Failures are logged and otherwise ignored.
func (c *ResultCache) Store(ctx context.Context, kind domain.AnalysisKind, contentHash string, v interface{}) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Cannot encode result for cache")
		return
	}
	if err := c.client.Set(ctx, Key(kind, contentHash), data, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("kind", string(kind)).Msg("Cache store failed")
	}
}

// Purge removes cached results of the given kind, or all results when kind
// is empty.
func (c *ResultCache) Purge(ctx context.Context, kind domain.AnalysisKind) error {
	if c == nil || c.client == nil {
		return nil
	}
	prefix := keyPrefix
	if kind != "" {
		prefix += string(kind) + ":"
	}
	if err := c.client.DeleteByPrefix(ctx, prefix); err != nil {
		return fmt.Errorf("purge %s: %w", prefix, err)
	}
	return nil
}

// Ping checks the underlying client.
func (c *ResultCache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx)
}

// HashBytes returns the hex SHA-256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashFile returns the hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
