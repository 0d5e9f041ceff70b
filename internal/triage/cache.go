package triage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/janjeevan/telehealth/pkg/logging"
)

// VerdictCache memoizes verdicts by symptom digest so repeated reports from
// the same household do not burn classifier quota. All methods are safe on a
// nil receiver so the cache can be left unconfigured.
type VerdictCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewVerdictCache creates a cache backed by the given Redis client.
func NewVerdictCache(client *redis.Client, ttl time.Duration, logger *logging.Logger) *VerdictCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &VerdictCache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(symptoms string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(symptoms))))
	return "triage:verdict:" + hex.EncodeToString(sum[:])
}

// Get returns a cached verdict or nil. Cache errors are logged and treated
// as misses.
func (c *VerdictCache) Get(ctx context.Context, symptoms string) *Verdict {
	if c == nil {
		return nil
	}
	data, err := c.client.Get(ctx, cacheKey(symptoms)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("triage cache get failed", "error", err)
		}
		return nil
	}
	var verdict Verdict
	if err := json.Unmarshal(data, &verdict); err != nil {
		return nil
	}
	if !verdict.Valid() {
		return nil
	}
	return &verdict
}

// Set stores the verdict with the configured TTL. Best effort.
func (c *VerdictCache) Set(ctx context.Context, symptoms string, verdict *Verdict) {
	if c == nil || verdict == nil {
		return
	}
	data, err := json.Marshal(verdict)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(symptoms), data, c.ttl).Err(); err != nil {
		c.logger.Warn("triage cache set failed", "error", err)
	}
}
