package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/rishi-narain/ad-tester/internal/models"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// resultCache memoizes per-persona results. The key covers everything
// that reaches the model, so an edited persona prompt misses.
type resultCache struct {
	lru *expirable.LRU[string, models.EvaluationResult]
}

func newResultCache(size int, ttl time.Duration) *resultCache {
	if size <= 0 {
		return nil
	}
	return &resultCache{lru: expirable.NewLRU[string, models.EvaluationResult](size, nil, ttl)}
}

func cacheKey(p models.Persona, content string, contentType models.ContentType, includeQuote bool) string {
	h := sha256.New()
	for _, part := range []string{p.ID, p.SystemPrompt, string(contentType), strconv.FormatBool(includeQuote), content} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *resultCache) get(key string) (models.EvaluationResult, bool) {
	if c == nil {
		return models.EvaluationResult{}, false
	}
	return c.lru.Get(key)
}

func (c *resultCache) add(key string, res models.EvaluationResult) {
	if c == nil {
		return
	}
	c.lru.Add(key, res)
}
