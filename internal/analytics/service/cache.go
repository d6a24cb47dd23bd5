package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/retailcore/internal/analytics/domain"
	"github.com/smallbiznis/retailcore/internal/config"
)

const (
	keySummary             = "analytics:summary:%s:%s"
	defaultSummaryCacheTTL = 60 * time.Second
)

// SummaryCache is a read-through redis cache for period-preset
// summaries. A nil cache (no redis configured) is a valid no-op.
// The TTL follows the hot-reloaded finance config.
type SummaryCache struct {
	client  *redis.Client
	finance *config.FinanceConfigHolder
}

func NewSummaryCache(cfg config.Config, finance *config.FinanceConfigHolder) *SummaryCache {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	return &SummaryCache{client: client, finance: finance}
}

func (c *SummaryCache) ttl() time.Duration {
	if c != nil && c.finance != nil {
		if secs := c.finance.Get().SummaryCacheTTLSeconds; secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultSummaryCacheTTL
}

func (c *SummaryCache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *SummaryCache) Get(ctx context.Context, orgID snowflake.ID, period string) (*domain.Summary, bool) {
	if !c.Enabled() {
		return nil, false
	}

	raw, err := c.client.Get(ctx, fmt.Sprintf(keySummary, orgID, period)).Bytes()
	if err != nil {
		return nil, false
	}

	var summary domain.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, false
	}
	return &summary, true
}

func (c *SummaryCache) Set(ctx context.Context, orgID snowflake.ID, period string, summary *domain.Summary) {
	if !c.Enabled() || summary == nil {
		return
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	c.client.Set(ctx, fmt.Sprintf(keySummary, orgID, period), raw, c.ttl())
}
