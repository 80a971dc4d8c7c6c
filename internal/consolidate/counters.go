package consolidate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coldroute/coldroute/internal/domain"
)

// counterFields, in the order they're stored in the per-day hash.
var counterFields = []string{"sent", "delivered", "bounced", "complaints", "opens", "clicks"}

// ttl bounds how long an un-consolidated counter hash survives, well past
// the daily 00:30 UTC consolidation job, as a backstop against a key never
// being cleaned up (e.g. the IP transitions out of WARMING mid-day and the
// consolidation loop no longer visits it before eviction).
const ttl = 72 * time.Hour

// RedisCounters is the Redis-backed implementation of the per-IP per-day
// counter cache, mirroring the teacher's own Redis wiring in
// internal/pkg/distlock (same client type, same "miniredis in tests"
// idiom).
type RedisCounters struct {
	rdb *redis.Client
}

// NewRedisCounters builds a counter cache over an existing Redis client.
func NewRedisCounters(rdb *redis.Client) *RedisCounters {
	return &RedisCounters{rdb: rdb}
}

func counterKey(ipID string, date time.Time) string {
	return fmt.Sprintf("coldroute:warmup-counters:%s:%s", ipID, date.Format("2006-01-02"))
}

// Increment atomically adds delta to one field of the IP's day counter and
// (re)sets the key's expiry so a forgotten key doesn't live forever.
func (c *RedisCounters) Increment(ctx context.Context, ipID string, date time.Time, field string, delta int64) error {
	key := counterKey(ipID, date)
	pipe := c.rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, field, delta)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("increment warmup counter: %w", err)
	}
	return nil
}

// Read returns the accumulated counters for (ipID, date). A missing key
// reads back as all-zero, not an error — a day with no traffic is a valid
// (empty) consolidation target.
func (c *RedisCounters) Read(ctx context.Context, ipID string, date time.Time) (domain.WarmupDailyStat, error) {
	key := counterKey(ipID, date)
	raw, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.WarmupDailyStat{}, fmt.Errorf("read warmup counters: %w", err)
	}
	stat := domain.WarmupDailyStat{Date: date}
	for _, f := range counterFields {
		v, _ := strconv.ParseInt(raw[f], 10, 64)
		switch f {
		case "sent":
			stat.Sent = v
		case "delivered":
			stat.Delivered = v
		case "bounced":
			stat.Bounced = v
		case "complaints":
			stat.Complaints = v
		case "opens":
			stat.Opens = v
		case "clicks":
			stat.Clicks = v
		}
	}
	return stat, nil
}

// Delete evicts the counter key for (ipID, date), once its values have
// been folded into a durable WarmupDailyStat row.
func (c *RedisCounters) Delete(ctx context.Context, ipID string, date time.Time) error {
	if err := c.rdb.Del(ctx, counterKey(ipID, date)).Err(); err != nil {
		return fmt.Errorf("delete warmup counters: %w", err)
	}
	return nil
}
