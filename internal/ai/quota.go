package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"resumeEditor/internal/resume"
)

// ErrQuotaExceeded is returned when a user has used up the hourly generation quota.
var ErrQuotaExceeded = errors.New("ai: summary quota exceeded")

type redisCounter interface {
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// incrWithTTL increments the counter and sets its TTL in one MULTI.
// Keys are bucketed per window, so refreshing the TTL never extends a window.
func incrWithTTL(ctx context.Context, client redisCounter, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// QuotaGenerator enforces a per-user hourly limit before calling the wrapped generator.
type QuotaGenerator struct {
	next   SummaryGenerator
	redis  redisCounter
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewQuotaGenerator wraps next. A limit of zero or less disables the quota.
func NewQuotaGenerator(next SummaryGenerator, client redisCounter, limit int) *QuotaGenerator {
	return &QuotaGenerator{
		next:   next,
		redis:  client,
		limit:  int64(limit),
		window: time.Hour,
		now:    time.Now,
	}
}

// GenerateSummary implements SummaryGenerator.
func (q *QuotaGenerator) GenerateSummary(ctx context.Context, userID string, v resume.Values) (string, error) {
	if q.limit > 0 && q.redis != nil {
		bucket := q.now().UTC().Truncate(q.window).Unix()
		key := fmt.Sprintf("ai_summary:%s:%d", userID, bucket)
		count, err := incrWithTTL(ctx, q.redis, key, q.window)
		if err != nil {
			return "", fmt.Errorf("count summary quota: %w", err)
		}
		if count > q.limit {
			return "", ErrQuotaExceeded
		}
	}
	return q.next.GenerateSummary(ctx, userID, v)
}
