package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"smartnshine/interview/internal/models"
)

// ExceededError is returned when a reserve would push the day's count
// past the tier limit. RetryAfter is the number of seconds until the
// counter resets at the next UTC midnight.
type ExceededError struct {
	Feature    string
	Limit      int
	RetryAfter int
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("daily quota exceeded for %s (limit %d)", e.Feature, e.Limit)
}

// reserveScript checks the counter against the ceiling and increments it
// in a single Redis round trip, so two concurrent reserves for the same
// user can never over-grant. Returns -1 when the ceiling is hit,
// otherwise the new count.
var reserveScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if limit == 0 or (limit > 0 and current >= limit) then
	return -1
end
local count = redis.call('INCR', KEYS[1])
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call('EXPIRE', KEYS[1], ttl)
end
return count
`)

// Guard performs atomic per-user/day/feature usage accounting against
// subscription-tier limits. The authoritative counter lives in Redis;
// a QuotaRecord row mirrors it for reporting.
type Guard struct {
	rdb    *redis.Client
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewGuard(rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *Guard {
	return &Guard{
		rdb:    rdb,
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func (g *Guard) key(userID, feature, date string) string {
	return fmt.Sprintf("quota:%s:%s:%s", userID, feature, date)
}

// Reserve atomically consumes one unit of the day's allowance and
// returns the remaining quota. Unlimited tiers always succeed with
// remaining -1. On exhaustion it returns *ExceededError and the counter
// is left untouched.
func (g *Guard) Reserve(ctx context.Context, userID, feature string, tier models.SubscriptionTier) (int, error) {
	limit := models.DailyLimit(tier, feature)
	nowUTC := g.now().UTC()
	date := nowUTC.Format("2006-01-02")
	ttl := secondsUntilMidnight(nowUTC)

	count, err := reserveScript.Run(ctx, g.rdb, []string{g.key(userID, feature, date)}, limit, ttl).Int()
	if err != nil {
		return 0, fmt.Errorf("quota reserve failed: %w", err)
	}

	if count < 0 {
		g.logger.Info("quota exceeded",
			zap.String("userId", userID),
			zap.String("feature", feature),
			zap.String("tier", string(tier)),
			zap.Int("limit", limit))
		return 0, &ExceededError{Feature: feature, Limit: limit, RetryAfter: ttl}
	}

	g.mirror(userID, feature, date, count, limit, nowUTC)

	if limit < 0 {
		return -1, nil
	}
	return limit - count, nil
}

// Remaining reports the unused allowance without consuming any.
func (g *Guard) Remaining(ctx context.Context, userID, feature string, tier models.SubscriptionTier) (int, error) {
	limit := models.DailyLimit(tier, feature)
	if limit < 0 {
		return -1, nil
	}

	date := g.now().UTC().Format("2006-01-02")
	count, err := g.rdb.Get(ctx, g.key(userID, feature, date)).Int()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("quota read failed: %w", err)
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset zeroes the counter immediately. Administrative operation.
func (g *Guard) Reset(ctx context.Context, userID, feature string) error {
	date := g.now().UTC().Format("2006-01-02")
	if err := g.rdb.Del(ctx, g.key(userID, feature, date)).Err(); err != nil {
		return fmt.Errorf("quota reset failed: %w", err)
	}

	if g.db != nil {
		if err := g.db.Model(&models.QuotaRecord{}).
			Where("user_id = ? AND feature = ? AND date = ?", userID, feature, date).
			Update("count", 0).Error; err != nil {
			g.logger.Warn("failed to reset quota audit row", zap.Error(err))
		}
	}
	return nil
}

// mirror upserts the audit row. Failures are logged, never surfaced:
// the Redis counter is the source of truth.
func (g *Guard) mirror(userID, feature, date string, count, limit int, nowUTC time.Time) {
	if g.db == nil {
		return
	}

	resetAt := nowUTC.Truncate(24 * time.Hour).Add(24 * time.Hour)
	record := models.QuotaRecord{UserID: userID, Feature: feature, Date: date}
	err := g.db.Where(&record).
		Assign(map[string]interface{}{"count": count, "daily_limit": limit, "reset_at": resetAt}).
		FirstOrCreate(&record).Error
	if err != nil {
		g.logger.Warn("failed to mirror quota record",
			zap.String("userId", userID),
			zap.String("feature", feature),
			zap.Error(err))
	}
}

func secondsUntilMidnight(nowUTC time.Time) int {
	midnight := nowUTC.Truncate(24 * time.Hour).Add(24 * time.Hour)
	return int(midnight.Sub(nowUTC).Seconds())
}
