// internal/engine/trigger/dedupe.go
package trigger

import (
	"context"
	"fmt"
	"time"

	"school-notify/internal/common/database"
	"school-notify/internal/common/logger"
	"school-notify/internal/common/metrics"
	"school-notify/internal/models"
)

// Guard decides whether a trigger may notify a recipient again within the
// trigger's frequency period. Claim returns true when the notification may
// proceed and false when it was already claimed this period.
type Guard interface {
	Claim(ctx context.Context, t models.NotificationType, recipientID, period string) (bool, error)
}

// RedisGuard implements Guard with a SET NX key per type/recipient/period.
type RedisGuard struct {
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisGuard(redis *database.RedisClient, ttl time.Duration, log logger.Logger) *RedisGuard {
	if ttl <= 0 {
		ttl = 8 * 24 * time.Hour
	}
	return &RedisGuard{
		redis:  redis,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "dedupe-guard"}),
	}
}

func (g *RedisGuard) Claim(ctx context.Context, t models.NotificationType, recipientID, period string) (bool, error) {
	key := fmt.Sprintf("notify:dedupe:%s:%s:%s", t, recipientID, period)
	claimed, err := g.redis.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim dedupe key %s: %w", key, err)
	}
	if !claimed {
		metrics.TriggerDeduped.WithLabelValues(string(t)).Inc()
		g.logger.Debug("notification deduped", map[string]interface{}{
			"type":         t,
			"recipient_id": recipientID,
			"period":       period,
		})
	}
	return claimed, nil
}

// PeriodKey names the dedupe period a run falls into. Daily and immediate
// triggers share a calendar-date key; weekly triggers use the ISO week.
func PeriodKey(freq models.Frequency, now time.Time) string {
	switch freq {
	case models.FrequencyWeekly:
		year, week := now.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default:
		return now.Format("2006-01-02")
	}
}
