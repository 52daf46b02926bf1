package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-notify/internal/common/database"
	"school-notify/internal/common/logger"
	"school-notify/internal/models"
)

func setupGuard(t *testing.T, ttl time.Duration) (*RedisGuard, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { client.Close() })
	return NewRedisGuard(client, ttl, logger.NewTestLogger(t)), mr
}

func TestRedisGuard_Claim_FirstClaimWins(t *testing.T) {
	guard, _ := setupGuard(t, time.Hour)
	ctx := context.Background()

	claimed, err := guard.Claim(ctx, models.TypeFeeDue, "guardian-1", "2026-08-30")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = guard.Claim(ctx, models.TypeFeeDue, "guardian-1", "2026-08-30")
	require.NoError(t, err)
	assert.False(t, claimed, "second claim in the same period is deduped")
}

func TestRedisGuard_Claim_IndependentKeys(t *testing.T) {
	guard, _ := setupGuard(t, time.Hour)
	ctx := context.Background()

	first, err := guard.Claim(ctx, models.TypeFeeDue, "guardian-1", "2026-08-30")
	require.NoError(t, err)
	assert.True(t, first)

	// Different recipient, type, or period each get their own key.
	otherRecipient, err := guard.Claim(ctx, models.TypeFeeDue, "guardian-2", "2026-08-30")
	require.NoError(t, err)
	assert.True(t, otherRecipient)

	otherType, err := guard.Claim(ctx, models.TypeExamSchedule, "guardian-1", "2026-08-30")
	require.NoError(t, err)
	assert.True(t, otherType)

	otherPeriod, err := guard.Claim(ctx, models.TypeFeeDue, "guardian-1", "2026-08-31")
	require.NoError(t, err)
	assert.True(t, otherPeriod)
}

func TestRedisGuard_Claim_KeyExpires(t *testing.T) {
	guard, mr := setupGuard(t, time.Minute)
	ctx := context.Background()

	claimed, err := guard.Claim(ctx, models.TypeLowAttendance, "guardian-1", "2026-W35")
	require.NoError(t, err)
	require.True(t, claimed)
	assert.True(t, mr.Exists("notify:dedupe:low_attendance:guardian-1:2026-W35"))

	mr.FastForward(2 * time.Minute)

	claimed, err = guard.Claim(ctx, models.TypeLowAttendance, "guardian-1", "2026-W35")
	require.NoError(t, err)
	assert.True(t, claimed, "expired key can be claimed again")
}

func TestRedisGuard_Claim_RedisDown(t *testing.T) {
	guard, mr := setupGuard(t, time.Hour)
	mr.Close()

	_, err := guard.Claim(context.Background(), models.TypeFeeDue, "guardian-1", "2026-08-30")
	assert.Error(t, err)
}

func TestPeriodKey(t *testing.T) {
	// A Saturday; ISO week 35 of 2026.
	now := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, "2026-08-29", PeriodKey(models.FrequencyDaily, now))
	assert.Equal(t, "2026-08-29", PeriodKey(models.FrequencyImmediate, now))
	assert.Equal(t, "2026-W35", PeriodKey(models.FrequencyWeekly, now))

	// Early January can belong to the previous ISO year.
	jan1 := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-W53", PeriodKey(models.FrequencyWeekly, jan1))
}
