package quota_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/emberapp/ember-backend/internal/app"
	"github.com/emberapp/ember-backend/internal/cache"
	"github.com/emberapp/ember-backend/internal/config"
	"github.com/emberapp/ember-backend/internal/db"
	"github.com/emberapp/ember-backend/internal/repository"
	"github.com/emberapp/ember-backend/internal/service/quota"
)

func setupApp(t *testing.T) *app.AppContext {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(database))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return app.New(database, redisCache, logger, cfg)
}

func TestWeekBucket(t *testing.T) {
	// 2026-01-01 falls in ISO week 1 of 2026
	assert.Equal(t, "2026-W01", quota.WeekBucket(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

	// 2027-01-01 is a Friday belonging to ISO week 53 of 2026
	assert.Equal(t, "2026-W53", quota.WeekBucket(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))

	// the bucket is derived from UTC, not the local zone: late Sunday
	// in UTC+14 is still the previous ISO week in UTC
	zone := time.FixedZone("UTC+14", 14*3600)
	local := time.Date(2026, 8, 31, 1, 0, 0, 0, zone) // Monday 01:00 local, Sunday 11:00 UTC
	assert.Equal(t, "2026-W35", quota.WeekBucket(local))
}

func TestCheckAndIncrementEnforcesCap(t *testing.T) {
	ctx := context.Background()
	appCtx := setupApp(t)
	appCtx.Config.Quota.WeeklyLikes = 3
	tracker := quota.NewTracker(appCtx)

	user := &db.User{ID: 1, PremiumTier: db.TierFree}

	for want := int64(2); want >= 0; want-- {
		allowed, remaining, err := tracker.CheckAndIncrement(ctx, user, repository.CounterLikes)
		require.NoError(t, err)
		assert.True(t, allowed)
		require.NotNil(t, remaining)
		assert.Equal(t, want, *remaining)
	}

	allowed, remaining, err := tracker.CheckAndIncrement(ctx, user, repository.CounterLikes)
	require.NoError(t, err)
	assert.False(t, allowed)
	require.NotNil(t, remaining)
	assert.Equal(t, int64(0), *remaining)
}

func TestPremiumBypassesTracker(t *testing.T) {
	ctx := context.Background()
	appCtx := setupApp(t)
	appCtx.Config.Quota.WeeklyLikes = 1
	tracker := quota.NewTracker(appCtx)

	user := &db.User{ID: 1, PremiumTier: db.TierPlus}

	for i := 0; i < 5; i++ {
		allowed, remaining, err := tracker.CheckAndIncrement(ctx, user, repository.CounterLikes)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Nil(t, remaining)
	}

	var count int64
	require.NoError(t, appCtx.DB.Model(&db.UsageCounter{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestWeekRolloverStartsFresh(t *testing.T) {
	ctx := context.Background()
	appCtx := setupApp(t)
	appCtx.Config.Quota.WeeklyLikes = 1
	tracker := quota.NewTracker(appCtx)

	user := &db.User{ID: 1, PremiumTier: db.TierFree}

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) // Sunday, W35
	tracker.WithNow(func() time.Time { return now })

	allowed, _, err := tracker.CheckAndIncrement(ctx, user, repository.CounterLikes)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = tracker.CheckAndIncrement(ctx, user, repository.CounterLikes)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Monday next day is W36: a fresh bucket
	tracker.WithNow(func() time.Time { return now.AddDate(0, 0, 1) })
	allowed, _, err = tracker.CheckAndIncrement(ctx, user, repository.CounterLikes)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRefundReturnsSlot(t *testing.T) {
	ctx := context.Background()
	appCtx := setupApp(t)
	appCtx.Config.Quota.WeeklyLikes = 1
	tracker := quota.NewTracker(appCtx)

	user := &db.User{ID: 1, PremiumTier: db.TierFree}

	allowed, _, err := tracker.CheckAndIncrement(ctx, user, repository.CounterLikes)
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, tracker.Refund(ctx, user, repository.CounterLikes))

	allowed, _, err = tracker.CheckAndIncrement(ctx, user, repository.CounterLikes)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRemainingIsReadOnly(t *testing.T) {
	ctx := context.Background()
	appCtx := setupApp(t)
	appCtx.Config.Quota.WeeklyLikes = 5
	tracker := quota.NewTracker(appCtx)

	user := &db.User{ID: 1, PremiumTier: db.TierFree}

	remaining, err := tracker.Remaining(ctx, user, repository.CounterLikes)
	require.NoError(t, err)
	require.NotNil(t, remaining)
	assert.Equal(t, int64(5), *remaining)

	// reading twice consumes nothing
	remaining, err = tracker.Remaining(ctx, user, repository.CounterLikes)
	require.NoError(t, err)
	assert.Equal(t, int64(5), *remaining)

	premium := &db.User{ID: 2, PremiumTier: db.TierGold}
	remaining, err = tracker.Remaining(ctx, premium, repository.CounterLikes)
	require.NoError(t, err)
	assert.Nil(t, remaining)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	appCtx := setupApp(t)
	appCtx.Config.Quota.WeeklyLikes = 12
	appCtx.Config.Quota.WeeklyMessages = 30
	tracker := quota.NewTracker(appCtx)

	user := &db.User{ID: 1, PremiumTier: db.TierFree}

	for i := 0; i < 2; i++ {
		_, _, err := tracker.CheckAndIncrement(ctx, user, repository.CounterLikes)
		require.NoError(t, err)
	}
	_, _, err := tracker.CheckAndIncrement(ctx, user, repository.CounterMessages)
	require.NoError(t, err)

	stats, err := tracker.Stats(ctx, user)
	require.NoError(t, err)
	assert.False(t, stats.IsPremium)
	assert.Equal(t, int64(2), stats.Likes.Sent)
	require.NotNil(t, stats.Likes.Remaining)
	assert.Equal(t, int64(10), *stats.Likes.Remaining)
	assert.Equal(t, int64(1), stats.Messages.Sent)
	require.NotNil(t, stats.Messages.Remaining)
	assert.Equal(t, int64(29), *stats.Messages.Remaining)

	premium := &db.User{ID: 2, PremiumTier: db.TierGold}
	stats, err = tracker.Stats(ctx, premium)
	require.NoError(t, err)
	assert.True(t, stats.IsPremium)
	assert.Nil(t, stats.Likes.Remaining)
	assert.Nil(t, stats.Messages.Remaining)
}
