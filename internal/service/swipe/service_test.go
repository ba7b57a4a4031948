package swipe_test

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
	"github.com/emberapp/ember-backend/internal/apperr"
	"github.com/emberapp/ember-backend/internal/cache"
	"github.com/emberapp/ember-backend/internal/config"
	"github.com/emberapp/ember-backend/internal/db"
	"github.com/emberapp/ember-backend/internal/service/swipe"
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

// seedUser inserts a user and a matching profile.
func seedUser(t *testing.T, appCtx *app.AppContext, id uint64, tier db.PremiumTier) {
	t.Helper()
	user := db.User{
		ID:           id,
		Email:        fmt.Sprintf("u%d@test.com", id),
		PasswordHash: "x",
		PremiumTier:  tier,
		Active:       true,
	}
	require.NoError(t, appCtx.DB.Create(&user).Error)

	profile := db.Profile{
		UserID:      id,
		DisplayName: fmt.Sprintf("User %d", id),
		DateOfBirth: time.Now().UTC().AddDate(-30, 0, -30),
		Gender:      "female",
	}
	require.NoError(t, appCtx.DB.Create(&profile).Error)
}

func TestSwipeSelfIsInvalid(t *testing.T) {
	appCtx := setupApp(t)
	svc := swipe.NewService(appCtx)
	seedUser(t, appCtx, 1, db.TierFree)

	_, err := svc.Swipe(context.Background(), 1, 1, db.ActionLike)
	assert.ErrorIs(t, err, apperr.ErrInvalidTarget)
}

func TestSwipeTargetWithoutProfile(t *testing.T) {
	appCtx := setupApp(t)
	svc := swipe.NewService(appCtx)
	seedUser(t, appCtx, 1, db.TierFree)

	_, err := svc.Swipe(context.Background(), 1, 999, db.ActionLike)
	assert.ErrorIs(t, err, apperr.ErrProfileNotFound)
}

func TestSwipeUnknownActionIsRejected(t *testing.T) {
	appCtx := setupApp(t)
	svc := swipe.NewService(appCtx)
	seedUser(t, appCtx, 1, db.TierFree)
	seedUser(t, appCtx, 2, db.TierFree)

	_, err := svc.Swipe(context.Background(), 1, 2, "wink")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSwipeMutualLikeCreatesSingleMatch(t *testing.T) {
	ctx := context.Background()
	appCtx := setupApp(t)
	svc := swipe.NewService(appCtx)
	seedUser(t, appCtx, 1, db.TierFree)
	seedUser(t, appCtx, 2, db.TierFree)

	result, err := svc.Swipe(ctx, 1, 2, db.ActionLike)
	require.NoError(t, err)
	assert.False(t, result.IsMatch)

	result, err = svc.Swipe(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)
	assert.True(t, result.IsMatch)

	var count int64
	require.NoError(t, appCtx.DB.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// a repeat like must not create a second match
	result, err = svc.Swipe(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)
	assert.True(t, result.IsMatch)
	require.NoError(t, appCtx.DB.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSwipeSuperLikeCountsTowardMatch(t *testing.T) {
	ctx := context.Background()
	appCtx := setupApp(t)
	svc := swipe.NewService(appCtx)
	seedUser(t, appCtx, 1, db.TierFree)
	seedUser(t, appCtx, 2, db.TierFree)

	_, err := svc.Swipe(ctx, 1, 2, db.ActionSuperLike)
	require.NoError(t, err)

	result, err := svc.Swipe(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)
	assert.True(t, result.IsMatch)
}

func TestSwipePassNeverMatches(t *testing.T) {
	ctx := context.Background()
	appCtx := setupApp(t)
	svc := swipe.NewService(appCtx)
	seedUser(t, appCtx, 1, db.TierFree)
	seedUser(t, appCtx, 2, db.TierFree)

	_, err := svc.Swipe(ctx, 1, 2, db.ActionLike)
	require.NoError(t, err)

	result, err := svc.Swipe(ctx, 2, 1, db.ActionPass)
	require.NoError(t, err)
	assert.False(t, result.IsMatch)

	var count int64
	require.NoError(t, appCtx.DB.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestSwipeWeeklyLikeQuota(t *testing.T) {
	ctx := context.Background()
	appCtx := setupApp(t)
	appCtx.Config.Quota.WeeklyLikes = 12
	svc := swipe.NewService(appCtx)

	seedUser(t, appCtx, 1, db.TierFree)
	for id := uint64(2); id <= 15; id++ {
		seedUser(t, appCtx, id, db.TierFree)
	}

	for i := 0; i < 12; i++ {
		result, err := svc.Swipe(ctx, 1, uint64(2+i), db.ActionLike)
		require.NoError(t, err)
		require.NotNil(t, result.RemainingLikes)
		assert.Equal(t, int64(11-i), *result.RemainingLikes)
	}

	// a pass in between consumes nothing
	result, err := svc.Swipe(ctx, 1, 14, db.ActionPass)
	require.NoError(t, err)
	require.NotNil(t, result.RemainingLikes)
	assert.Equal(t, int64(0), *result.RemainingLikes)

	// the 13th like this week is rejected and not recorded
	_, err = svc.Swipe(ctx, 1, 15, db.ActionLike)
	assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)

	var count int64
	require.NoError(t, appCtx.DB.Model(&db.Swipe{}).
		Where("actor_id = ? AND target_id = ?", 1, 15).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestSwipePremiumBypassesQuota(t *testing.T) {
	ctx := context.Background()
	appCtx := setupApp(t)
	appCtx.Config.Quota.WeeklyLikes = 12
	svc := swipe.NewService(appCtx)

	seedUser(t, appCtx, 1, db.TierGold)
	for id := uint64(2); id <= 16; id++ {
		seedUser(t, appCtx, id, db.TierFree)
	}

	for id := uint64(2); id <= 16; id++ {
		result, err := svc.Swipe(ctx, 1, id, db.ActionLike)
		require.NoError(t, err)
		assert.Nil(t, result.RemainingLikes)
	}

	// nothing was written to the usage counters
	var count int64
	require.NoError(t, appCtx.DB.Model(&db.UsageCounter{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestSwipeQuotaResetsOnNewWeek(t *testing.T) {
	ctx := context.Background()
	appCtx := setupApp(t)
	appCtx.Config.Quota.WeeklyLikes = 1
	svc := swipe.NewService(appCtx)

	seedUser(t, appCtx, 1, db.TierFree)
	seedUser(t, appCtx, 2, db.TierFree)
	seedUser(t, appCtx, 3, db.TierFree)

	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	svc.Tracker().WithNow(func() time.Time { return now })

	_, err := svc.Swipe(ctx, 1, 2, db.ActionLike)
	require.NoError(t, err)

	_, err = svc.Swipe(ctx, 1, 3, db.ActionLike)
	assert.ErrorIs(t, err, apperr.ErrQuotaExceeded)

	// next ISO week: the bucket key changes, counter starts at zero
	svc.Tracker().WithNow(func() time.Time { return now.AddDate(0, 0, 7) })
	result, err := svc.Swipe(ctx, 1, 3, db.ActionLike)
	require.NoError(t, err)
	require.NotNil(t, result.RemainingLikes)
	assert.Equal(t, int64(0), *result.RemainingLikes)
}

func TestListLikersAndCount(t *testing.T) {
	ctx := context.Background()
	appCtx := setupApp(t)
	svc := swipe.NewService(appCtx)

	seedUser(t, appCtx, 1, db.TierFree)
	seedUser(t, appCtx, 2, db.TierFree)
	seedUser(t, appCtx, 3, db.TierFree)

	_, err := svc.Swipe(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)
	_, err = svc.Swipe(ctx, 3, 1, db.ActionLike)
	require.NoError(t, err)

	page, err := svc.ListLikedYou(ctx, 1, nil)
	require.NoError(t, err)
	assert.Len(t, page.Likers, 2)

	count, err := svc.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// second read is served from cache
	count, err = svc.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestListNewLikersExcludesLikedBack(t *testing.T) {
	ctx := context.Background()
	appCtx := setupApp(t)
	svc := swipe.NewService(appCtx)

	seedUser(t, appCtx, 1, db.TierFree)
	seedUser(t, appCtx, 2, db.TierFree)
	seedUser(t, appCtx, 3, db.TierFree)

	_, err := svc.Swipe(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)
	_, err = svc.Swipe(ctx, 3, 1, db.ActionLike)
	require.NoError(t, err)
	_, err = svc.Swipe(ctx, 1, 2, db.ActionLike) // liked back
	require.NoError(t, err)

	page, err := svc.ListNewLikedYou(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, page.Likers, 1)
	assert.Equal(t, uint64(3), page.Likers[0].UserID)
}

func TestListMatches(t *testing.T) {
	ctx := context.Background()
	appCtx := setupApp(t)
	svc := swipe.NewService(appCtx)

	seedUser(t, appCtx, 1, db.TierFree)
	seedUser(t, appCtx, 2, db.TierFree)

	_, err := svc.Swipe(ctx, 1, 2, db.ActionLike)
	require.NoError(t, err)
	_, err = svc.Swipe(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)

	cards, err := svc.ListMatches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, uint64(2), cards[0].UserID)
	assert.Equal(t, "User 2", cards[0].DisplayName)
}
