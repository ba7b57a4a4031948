package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/emberapp/ember-backend/internal/app"
	"github.com/emberapp/ember-backend/internal/db"
	"github.com/emberapp/ember-backend/internal/repository"
)

// Tracker enforces the per-user weekly quotas for rate-limited actions.
//
// Counters are keyed by (user, ISO week): when a new week starts the
// bucket key changes and no row exists yet, which is a zero counter —
// there is no reset job. Premium accounts bypass the tracker entirely:
// unlimited is a bypass, not a very large cap.
type Tracker struct {
	appCtx    *app.AppContext
	usageRepo *repository.UsageRepository

	// now is swappable for week-boundary tests.
	now func() time.Time
}

// NewTracker creates a Tracker with dependencies from AppContext.
func NewTracker(appCtx *app.AppContext) *Tracker {
	return &Tracker{
		appCtx:    appCtx,
		usageRepo: repository.NewUsageRepository(appCtx.DB),
		now:       time.Now,
	}
}

// WithNow overrides the clock. Test hook.
func (t *Tracker) WithNow(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// WeekBucket derives the counter bucket key from the ISO week of the
// given instant in UTC. UTC keeps the boundary timezone-independent.
func WeekBucket(at time.Time) string {
	year, week := at.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// capFor returns the configured weekly cap for a counter.
func (t *Tracker) capFor(counter string) int64 {
	switch counter {
	case repository.CounterMessages:
		return t.appCtx.Config.Quota.WeeklyMessages
	default:
		return t.appCtx.Config.Quota.WeeklyLikes
	}
}

// CheckAndIncrement consumes one slot of the named counter for the
// user's current week, unless the cap is already reached.
//
// Premium users always get allowed = true with nil remaining, without
// touching stored counters. For everyone else the check-and-increment
// is a single atomic conditional update, so parallel requests cannot
// push a user past the cap.
func (t *Tracker) CheckAndIncrement(ctx context.Context, user *db.User, counter string) (allowed bool, remaining *int64, err error) {
	if user.IsPremium() {
		return true, nil, nil
	}

	limit := t.capFor(counter)
	bucket := WeekBucket(t.now())

	ok, count, err := t.usageRepo.IncrementWithCap(ctx, user.ID, bucket, counter, limit)
	if err != nil {
		return false, nil, err
	}

	left := limit - count
	if left < 0 {
		left = 0
	}
	return ok, &left, nil
}

// Refund returns one previously consumed slot. Compensation for the
// case where the quota was consumed but the guarded write failed.
func (t *Tracker) Refund(ctx context.Context, user *db.User, counter string) error {
	if user.IsPremium() {
		return nil
	}
	return t.usageRepo.Decrement(ctx, user.ID, WeekBucket(t.now()), counter)
}

// Remaining reports how many slots the user has left this week without
// consuming one. Nil for premium users (unlimited).
func (t *Tracker) Remaining(ctx context.Context, user *db.User, counter string) (*int64, error) {
	if user.IsPremium() {
		return nil, nil
	}

	row, err := t.usageRepo.Get(ctx, user.ID, WeekBucket(t.now()))
	if err != nil {
		return nil, err
	}

	var sent int64
	switch counter {
	case repository.CounterMessages:
		sent = row.MessagesSent
	default:
		sent = row.LikesSent
	}

	left := t.capFor(counter) - sent
	if left < 0 {
		left = 0
	}
	return &left, nil
}

// Usage is the sent/remaining pair for one counter. Remaining is nil
// for premium accounts.
type Usage struct {
	Sent      int64  `json:"sent"`
	Remaining *int64 `json:"remaining"`
}

// Stats is the payload behind GET /usage-stats.
type Stats struct {
	PremiumTier db.PremiumTier `json:"premium_tier"`
	IsPremium   bool           `json:"is_premium"`
	Likes       Usage          `json:"likes"`
	Messages    Usage          `json:"messages"`
}

// Stats returns the user's current-week usage for all counters.
func (t *Tracker) Stats(ctx context.Context, user *db.User) (*Stats, error) {
	row, err := t.usageRepo.Get(ctx, user.ID, WeekBucket(t.now()))
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		PremiumTier: user.PremiumTier,
		IsPremium:   user.IsPremium(),
		Likes:       Usage{Sent: row.LikesSent},
		Messages:    Usage{Sent: row.MessagesSent},
	}

	if !user.IsPremium() {
		likesLeft := t.appCtx.Config.Quota.WeeklyLikes - row.LikesSent
		if likesLeft < 0 {
			likesLeft = 0
		}
		msgsLeft := t.appCtx.Config.Quota.WeeklyMessages - row.MessagesSent
		if msgsLeft < 0 {
			msgsLeft = 0
		}
		stats.Likes.Remaining = &likesLeft
		stats.Messages.Remaining = &msgsLeft
	}

	return stats, nil
}
