package swipe

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/emberapp/ember-backend/internal/app"
	"github.com/emberapp/ember-backend/internal/apperr"
	"github.com/emberapp/ember-backend/internal/db"
	"github.com/emberapp/ember-backend/internal/repository"
	"github.com/emberapp/ember-backend/internal/service/quota"
)

// Result is the outcome of a recorded swipe.
// RemainingLikes is nil for premium actors (unlimited) and for passes
// it reflects the current count without consuming a slot.
type Result struct {
	IsMatch        bool   `json:"is_match"`
	RemainingLikes *int64 `json:"remaining_likes"`
}

// MatchEvent is published to both participants when a match is created.
type MatchEvent struct {
	Type        string `json:"type"`
	MatchUserID uint64 `json:"match_user_id"`
}

// Service implements the swipe processor: it records like/pass/super-like
// actions, enforces the weekly like quota for non-premium actors, and
// detects mutual-like matches.
type Service struct {
	appCtx      *app.AppContext
	userRepo    *repository.UserRepository
	profileRepo *repository.ProfileRepository
	swipeRepo   *repository.SwipeRepository
	matchRepo   *repository.MatchRepository
	tracker     *quota.Tracker
}

// NewService creates a swipe Service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		userRepo:    repository.NewUserRepository(appCtx.DB),
		profileRepo: repository.NewProfileRepository(appCtx.DB),
		swipeRepo:   repository.NewSwipeRepository(appCtx.DB),
		matchRepo:   repository.NewMatchRepository(appCtx.DB),
		tracker:     quota.NewTracker(appCtx),
	}
}

// Tracker exposes the quota tracker for test clock overrides.
func (s *Service) Tracker() *quota.Tracker { return s.tracker }

// Swipe records the actor's action against the target.
//
// Behavior:
//   - Self-swipe fails with ErrInvalidTarget; a target without a profile
//     fails with ErrProfileNotFound.
//   - For like/super-like by a non-premium actor the weekly quota is
//     consumed atomically before the write; at the cap the swipe is not
//     recorded and ErrQuotaExceeded is returned.
//   - The (actor, target) swipe row is upserted: a repeat swipe
//     overwrites the prior action.
//   - A standing reverse like makes the pair a match. Match creation is
//     insert-ignore on the canonical pair, so concurrent swipes from
//     both sides produce exactly one match row.
func (s *Service) Swipe(ctx context.Context, actorID, targetID uint64, action db.SwipeAction) (*Result, error) {
	if !action.Valid() {
		return nil, apperr.Validationf("action must be one of like, pass, super_like")
	}
	if actorID == targetID {
		return nil, apperr.InvalidTargetf("cannot swipe on yourself")
	}

	if _, err := s.profileRepo.GetByUserID(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrProfileNotFound
		}
		return nil, err
	}

	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var remaining *int64
	if action.IsLike() {
		allowed, left, err := s.tracker.CheckAndIncrement(ctx, actor, repository.CounterLikes)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, apperr.ErrQuotaExceeded
		}
		remaining = left
	} else {
		if remaining, err = s.tracker.Remaining(ctx, actor, repository.CounterLikes); err != nil {
			return nil, err
		}
	}

	if err := s.swipeRepo.Upsert(ctx, actorID, targetID, action); err != nil {
		if action.IsLike() {
			// Give the consumed slot back; the swipe was never recorded.
			if rerr := s.tracker.Refund(ctx, actor, repository.CounterLikes); rerr != nil {
				s.appCtx.Logger.Error("quota refund failed", "actor", actorID, "err", rerr)
			}
		}
		return nil, err
	}

	// The target's cached liker count is stale either way now.
	if err := s.appCtx.RedisCache.InvalidateLikerCount(ctx, targetID); err != nil {
		s.appCtx.Logger.Warn("liker count invalidation failed", "target", targetID, "err", err)
	}

	result := &Result{RemainingLikes: remaining}

	if action.IsLike() {
		mutual, err := s.swipeRepo.HasLikeFrom(ctx, targetID, actorID)
		if err != nil {
			return nil, err
		}
		if mutual {
			created, err := s.matchRepo.Ensure(ctx, actorID, targetID)
			if err != nil {
				return nil, err
			}
			result.IsMatch = true
			if created {
				s.publishMatch(ctx, actorID, targetID)
			}
		}
	}

	return result, nil
}

// publishMatch notifies both participants over the realtime channel.
func (s *Service) publishMatch(ctx context.Context, a, b uint64) {
	for _, pair := range [][2]uint64{{a, b}, {b, a}} {
		event := MatchEvent{Type: "match", MatchUserID: pair[1]}
		if err := s.appCtx.RedisCache.PublishEvent(ctx, pair[0], event); err != nil {
			s.appCtx.Logger.Warn("match event publish failed", "user", pair[0], "err", err)
		}
	}
}
