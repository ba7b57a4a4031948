package swipe

import (
	"context"
	"strconv"
	"time"

	"github.com/emberapp/ember-backend/internal/db"
)

const (
	likersPageSize = 20
	likerCountTTL  = time.Hour
)

// Liker is one entry in a "who liked you" listing.
type Liker struct {
	UserID        uint64 `json:"user_id"`
	UnixTimestamp int64  `json:"unix_timestamp"`
}

// LikersPage is a cursor-paginated liker listing.
type LikersPage struct {
	Likers              []Liker `json:"likers"`
	NextPaginationToken *string `json:"next_pagination_token,omitempty"`
}

// ListLikedYou returns users who liked the given user, excluding anyone
// the user explicitly passed. Cursor-paginated.
func (s *Service) ListLikedYou(ctx context.Context, userID uint64, token *string) (*LikersPage, error) {
	swipes, next, err := s.swipeRepo.GetLikers(ctx, userID, token, likersPageSize)
	if err != nil {
		return nil, err
	}
	return likersPage(swipes, next), nil
}

// ListNewLikedYou returns users who liked the given user but have not
// been liked back yet.
func (s *Service) ListNewLikedYou(ctx context.Context, userID uint64, token *string) (*LikersPage, error) {
	swipes, next, err := s.swipeRepo.GetNewLikers(ctx, userID, token, likersPageSize)
	if err != nil {
		return nil, err
	}
	return likersPage(swipes, next), nil
}

func likersPage(swipes []db.Swipe, next *string) *LikersPage {
	likers := make([]Liker, 0, len(swipes))
	for _, sw := range swipes {
		likers = append(likers, Liker{
			UserID:        sw.ActorID,
			UnixTimestamp: sw.UpdatedAt.UnixMilli(),
		})
	}
	return &LikersPage{Likers: likers, NextPaginationToken: next}
}

// CountLikedYou returns how many users liked the given user.
// Cache-first: reads the Redis counter, falling back to the DB and
// repopulating the cache with a TTL on a miss.
func (s *Service) CountLikedYou(ctx context.Context, userID uint64) (int64, error) {
	key := s.appCtx.RedisCache.KeyForLikerCount(userID)

	if cached, _ := s.appCtx.RedisCache.Get(ctx, key); cached != "" {
		if n, err := strconv.ParseInt(cached, 10, 64); err == nil {
			return n, nil
		}
	}

	count, err := s.swipeRepo.CountLikers(ctx, userID)
	if err != nil {
		return 0, err
	}

	if err := s.appCtx.RedisCache.Set(ctx, key, strconv.FormatInt(count, 10), likerCountTTL); err != nil {
		s.appCtx.Logger.Warn("liker count cache set failed", "user", userID, "err", err)
	}

	return count, nil
}

// MatchCard pairs a match with the other participant's display info.
type MatchCard struct {
	MatchID     uint64    `json:"match_id"`
	UserID      uint64    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	MatchedAt   time.Time `json:"matched_at"`
}

// ListMatches returns the user's matches, newest first, with the other
// participant's profile name attached.
func (s *Service) ListMatches(ctx context.Context, userID uint64) ([]MatchCard, error) {
	matches, err := s.matchRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	otherIDs := make([]uint64, 0, len(matches))
	for _, m := range matches {
		otherIDs = append(otherIDs, otherUser(m, userID))
	}

	profiles := map[uint64]db.Profile{}
	if len(otherIDs) > 0 {
		if profiles, err = s.profileRepo.GetByUserIDs(ctx, otherIDs); err != nil {
			return nil, err
		}
	}

	cards := make([]MatchCard, 0, len(matches))
	for _, m := range matches {
		other := otherUser(m, userID)
		cards = append(cards, MatchCard{
			MatchID:     m.ID,
			UserID:      other,
			DisplayName: profiles[other].DisplayName,
			MatchedAt:   m.CreatedAt,
		})
	}
	return cards, nil
}

func otherUser(m db.Match, userID uint64) uint64 {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}
