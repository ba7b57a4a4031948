package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emberapp/ember-backend/internal/db"
	"github.com/emberapp/ember-backend/internal/utils/pagination"
)

// likeActions is the set of actions that count as a like.
var likeActions = []db.SwipeAction{db.ActionLike, db.ActionSuperLike}

// SwipeRepository provides data access methods for the Swipe model.
// It encapsulates all queries related to like/pass/super-like actions
// between users.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// Upsert inserts or updates the swipe made by actor -> target.
//
// Behavior:
//   - If the (actor_id, target_id) pair exists → the row is updated with
//     the new action (overwrite semantics, at most one row per pair).
//   - If it doesn't exist → a new row is inserted.
func (r *SwipeRepository) Upsert(ctx context.Context, actorID, targetID uint64, action db.SwipeAction) error {
	swipe := db.Swipe{
		ActorID:  actorID,
		TargetID: targetID,
		Action:   action,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"action", "updated_at"}),
		}).
		Create(&swipe).Error
}

// HasLikeFrom checks whether actor has a standing like/super-like toward
// target. Used for mutual-like detection after a swipe is recorded.
func (r *SwipeRepository) HasLikeFrom(ctx context.Context, actorID, targetID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("swipes s").
		Where("s.actor_id = ? AND s.target_id = ? AND s.action IN ?", actorID, targetID, likeActions).
		Count(&count).Error
	return count > 0, err
}

// GetLikers returns all users who liked the given target.
//
// Behavior:
//   - Only swipes with a like/super-like action are returned.
//   - Excludes users that the target explicitly passed.
//   - Ordered by updated_at DESC, actor_id DESC.
//   - Supports cursor-based pagination via paginationToken.
func (r *SwipeRepository) GetLikers(
	ctx context.Context,
	targetID uint64,
	paginationToken *string,
	limit int,
) ([]db.Swipe, *string, error) {
	query := r.likersQuery(ctx, targetID)
	return r.paginate(query, paginationToken, limit)
}

// GetNewLikers returns users who liked the target but have not been
// liked back.
//
// Behavior:
//   - Only like/super-like swipes toward the target are considered.
//   - Excludes mutual likes (target already liked them back).
//   - Excludes users the target explicitly passed.
func (r *SwipeRepository) GetNewLikers(
	ctx context.Context,
	targetID uint64,
	paginationToken *string,
	limit int,
) ([]db.Swipe, *string, error) {
	subQuery := r.db.
		Table("swipes").
		Select("1").
		Where("actor_id = s.target_id AND target_id = s.actor_id AND action IN ?", likeActions)

	query := r.likersQuery(ctx, targetID).
		Where("NOT EXISTS (?)", subQuery)

	return r.paginate(query, paginationToken, limit)
}

// CountLikers returns how many users liked the given target.
// Used in conjunction with the Redis cache (DB is the fallback).
func (r *SwipeRepository) CountLikers(ctx context.Context, targetID uint64) (int64, error) {
	var count int64
	err := r.likersQuery(ctx, targetID).Count(&count).Error
	return count, err
}

// likersQuery builds the base query for "who liked target", excluding
// anyone the target explicitly passed.
func (r *SwipeRepository) likersQuery(ctx context.Context, targetID uint64) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("swipes s").
		Where("s.target_id = ? AND s.action IN ?", targetID, likeActions).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM swipes s2
				WHERE s2.actor_id = ?
				  AND s2.target_id = s.actor_id
				  AND s2.action = ?
			)`, targetID, db.ActionPass)
}

// paginate applies ordering, the decoded cursor and the limit+1 probe,
// and builds the next-page token when more rows remain.
func (r *SwipeRepository) paginate(
	query *gorm.DB,
	paginationToken *string,
	limit int,
) ([]db.Swipe, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query = query.
		Order("s.updated_at DESC, s.actor_id DESC").
		Limit(limit + 1)

	if cursor.UserID > 0 && cursor.UpdatedUnix > 0 {
		ts := time.UnixMilli(cursor.UpdatedUnix)
		query = query.Where(
			"(s.updated_at < ? OR (s.updated_at = ? AND s.actor_id < ?))",
			ts, ts, cursor.UserID,
		)
	}

	var swipes []db.Swipe
	if err := query.Find(&swipes).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(swipes) > limit {
		last := swipes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			UserID:      last.ActorID,
			UpdatedUnix: last.UpdatedAt.UnixMilli(),
		})
		nextToken = &token
		swipes = swipes[:limit]
	}

	return swipes, nextToken, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
