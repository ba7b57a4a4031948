package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emberapp/ember-backend/internal/db"
)

// MatchRepository provides data access methods for the Match model.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// canonicalPair orders two user ids so the unordered pair {a, b} always
// maps to the same (UserAID, UserBID) row.
func canonicalPair(a, b uint64) (uint64, uint64) {
	if b < a {
		return b, a
	}
	return a, b
}

// Ensure creates the match for the unordered pair {a, b} if it does not
// exist yet. Insert-ignore against the unique pair index makes this
// safe under concurrent opposite-direction swipes: exactly one row can
// ever exist per pair.
//
// Returns created = true only for the call that inserted the row.
func (r *MatchRepository) Ensure(ctx context.Context, a, b uint64) (created bool, err error) {
	ua, ub := canonicalPair(a, b)
	match := db.Match{UserAID: ua, UserBID: ub}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
			DoNothing: true,
		}).
		Create(&match)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ExistsForPair reports whether the unordered pair {a, b} is matched.
func (r *MatchRepository) ExistsForPair(ctx context.Context, a, b uint64) (bool, error) {
	ua, ub := canonicalPair(a, b)
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("user_a_id = ? AND user_b_id = ?", ua, ub).
		Count(&count).Error
	return count > 0, err
}

// ListForUser returns all matches the user participates in, newest first.
func (r *MatchRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}
