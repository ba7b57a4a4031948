package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emberapp/ember-backend/internal/db"
)

// ProfileRepository provides data access methods for the Profile model.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// GetByUserID fetches the profile owned by the given user.
// Returns gorm.ErrRecordNotFound if the user has no profile.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uint64) (*db.Profile, error) {
	var profile db.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetByUserIDs fetches profiles for a set of users, keyed by user id.
func (r *ProfileRepository) GetByUserIDs(ctx context.Context, userIDs []uint64) (map[uint64]db.Profile, error) {
	var profiles []db.Profile
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, err
	}
	out := make(map[uint64]db.Profile, len(profiles))
	for _, p := range profiles {
		out[p.UserID] = p
	}
	return out, nil
}

// Upsert inserts the profile or updates it in place for an existing user.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *db.Profile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"display_name", "bio", "date_of_birth", "gender", "height_cm",
				"interests", "location", "latitude", "longitude", "photos",
				"primary_photo", "occupation", "education", "relationship_goal",
				"languages", "updated_at",
			}),
		}).
		Create(profile).Error
}

// AppendPhoto adds a photo URL to the end of the profile's photo list.
func (r *ProfileRepository) AppendPhoto(ctx context.Context, userID uint64, url string) error {
	profile, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	profile.Photos = append(profile.Photos, url)
	return r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("user_id = ?", userID).
		Update("photos", profile.Photos).Error
}

// CandidateQuery holds the hard SQL predicates for discovery.
// Category and distance filtering happen in the engine after the scan.
type CandidateQuery struct {
	RequesterID    uint64
	Gender         string
	BornOnOrAfter  *time.Time // upper age bound (inclusive)
	BornOnOrBefore *time.Time // lower age bound (inclusive)
}

// FindCandidates returns profiles eligible for discovery by the requester.
//
// Behavior:
//   - Excludes the requester's own profile.
//   - Excludes any target the requester already swiped (any action).
//   - Excludes targets blocked in either direction.
//   - Applies gender and date-of-birth bounds as hard predicates.
//   - Ordered by updated_at DESC, user_id DESC (recency).
func (r *ProfileRepository) FindCandidates(ctx context.Context, q CandidateQuery) ([]db.Profile, error) {
	query := r.db.WithContext(ctx).
		Table("profiles p").
		Where("p.user_id <> ?", q.RequesterID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM swipes s
				WHERE s.actor_id = ?
				  AND s.target_id = p.user_id
			)`, q.RequesterID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM blocks b
				WHERE (b.blocker_id = ? AND b.blocked_id = p.user_id)
				   OR (b.blocker_id = p.user_id AND b.blocked_id = ?)
			)`, q.RequesterID, q.RequesterID).
		Order("p.updated_at DESC, p.user_id DESC")

	if q.Gender != "" {
		query = query.Where("p.gender = ?", q.Gender)
	}
	if q.BornOnOrAfter != nil {
		query = query.Where("p.date_of_birth >= ?", *q.BornOnOrAfter)
	}
	if q.BornOnOrBefore != nil {
		query = query.Where("p.date_of_birth <= ?", *q.BornOnOrBefore)
	}

	var profiles []db.Profile
	if err := query.Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}
