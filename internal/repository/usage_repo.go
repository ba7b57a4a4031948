package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emberapp/ember-backend/internal/db"
)

// Counter names map directly onto usage_counters columns. The whitelist
// keeps column names out of caller control.
const (
	CounterLikes    = "likes_sent"
	CounterMessages = "messages_sent"
)

func validCounter(name string) bool {
	return name == CounterLikes || name == CounterMessages
}

// UsageRepository provides atomic access to the per-user weekly counters.
// All cap enforcement happens here via conditional updates so parallel
// requests across server instances cannot overshoot a cap.
type UsageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new repository bound to the given DB connection.
func NewUsageRepository(database *gorm.DB) *UsageRepository {
	return &UsageRepository{db: database}
}

// IncrementWithCap atomically increments the named counter for
// (userID, bucket) if and only if the counter is below cap.
//
// Behavior:
//   - Conditional UPDATE ... SET n = n+1 WHERE n < cap. A zero rows
//     result means either the row does not exist yet or the cap is hit.
//   - Missing rows are created with insert-ignore and the update is
//     retried once, which covers the concurrent-first-increment race.
//
// Returns allowed = false with the current count when the cap is hit;
// the counter is left untouched in that case.
func (r *UsageRepository) IncrementWithCap(
	ctx context.Context,
	userID uint64,
	bucket string,
	counter string,
	limit int64,
) (allowed bool, newCount int64, err error) {
	if !validCounter(counter) {
		return false, 0, fmt.Errorf("unknown usage counter %q", counter)
	}

	for attempt := 0; attempt < 2; attempt++ {
		res := r.db.WithContext(ctx).Exec(
			// #nosec: counter is whitelisted above
			fmt.Sprintf(
				"UPDATE usage_counters SET %s = %s + 1, updated_at = CURRENT_TIMESTAMP WHERE user_id = ? AND week_bucket = ? AND %s < ?",
				counter, counter, counter,
			),
			userID, bucket, limit,
		)
		if res.Error != nil {
			return false, 0, res.Error
		}
		if res.RowsAffected > 0 {
			count, err := r.count(ctx, userID, bucket, counter)
			return true, count, err
		}

		// Row missing or cap hit; try to create the week's row.
		row := db.UsageCounter{UserID: userID, WeekBucket: bucket}
		create := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "week_bucket"}},
				DoNothing: true,
			}).
			Create(&row)
		if create.Error != nil {
			return false, 0, create.Error
		}
		// Loop retries the conditional update against the now-present row.
	}

	count, err := r.count(ctx, userID, bucket, counter)
	return false, count, err
}

// Decrement undoes one increment, flooring at zero. Used as compensation
// when a quota slot was consumed but the guarded write failed.
func (r *UsageRepository) Decrement(ctx context.Context, userID uint64, bucket, counter string) error {
	if !validCounter(counter) {
		return fmt.Errorf("unknown usage counter %q", counter)
	}
	return r.db.WithContext(ctx).Exec(
		fmt.Sprintf(
			"UPDATE usage_counters SET %s = %s - 1 WHERE user_id = ? AND week_bucket = ? AND %s > 0",
			counter, counter, counter,
		),
		userID, bucket,
	).Error
}

// Get returns the counter row for (userID, bucket). A missing row is
// returned as a zero-valued counter, not an error.
func (r *UsageRepository) Get(ctx context.Context, userID uint64, bucket string) (*db.UsageCounter, error) {
	var row db.UsageCounter
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND week_bucket = ?", userID, bucket).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &db.UsageCounter{UserID: userID, WeekBucket: bucket}, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *UsageRepository) count(ctx context.Context, userID uint64, bucket, counter string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.UsageCounter{}).
		Select(counter).
		Where("user_id = ? AND week_bucket = ?", userID, bucket).
		Scan(&count).Error
	return count, err
}
