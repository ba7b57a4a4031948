package db

import (
	"time"
)

// PremiumTier is the account's subscription level. Anything above free
// lifts the weekly quotas entirely.
type PremiumTier string

const (
	TierFree PremiumTier = "free"
	TierPlus PremiumTier = "plus"
	TierGold PremiumTier = "gold"
)

// SwipeAction is the decision an actor records against a target.
type SwipeAction string

const (
	ActionLike      SwipeAction = "like"
	ActionPass      SwipeAction = "pass"
	ActionSuperLike SwipeAction = "super_like"
)

// Valid reports whether the action is one of the known values.
func (a SwipeAction) Valid() bool {
	switch a {
	case ActionLike, ActionPass, ActionSuperLike:
		return true
	}
	return false
}

// IsLike reports whether the action counts as a like for quota and
// match purposes. Passes never consume quota and never match.
func (a SwipeAction) IsLike() bool {
	return a == ActionLike || a == ActionSuperLike
}

// User table
type User struct {
	ID            uint64      `gorm:"primaryKey;autoIncrement"`
	Email         string      `gorm:"uniqueIndex;size:128;not null"`
	Phone         *string     `gorm:"uniqueIndex;size:32"`
	PasswordHash  string      `gorm:"size:255;not null"`
	EmailVerified bool        `gorm:"default:false"`
	PhoneVerified bool        `gorm:"default:false"`
	PremiumTier   PremiumTier `gorm:"size:16;not null;default:free"`
	Active        bool        `gorm:"default:true"`
	LastLoginAt   time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// IsPremium reports whether weekly quotas are bypassed for this account.
func (u *User) IsPremium() bool { return u.PremiumTier != TierFree && u.PremiumTier != "" }

// Profile is the one-to-one public-facing document for a user.
//
// Latitude/Longitude are either both set or both nil: a profile is
// either geolocated or not, and discovery only computes distance when
// both sides are geolocated.
type Profile struct {
	ID               uint64     `gorm:"primaryKey;autoIncrement"`
	UserID           uint64     `gorm:"uniqueIndex;not null"`
	DisplayName      string     `gorm:"size:64;not null"`
	Bio              string     `gorm:"size:1024"`
	DateOfBirth      time.Time  `gorm:"not null"`
	Gender           string     `gorm:"size:16;index"`
	HeightCM         int
	Interests        StringList `gorm:"type:text;serializer:json"`
	Location         string     `gorm:"size:128"`
	Latitude         *float64
	Longitude        *float64
	Photos           StringList `gorm:"type:text;serializer:json"`
	PrimaryPhoto     int
	Occupation       string     `gorm:"size:128"`
	Education        string     `gorm:"size:128"`
	RelationshipGoal string     `gorm:"size:64"`
	Languages        StringList `gorm:"type:text;serializer:json"`
	CreatedAt        time.Time  `gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime;index:idx_profiles_updated,sort:desc"`
}

// StringList is stored as a JSON array in a text column.
type StringList []string

// Geolocated reports whether both coordinates are present.
func (p *Profile) Geolocated() bool { return p.Latitude != nil && p.Longitude != nil }

// AgeAt returns the profile's age in whole years at the given time.
func (p *Profile) AgeAt(now time.Time) int {
	age := now.Year() - p.DateOfBirth.Year()
	anniversary := p.DateOfBirth.AddDate(age, 0, 0)
	if anniversary.After(now) {
		age--
	}
	return age
}

// Swipe represents an actor's recorded action against a target.
//
// Composite PK: (ActorID, TargetID) — a single row per pair, so a
// repeat swipe overwrites the previous action.
//
// idx_target_action(target_id, action) optimizes reverse-like lookups
// for match detection and "who liked me" listings.
type Swipe struct {
	ActorID   uint64      `gorm:"primaryKey"`
	TargetID  uint64      `gorm:"primaryKey;index:idx_target_action,priority:1"`
	Action    SwipeAction `gorm:"size:16;not null;index:idx_target_action,priority:2"`
	CreatedAt time.Time   `gorm:"autoCreateTime"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime;index:idx_swipes_updated,sort:desc"`
}

// Match is the mutual-like relationship for an unordered user pair.
//
// Canonical form: UserAID < UserBID, with a unique index on the pair so
// concurrent opposite-direction swipes cannot create duplicates.
type Match struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserAID   uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:1"`
	UserBID   uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:2;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// UsageCounter holds per-user weekly counters for rate-limited actions.
//
// The week bucket is part of the row identity: a new ISO week means no
// row exists yet, which is logically a zero counter. No reset job.
type UsageCounter struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	UserID       uint64    `gorm:"not null;uniqueIndex:idx_usage_user_week,priority:1"`
	WeekBucket   string    `gorm:"size:12;not null;uniqueIndex:idx_usage_user_week,priority:2"`
	LikesSent    int64     `gorm:"not null;default:0"`
	MessagesSent int64     `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Block hides two users from each other's discovery in both directions.
type Block struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	BlockerID uint64    `gorm:"not null;uniqueIndex:idx_block_pair,priority:1"`
	BlockedID uint64    `gorm:"not null;uniqueIndex:idx_block_pair,priority:2;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Message is a chat message between two matched users.
type Message struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	SenderID    uint64    `gorm:"not null;index:idx_msg_pair,priority:1"`
	RecipientID uint64    `gorm:"not null;index:idx_msg_pair,priority:2"`
	Body        string    `gorm:"size:2048;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index:idx_msg_created,sort:desc"`
}
