package account

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/emberapp/ember-backend/internal/app"
	"github.com/emberapp/ember-backend/internal/apperr"
	"github.com/emberapp/ember-backend/internal/db"
	"github.com/emberapp/ember-backend/internal/repository"
)

// Service handles registration, login and profile CRUD.
type Service struct {
	appCtx      *app.AppContext
	userRepo    *repository.UserRepository
	profileRepo *repository.ProfileRepository
}

// NewService creates an account Service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		userRepo:    repository.NewUserRepository(appCtx.DB),
		profileRepo: repository.NewProfileRepository(appCtx.DB),
	}
}

// RegisterInput is the payload for account creation. The initial
// profile is created in the same call so the new user is immediately
// discoverable.
type RegisterInput struct {
	Email       string    `json:"email"`
	Password    string    `json:"password"`
	DisplayName string    `json:"display_name"`
	Gender      string    `json:"gender"`
	DateOfBirth time.Time `json:"date_of_birth"`
}

// Register creates the user and their initial profile, returning a
// signed token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, *db.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return "", nil, apperr.Validationf("a valid email is required")
	}
	if len(in.Password) < 8 {
		return "", nil, apperr.Validationf("password must be at least 8 characters")
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		return "", nil, apperr.Validationf("display_name is required")
	}
	if in.DateOfBirth.IsZero() || age(in.DateOfBirth) < 18 {
		return "", nil, apperr.Validationf("you must be at least 18 years old")
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return "", nil, apperr.ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	user := &db.User{
		Email:        email,
		PasswordHash: string(hash),
		PremiumTier:  db.TierFree,
		Active:       true,
		LastLoginAt:  time.Now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return "", nil, err
	}

	profile := &db.Profile{
		UserID:      user.ID,
		DisplayName: strings.TrimSpace(in.DisplayName),
		Gender:      strings.ToLower(strings.TrimSpace(in.Gender)),
		DateOfBirth: in.DateOfBirth,
	}
	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return "", nil, err
	}

	token, err := s.issueToken(user.ID)
	return token, user, err
}

// Login verifies credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *db.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, apperr.ErrUnauthorized
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, apperr.ErrUnauthorized
	}

	if err := s.userRepo.TouchLastLogin(ctx, user.ID); err != nil {
		s.appCtx.Logger.Warn("last login update failed", "user", user.ID, "err", err)
	}

	token, err := s.issueToken(user.ID)
	return token, user, err
}

// issueToken signs an HS256 JWT with the user id as subject.
func (s *Service) issueToken(userID uint64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.appCtx.Config.JWT.TTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.appCtx.Config.JWT.Secret))
}

// ProfileInput is the payload for profile updates.
type ProfileInput struct {
	DisplayName      string     `json:"display_name"`
	Bio              string     `json:"bio"`
	DateOfBirth      *time.Time `json:"date_of_birth"`
	Gender           string     `json:"gender"`
	HeightCM         int        `json:"height_cm"`
	Interests        []string   `json:"interests"`
	Location         string     `json:"location"`
	Latitude         *float64   `json:"latitude"`
	Longitude        *float64   `json:"longitude"`
	Occupation       string     `json:"occupation"`
	Education        string     `json:"education"`
	RelationshipGoal string     `json:"relationship_goal"`
	Languages        []string   `json:"languages"`
}

// UpdateProfile applies the input on top of the user's existing profile.
// Coordinates must be provided together or not at all: a profile is
// either geolocated or not.
func (s *Service) UpdateProfile(ctx context.Context, userID uint64, in ProfileInput) (*db.Profile, error) {
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return nil, apperr.Validationf("latitude and longitude must be provided together")
	}
	if in.Latitude != nil {
		if *in.Latitude < -90 || *in.Latitude > 90 || *in.Longitude < -180 || *in.Longitude > 180 {
			return nil, apperr.Validationf("coordinates out of range")
		}
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		profile = &db.Profile{UserID: userID}
	}

	if in.DisplayName != "" {
		profile.DisplayName = strings.TrimSpace(in.DisplayName)
	}
	if in.DateOfBirth != nil {
		profile.DateOfBirth = *in.DateOfBirth
	}
	if in.Gender != "" {
		profile.Gender = strings.ToLower(strings.TrimSpace(in.Gender))
	}
	if in.HeightCM > 0 {
		profile.HeightCM = in.HeightCM
	}
	profile.Bio = in.Bio
	if in.Interests != nil {
		profile.Interests = in.Interests
	}
	if in.Languages != nil {
		profile.Languages = in.Languages
	}
	if in.Location != "" {
		profile.Location = in.Location
	}
	if in.Latitude != nil {
		profile.Latitude = in.Latitude
		profile.Longitude = in.Longitude
	}
	if in.Occupation != "" {
		profile.Occupation = in.Occupation
	}
	if in.Education != "" {
		profile.Education = in.Education
	}
	if in.RelationshipGoal != "" {
		profile.RelationshipGoal = in.RelationshipGoal
	}

	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// GetProfile fetches the user's own profile.
func (s *Service) GetProfile(ctx context.Context, userID uint64) (*db.Profile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrProfileNotFound
	}
	return profile, err
}

func age(dob time.Time) int {
	now := time.Now()
	years := now.Year() - dob.Year()
	if dob.AddDate(years, 0, 0).After(now) {
		years--
	}
	return years
}
