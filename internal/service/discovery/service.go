package discovery

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/emberapp/ember-backend/internal/app"
	"github.com/emberapp/ember-backend/internal/apperr"
	"github.com/emberapp/ember-backend/internal/db"
	"github.com/emberapp/ember-backend/internal/geo"
	"github.com/emberapp/ember-backend/internal/repository"
)

// Filters are the optional discovery predicates. All provided filters
// combine with AND semantics.
type Filters struct {
	Category      string
	MinAge        *int
	MaxAge        *int
	Gender        string
	MaxDistanceKm *float64
}

// ProfileCard is a discovery result enriched with the computed distance
// when both sides are geolocated.
type ProfileCard struct {
	UserID           uint64   `json:"user_id"`
	DisplayName      string   `json:"display_name"`
	Age              int      `json:"age"`
	Gender           string   `json:"gender"`
	Bio              string   `json:"bio,omitempty"`
	Interests        []string `json:"interests,omitempty"`
	Photos           []string `json:"photos,omitempty"`
	Location         string   `json:"location,omitempty"`
	Occupation       string   `json:"occupation,omitempty"`
	RelationshipGoal string   `json:"relationship_goal,omitempty"`
	DistanceKm       *float64 `json:"distance_km,omitempty"`
}

// Service is the discovery engine: it surfaces candidate profiles to a
// requesting user, subject to filters and exclusions.
type Service struct {
	appCtx      *app.AppContext
	profileRepo *repository.ProfileRepository

	// now is swappable for age-boundary tests.
	now func() time.Time
}

// NewService creates a discovery Service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		profileRepo: repository.NewProfileRepository(appCtx.DB),
		now:         time.Now,
	}
}

// WithNow overrides the clock. Test hook.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Discover returns a ranked, paginated list of candidate profiles for
// the requester.
//
// Processing:
//  1. The requester must have a profile; otherwise ErrProfileNotFound.
//  2. Self, already-swiped targets and blocked users (either direction)
//     are excluded in the candidate scan.
//  3. Age and gender filters are hard SQL predicates; the category tag
//     is matched against interests in memory.
//  4. Distance is computed only when both requester and candidate are
//     geolocated. MaxDistanceKm gates geolocated candidates only;
//     candidates without coordinates pass through ungated unless
//     configured otherwise.
//  5. Sort: geolocated candidates ascending by distance first, then the
//     rest in recency order. Truncated to limit.
//
// Inverted age bounds yield an empty result, not an error. The limit is
// capped server-side irrespective of the client request.
func (s *Service) Discover(ctx context.Context, requesterID uint64, f Filters, limit int) ([]ProfileCard, error) {
	requester, err := s.profileRepo.GetByUserID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrProfileNotFound
		}
		return nil, err
	}

	if f.MinAge != nil && f.MaxAge != nil && *f.MinAge > *f.MaxAge {
		return []ProfileCard{}, nil
	}

	limit = s.clampLimit(limit)
	now := s.now()

	q := repository.CandidateQuery{
		RequesterID: requesterID,
		Gender:      f.Gender,
	}
	if f.MaxAge != nil {
		// age <= max ⟺ born after now - (max+1) years
		bound := now.AddDate(-(*f.MaxAge + 1), 0, 0).Add(24 * time.Hour)
		q.BornOnOrAfter = &bound
	}
	if f.MinAge != nil {
		// age >= min ⟺ born on or before now - min years
		bound := now.AddDate(-*f.MinAge, 0, 0)
		q.BornOnOrBefore = &bound
	}

	candidates, err := s.profileRepo.FindCandidates(ctx, q)
	if err != nil {
		return nil, err
	}

	category := strings.ToLower(strings.TrimSpace(f.Category))
	includeUngeolocated := s.appCtx.Config.Discovery.IncludeUngeolocated

	cards := make([]ProfileCard, 0, len(candidates))
	for i := range candidates {
		p := &candidates[i]

		if category != "" && !matchesCategory(p, category) {
			continue
		}

		var distance *float64
		if requester.Geolocated() && p.Geolocated() {
			d := geo.DistanceKm(*requester.Latitude, *requester.Longitude, *p.Latitude, *p.Longitude)
			distance = &d
		}

		if f.MaxDistanceKm != nil {
			if distance != nil {
				if *distance > *f.MaxDistanceKm {
					continue
				}
			} else if !p.Geolocated() && !includeUngeolocated {
				continue
			}
		}

		cards = append(cards, ProfileCard{
			UserID:           p.UserID,
			DisplayName:      p.DisplayName,
			Age:              p.AgeAt(now),
			Gender:           p.Gender,
			Bio:              p.Bio,
			Interests:        p.Interests,
			Photos:           p.Photos,
			Location:         p.Location,
			Occupation:       p.Occupation,
			RelationshipGoal: p.RelationshipGoal,
			DistanceKm:       distance,
		})
	}

	// Geolocated candidates nearest-first; the rest keep the scan's
	// recency order behind them.
	sort.SliceStable(cards, func(i, j int) bool {
		di, dj := cards[i].DistanceKm, cards[j].DistanceKm
		switch {
		case di != nil && dj != nil:
			return *di < *dj
		case di != nil:
			return true
		default:
			return false
		}
	})

	if len(cards) > limit {
		cards = cards[:limit]
	}
	return cards, nil
}

func (s *Service) clampLimit(limit int) int {
	cfg := s.appCtx.Config.Discovery
	if limit <= 0 {
		return cfg.DefaultLimit
	}
	if limit > cfg.MaxLimit {
		return cfg.MaxLimit
	}
	return limit
}

// matchesCategory checks the tag against the profile's interests and
// relationship goal, case-insensitively.
func matchesCategory(p *db.Profile, category string) bool {
	for _, interest := range p.Interests {
		if strings.ToLower(interest) == category {
			return true
		}
	}
	return strings.ToLower(p.RelationshipGoal) == category
}
