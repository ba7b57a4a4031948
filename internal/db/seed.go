package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type seedCity struct {
	name     string
	lat, lon float64
}

var seedCities = []seedCity{
	{"Basel", 47.5596, 7.5886},
	{"Zurich", 47.3769, 8.5417},
	{"Bern", 46.9480, 7.4474},
	{"Geneva", 46.2044, 6.1432},
	{"Lausanne", 46.5197, 6.6323},
}

var seedInterests = []string{"hiking", "cooking", "travel", "music", "film", "yoga", "climbing", "coffee"}

// SeedTestData resets the database and populates it with demo users,
// profiles and swipes.
//
// Behavior:
//  1. Clears users, profiles, swipes, matches, usage_counters.
//  2. Creates 20 users (10 male, 10 female) with hashed passwords and
//     geolocated profiles; every 5th profile is left without coordinates.
//  3. Generates swipes with ~70% likes; every 3rd pair gets a reciprocal
//     like and its match row.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"messages", "matches", "swipes", "usage_counters", "blocks", "profiles", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE profiles AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('users', 'profiles', 'matches', 'messages')")
	}

	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	for i := 1; i <= 20; i++ {
		gender := "male"
		if i > 10 {
			gender = "female"
		}

		tier := TierFree
		if i%7 == 0 {
			tier = TierPlus
		}

		user := User{
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			PremiumTier:  tier,
			Active:       true,
			LastLoginAt:  time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		profile := Profile{
			UserID:      user.ID,
			DisplayName: fmt.Sprintf("User %d", i),
			Bio:         "Seeded demo profile",
			DateOfBirth: time.Date(time.Now().Year()-18-r.Intn(20), time.Month(1+r.Intn(12)), 1+r.Intn(28), 0, 0, 0, 0, time.UTC),
			Gender:      gender,
			HeightCM:    150 + r.Intn(50),
			Interests:   StringList{seedInterests[r.Intn(len(seedInterests))], seedInterests[r.Intn(len(seedInterests))]},
			Languages:   StringList{"en"},
		}

		city := seedCities[i%len(seedCities)]
		profile.Location = city.name
		if i%5 != 0 {
			lat, lon := city.lat, city.lon
			profile.Latitude = &lat
			profile.Longitude = &lon
		}

		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
	}
	log.Println("Seeded 20 users with profiles.")

	var users []User
	if err := db.Order("id").Find(&users).Error; err != nil {
		return err
	}

	counter := 0
	for _, actor := range users {
		for j := 0; j < 6; j++ {
			target := users[r.Intn(len(users))]
			if actor.ID == target.ID {
				continue
			}

			action := ActionPass
			if r.Intn(100) < 70 {
				action = ActionLike
			}

			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				action = ActionLike
				recip := Swipe{ActorID: target.ID, TargetID: actor.ID, Action: ActionLike}
				db.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
					DoUpdates: clause.AssignmentColumns([]string{"action", "updated_at"}),
				}).Create(&recip)

				a, b := actor.ID, target.ID
				if b < a {
					a, b = b, a
				}
				db.Clauses(clause.OnConflict{DoNothing: true}).Create(&Match{UserAID: a, UserBID: b})
			}

			swipe := Swipe{ActorID: actor.ID, TargetID: target.ID, Action: action}
			if err := db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"action", "updated_at"}),
			}).Create(&swipe).Error; err != nil {
				return fmt.Errorf("failed to seed swipe: %w", err)
			}

			counter++
		}
	}

	return nil
}
