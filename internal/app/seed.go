package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"gatherly/pkg/interfaces"
	"gatherly/pkg/types"
)

// SeedPassword is the password of every seeded account
const SeedPassword = "password123"

var (
	seedFirstNames = []string{"lea", "hugo", "chloe", "louis", "ines", "jules", "manon", "arthur", "camille", "noah"}
	seedLastNames  = []string{"martin", "bernard", "dubois", "thomas", "robert", "richard", "petit", "durand", "leroy", "moreau"}
	seedEventTypes = []string{"Concert", "Jam Session", "Master Class", "Festival", "Showcase", "Open Mic"}
	seedGenres     = []string{"Rock", "Jazz", "Blues", "Classical", "Pop", "Folk", "Soul", "Funk"}
	seedVenues     = []string{"Le Zenith", "La Cigale", "Le Trianon", "Le New Morning", "La Maroquinerie", "Le Bikini"}
	seedCities     = []string{"Paris", "Lyon", "Marseille", "Bordeaux", "Toulouse", "Nantes", "Lille", "Rennes"}
)

// Registrar creates accounts with hashed passwords
type Registrar interface {
	Register(ctx context.Context, req types.RegisterRequest) (*types.User, error)
}

type SeedOptions struct {
	Users  int
	Events int
	// Seed makes runs reproducible
	Seed uint64
	// Now anchors event dates; zero means time.Now
	Now time.Time
}

// SeedResult counts what a run created and what already existed
type SeedResult struct {
	Users         int
	Events        int
	SkippedUsers  int
	SkippedEvents int
}

// Seed fills the database with sample users and upcoming events. Records
// that already exist are skipped, so running it twice is harmless.
func Seed(ctx context.Context, accounts Registrar, events interfaces.EventStore, opts SeedOptions, logger zerolog.Logger) (*SeedResult, error) {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	result := &SeedResult{}
	var organizers []types.UserID

	for i := 0; i < opts.Users; i++ {
		first := seedFirstNames[rng.IntN(len(seedFirstNames))]
		last := seedLastNames[rng.IntN(len(seedLastNames))]
		username := fmt.Sprintf("%s.%s%d", first, last, i)

		user, err := accounts.Register(ctx, types.RegisterRequest{
			Username: username,
			Email:    username + "@example.com",
			Password: SeedPassword,
		})
		switch {
		case errors.Is(err, interfaces.ErrEmailTaken), errors.Is(err, interfaces.ErrUsernameTaken):
			result.SkippedUsers++
			continue
		case err != nil:
			return result, fmt.Errorf("failed to seed user %s: %w", username, err)
		}
		organizers = append(organizers, user.ID)
		result.Users++
	}

	if len(organizers) == 0 && opts.Events > 0 {
		logger.Warn().Msg("no new users created, skipping events")
		return result, nil
	}

	for i := 0; i < opts.Events; i++ {
		kind := seedEventTypes[rng.IntN(len(seedEventTypes))]
		genre := seedGenres[rng.IntN(len(seedGenres))]
		venue := seedVenues[rng.IntN(len(seedVenues))]
		city := seedCities[rng.IntN(len(seedCities))]
		description := fmt.Sprintf("%s of %s music at %s, %s.", kind, genre, venue, city)
		offset := time.Duration(1+rng.IntN(180))*24*time.Hour + time.Duration(rng.IntN(24))*time.Hour

		event := &types.Event{
			Title:       fmt.Sprintf("%s %s - %s %s #%d", kind, genre, venue, city, i+1),
			Description: &description,
			Date:        now.UTC().Add(offset).Truncate(15 * time.Minute),
			Location:    fmt.Sprintf("%s, %s", venue, city),
			OrganizerID: organizers[rng.IntN(len(organizers))],
		}
		err := events.CreateEvent(ctx, event)
		switch {
		case errors.Is(err, interfaces.ErrEventTitleTaken):
			result.SkippedEvents++
			continue
		case err != nil:
			return result, fmt.Errorf("failed to seed event %q: %w", event.Title, err)
		}
		result.Events++
	}

	logger.Info().
		Int("users", result.Users).
		Int("events", result.Events).
		Int("skipped_users", result.SkippedUsers).
		Int("skipped_events", result.SkippedEvents).
		Msg("database seeded")
	return result, nil
}
