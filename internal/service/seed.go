package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/hypeshelf/internal/model"
	"github.com/sakif/hypeshelf/internal/repository"
)

// SeedSentinelSubject marks a seeded database: if a user with this subject
// exists, seeding is skipped.
const SeedSentinelSubject = "seed_user_1"

// seedUsers and seedRecommendations are the demo data set. Exactly one
// recommendation is flagged so the data respects the single staff pick rule.
var (
	seedUsers = []repository.SeedUser{
		{Subject: SeedSentinelSubject, DisplayName: "Alex", Role: model.RoleUser},
		{Subject: "seed_user_2", DisplayName: "Sam", Role: model.RoleUser},
		{Subject: "seed_admin_1", DisplayName: "Jordan (Admin)", Role: model.RoleAdmin},
	}

	seedRecommendations = []repository.SeedRecommendation{
		{
			OwnerSubject: SeedSentinelSubject,
			Title:        "Dune: Part Two",
			Genre:        model.GenreSciFi,
			Link:         "https://www.imdb.com/title/tt15239678/",
			Blurb:        "Epic adaptation of the novel. Stunning visuals and a solid cast.",
			Age:          5 * time.Hour,
		},
		{
			OwnerSubject: SeedSentinelSubject,
			Title:        "The Bear",
			Genre:        model.GenreDrama,
			Link:         "https://www.imdb.com/title/tt14452776/",
			Blurb:        "High-pressure kitchen drama. Intense and rewarding.",
			Age:          4 * time.Hour,
		},
		{
			OwnerSubject: "seed_user_2",
			Title:        "Past Lives",
			Genre:        model.GenreDrama,
			Blurb:        "Quiet, moving story about connection and paths not taken.",
			Age:          3 * time.Hour,
		},
		{
			OwnerSubject: "seed_user_2",
			Title:        "Godzilla Minus One",
			Genre:        model.GenreAction,
			Link:         "https://www.imdb.com/title/tt23289160/",
			Blurb:        "Best Godzilla film in years. Emotional and thrilling.",
			Age:          2 * time.Hour,
		},
		{
			OwnerSubject: "seed_admin_1",
			Title:        "Shōgun",
			Genre:        model.GenreDrama,
			Link:         "https://www.imdb.com/title/tt2788316/",
			Blurb:        "Stunning historical epic. A must-watch.",
			IsStaffPick:  true,
			Age:          time.Hour,
		},
		{
			OwnerSubject: "seed_admin_1",
			Title:        "Hereditary",
			Genre:        model.GenreHorror,
			Blurb:        "Deeply unsettling family horror. Sticks with you.",
		},
	}
)

// SeedService loads the demo data set.
type SeedService struct {
	seeder repository.Seeder
	feed   *FeedCache
	logger *slog.Logger
}

// NewSeedService creates a SeedService. feed may be nil.
func NewSeedService(seeder repository.Seeder, feed *FeedCache, logger *slog.Logger) *SeedService {
	return &SeedService{seeder: seeder, feed: feed, logger: logger}
}

// Seed inserts the demo data unless it is already present. The second and
// later calls report zero insertions.
func (s *SeedService) Seed(ctx context.Context) (model.SeedResult, error) {
	result, err := s.seeder.SeedIfAbsent(ctx, SeedSentinelSubject, seedUsers, seedRecommendations)
	if err != nil {
		return model.SeedResult{}, fmt.Errorf("seeding: %w", err)
	}

	if result.RecommendationsInserted > 0 {
		s.feed.Invalidate()
	}

	s.logger.Info("seed finished",
		slog.Int("usersInserted", result.UsersInserted),
		slog.Int("recommendationsInserted", result.RecommendationsInserted),
	)
	return result, nil
}
