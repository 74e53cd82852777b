// Package repository declares the storage interfaces the service layer
// depends on. internal/repository/sqlite provides the implementation; tests
// use in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/hypeshelf/internal/model"
)

// ListOptions narrows a recommendation listing. Zero values mean "no filter";
// Limit <= 0 means "no limit".
type ListOptions struct {
	Limit   int
	OwnerID string
	Genre   model.Genre
}

// UserRepository stores User records keyed by external subject.
type UserRepository interface {
	// CreateUser inserts a new user. Returns apperror.ErrConflict when the
	// subject already exists.
	CreateUser(ctx context.Context, user *model.User) error
	// UpsertBySubject creates or overwrites display name, image and role
	// for user.Subject in one statement.
	UpsertBySubject(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserBySubject(ctx context.Context, subject string) (*model.User, error)
}

// RecommendationRepository stores Recommendation records.
type RecommendationRepository interface {
	CreateRecommendation(ctx context.Context, rec *model.Recommendation) error
	GetRecommendation(ctx context.Context, id string) (*model.Recommendation, error)
	// ListRecommendations returns recommendations joined with their owner,
	// newest first (created_at DESC, id DESC).
	ListRecommendations(ctx context.Context, opts ListOptions) ([]model.RecommendationWithUser, error)
	DeleteRecommendation(ctx context.Context, id string) error
	// SetStaffPick clears any other staff pick and marks id in one
	// transaction.
	SetStaffPick(ctx context.Context, id string) error
}

// SeedUser is a user row to insert during seeding.
type SeedUser struct {
	Subject     string
	DisplayName string
	ImageURL    string
	Role        model.Role
}

// SeedRecommendation references its owner by subject so the seed data can be
// declared before any ids exist.
type SeedRecommendation struct {
	OwnerSubject string
	Title        string
	Genre        model.Genre
	Link         string
	Blurb        string
	IsStaffPick  bool
	Age          time.Duration // how long before the seeding time it was posted
}

// Seeder inserts a fixed data set once.
type Seeder interface {
	// SeedIfAbsent inserts users and recommendations in one transaction
	// unless a user with sentinelSubject already exists, in which case it
	// inserts nothing and returns a zero result. Seed subjects that already
	// exist are reused rather than overwritten, and a flagged seed
	// recommendation replaces any current staff pick.
	SeedIfAbsent(ctx context.Context, sentinelSubject string, users []SeedUser, recs []SeedRecommendation) (model.SeedResult, error)
}
