// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services take repository interfaces, never *sqlite.DB, so tests inject
// in-memory fakes and the handlers never see SQL.
//
// IDENTITY:
// Every method that needs a caller takes a *model.Identity. nil means the
// request carried no verified identity. The role used for authorization is
// always re-read from the stored user keyed by identity.Subject; nothing in a
// request body is trusted for ownership or role.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/hypeshelf/internal/apperror"
	"github.com/sakif/hypeshelf/internal/model"
	"github.com/sakif/hypeshelf/internal/policy"
	"github.com/sakif/hypeshelf/internal/repository"
)

// Public feed limits.
const (
	DefaultLatestLimit = 10
	MaxLatestLimit     = 100
)

// ListFilter narrows the dashboard listing.
type ListFilter struct {
	Genre model.Genre // empty = all genres
	Mine  bool        // only the caller's own recommendations
}

// RecommendationService handles business logic for recommendations.
type RecommendationService struct {
	recs   repository.RecommendationRepository
	users  *UserService
	feed   *FeedCache
	logger *slog.Logger
}

// NewRecommendationService creates a RecommendationService. feed may be nil,
// in which case the public feed always reads through to the store.
func NewRecommendationService(
	recs repository.RecommendationRepository,
	users *UserService,
	feed *FeedCache,
	logger *slog.Logger,
) *RecommendationService {
	return &RecommendationService{
		recs:   recs,
		users:  users,
		feed:   feed,
		logger: logger,
	}
}

// ListLatestPublic returns the newest recommendations for the public feed.
//
// No identity is needed. limit <= 0 means DefaultLatestLimit and anything above
// MaxLatestLimit is clamped. A store failure is logged and turned into an
// empty feed so the public page keeps rendering; this is the only read that
// swallows errors.
func (s *RecommendationService) ListLatestPublic(ctx context.Context, limit int) []model.RecommendationWithUser {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	if limit > MaxLatestLimit {
		limit = MaxLatestLimit
	}

	if cached, ok := s.feed.Get(limit); ok {
		return cached
	}
	gen := s.feed.Generation()

	recs, err := s.recs.ListRecommendations(ctx, repository.ListOptions{Limit: limit})
	if err != nil {
		s.logger.Error("public feed unavailable, serving empty list",
			slog.Int("limit", limit),
			slog.String("error", err.Error()),
		)
		return []model.RecommendationWithUser{}
	}
	if recs == nil {
		recs = []model.RecommendationWithUser{}
	}

	s.feed.Set(limit, recs, gen)
	return recs
}

// ListAllForViewer returns every recommendation, newest first, to any
// authenticated caller. Without an identity the result is empty rather than
// an error. Visibility does not depend on role.
func (s *RecommendationService) ListAllForViewer(ctx context.Context, identity *model.Identity, filter ListFilter) ([]model.RecommendationWithUser, error) {
	if identity == nil || identity.Subject == "" {
		return []model.RecommendationWithUser{}, nil
	}

	if filter.Genre != "" && !filter.Genre.Valid() {
		return nil, apperror.ValidationFailed("genre", validationMessage("genre", "oneof"))
	}

	opts := repository.ListOptions{Genre: filter.Genre}

	if filter.Mine {
		user, err := s.users.CurrentUser(ctx, identity)
		if err != nil {
			return nil, err
		}
		if user == nil {
			// Never materialized, so nothing can be theirs.
			return []model.RecommendationWithUser{}, nil
		}
		opts.OwnerID = user.ID
	}

	recs, err := s.recs.ListRecommendations(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing recommendations: %w", err)
	}
	if recs == nil {
		recs = []model.RecommendationWithUser{}
	}
	return recs, nil
}

// Create validates input and stores a new recommendation owned by the caller.
//
// Fields are trimmed before validation, so "  Dune  " is stored as "Dune" and
// a title of only spaces is rejected as missing. An empty link is stored as
// absent. Owner, creation time and the staff-pick flag come from the server.
func (s *RecommendationService) Create(ctx context.Context, identity *model.Identity, in CreateInput) (string, error) {
	if identity == nil || identity.Subject == "" {
		return "", apperror.Unauthenticated()
	}

	in.normalize()
	if err := validateCreate(&in); err != nil {
		return "", err
	}

	user, err := s.users.ResolveOrCreate(ctx, identity)
	if err != nil {
		return "", err
	}

	rec := &model.Recommendation{
		OwnerID: user.ID,
		Title:   in.Title,
		Genre:   model.Genre(in.Genre),
		Link:    in.Link,
		Blurb:   in.Blurb,
	}
	if err := s.recs.CreateRecommendation(ctx, rec); err != nil {
		s.logger.Error("failed to create recommendation",
			slog.String("ownerID", user.ID),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("creating recommendation: %w", err)
	}
	s.feed.Invalidate()

	s.logger.Info("recommendation created",
		slog.String("id", rec.ID),
		slog.String("ownerID", rec.OwnerID),
		slog.String("genre", string(rec.Genre)),
	)
	return rec.ID, nil
}

// Delete removes a recommendation. Only its owner or an admin may do so.
func (s *RecommendationService) Delete(ctx context.Context, identity *model.Identity, id string) error {
	user, rec, err := s.loadForMutation(ctx, identity, id)
	if err != nil {
		return err
	}

	if !policy.CanDelete(user.Role, policy.IsOwner(user.ID, rec.OwnerID)) {
		s.logger.Warn("delete refused",
			slog.String("userID", user.ID),
			slog.String("recommendationID", rec.ID),
		)
		return apperror.Forbidden("only the owner or an admin can delete this recommendation")
	}

	if err := s.recs.DeleteRecommendation(ctx, rec.ID); err != nil {
		return fmt.Errorf("deleting recommendation: %w", err)
	}
	s.feed.Invalidate()

	s.logger.Info("recommendation deleted",
		slog.String("id", rec.ID),
		slog.String("by", user.ID),
	)
	return nil
}

// ToggleStaffPick makes id the single staff pick. Admin only.
//
// Despite the name it always ends with id picked: calling it again on the
// current pick leaves it picked. Clearing the previous pick and setting the
// new one happen in one store transaction.
func (s *RecommendationService) ToggleStaffPick(ctx context.Context, identity *model.Identity, id string) error {
	if identity == nil || identity.Subject == "" {
		return apperror.Unauthenticated()
	}

	user, err := s.users.ResolveOrCreate(ctx, identity)
	if err != nil {
		return err
	}
	if !policy.CanToggleStaffPick(user.Role) {
		return apperror.Forbidden("only admins can set the staff pick")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.NotFound("recommendation", id)
	}

	if err := s.recs.SetStaffPick(ctx, id); err != nil {
		return err
	}
	s.feed.Invalidate()

	s.logger.Info("staff pick set",
		slog.String("id", id),
		slog.String("by", user.ID),
	)
	return nil
}

// loadForMutation resolves the caller and fetches the target recommendation.
func (s *RecommendationService) loadForMutation(ctx context.Context, identity *model.Identity, id string) (*model.User, *model.Recommendation, error) {
	if identity == nil || identity.Subject == "" {
		return nil, nil, apperror.Unauthenticated()
	}

	user, err := s.users.ResolveOrCreate(ctx, identity)
	if err != nil {
		return nil, nil, err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil, apperror.NotFound("recommendation", id)
	}

	rec, err := s.recs.GetRecommendation(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return user, rec, nil
}
