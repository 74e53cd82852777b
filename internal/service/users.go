package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/sakif/hypeshelf/internal/apperror"
	"github.com/sakif/hypeshelf/internal/model"
	"github.com/sakif/hypeshelf/internal/repository"
)

// DefaultDisplayName is stored when neither the identity nor a sync event
// supplies a usable name.
const DefaultDisplayName = "User"

// UserService maps external identity subjects to internal users.
//
// It sits between the handlers and the user repository:
//
//	RecommendationHandler ─┐
//	MeHandler ─────────────┼→ UserService → UserRepository (DB)
//	WebhookHandler ────────┘
//
// Users are created lazily on the first authenticated request, or eagerly by
// the identity provider's sync events. Role is only ever set by sync events.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger

	// resolving coalesces concurrent first requests for the same subject
	// inside this process. Across processes the UNIQUE constraint on the
	// subject settles the race instead.
	resolving singleflight.Group
}

// NewUserService creates a UserService.
func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

// ResolveOrCreate returns the internal user for identity, inserting one with
// role "user" if the subject has never been seen.
//
// THE FIRST-LOGIN RACE:
// Two requests for a brand-new subject can both miss the lookup. Within this
// process singleflight lets only one of them insert. If another process wins
// the insert, CreateUser reports ErrConflict and we simply re-read the row the
// winner wrote. A row that cannot be read back after a successful insert is a
// store inconsistency and is reported as StoreFailure without retrying.
func (s *UserService) ResolveOrCreate(ctx context.Context, identity *model.Identity) (*model.User, error) {
	if identity == nil || identity.Subject == "" {
		return nil, apperror.Unauthenticated()
	}

	// The shared work outlives the caller that happened to start it, so one
	// disconnecting client cannot fail the others waiting on the same subject.
	workCtx := context.WithoutCancel(ctx)
	v, err, _ := s.resolving.Do(identity.Subject, func() (any, error) {
		return s.resolveOrCreate(workCtx, identity)
	})
	if err != nil {
		return nil, err
	}

	// Every caller gets its own copy; the singleflight result is shared.
	user := *v.(*model.User)
	return &user, nil
}

func (s *UserService) resolveOrCreate(ctx context.Context, identity *model.Identity) (*model.User, error) {
	existing, err := s.users.GetUserBySubject(ctx, identity.Subject)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/users: looking up subject %s: %w", identity.Subject, err)
	}

	displayName := strings.TrimSpace(identity.DisplayName)
	if displayName == "" {
		displayName = DefaultDisplayName
	}

	user := &model.User{
		Subject:     identity.Subject,
		DisplayName: displayName,
		ImageURL:    strings.TrimSpace(identity.ImageURL),
		Role:        model.RoleUser,
	}

	switch err := s.users.CreateUser(ctx, user); {
	case err == nil:
		s.logger.Info("user created on first access",
			slog.String("userID", user.ID),
			slog.String("subject", user.Subject),
		)
	case errors.Is(err, apperror.ErrConflict):
		s.logger.Debug("lost first-access race, re-reading",
			slog.String("subject", identity.Subject),
		)
	default:
		return nil, fmt.Errorf("service/users: creating user for subject %s: %w", identity.Subject, err)
	}

	stored, err := s.users.GetUserBySubject(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("user missing right after insert",
				slog.String("subject", identity.Subject),
			)
			return nil, apperror.StoreFailure("failed to create user")
		}
		return nil, fmt.Errorf("service/users: re-reading subject %s: %w", identity.Subject, err)
	}
	return stored, nil
}

// UpsertFromExternalEvent applies an identity-provider user sync event.
// Repeating the same event leaves the store unchanged.
func (s *UserService) UpsertFromExternalEvent(ctx context.Context, event model.SyncEvent) (*model.User, error) {
	subject := strings.TrimSpace(event.Subject)
	if subject == "" {
		return nil, apperror.ValidationFailed("subject", "subject is required")
	}

	role := event.Role
	if !role.Valid() {
		role = model.RoleUser
	}

	displayName := strings.TrimSpace(event.DisplayName)
	if displayName == "" {
		displayName = DefaultDisplayName
	}

	user := &model.User{
		Subject:     subject,
		DisplayName: displayName,
		ImageURL:    strings.TrimSpace(event.ImageURL),
		Role:        role,
	}
	if err := s.users.UpsertBySubject(ctx, user); err != nil {
		return nil, fmt.Errorf("service/users: upserting subject %s: %w", subject, err)
	}

	s.logger.Info("user synced from identity provider",
		slog.String("userID", user.ID),
		slog.String("subject", user.Subject),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// LookupBySubject is a pure read. Returns apperror.ErrNotFound when the
// subject has no user.
func (s *UserService) LookupBySubject(ctx context.Context, subject string) (*model.User, error) {
	return s.users.GetUserBySubject(ctx, subject)
}

// CurrentUser returns the caller's stored record, or nil if the caller has
// never been materialized. It does not create one.
func (s *UserService) CurrentUser(ctx context.Context, identity *model.Identity) (*model.User, error) {
	if identity == nil || identity.Subject == "" {
		return nil, apperror.Unauthenticated()
	}

	user, err := s.users.GetUserBySubject(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service/users: current user %s: %w", identity.Subject, err)
	}
	return user, nil
}
