package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/hypeshelf/internal/auth"
	"github.com/sakif/hypeshelf/internal/model"
)

// UserService is the subset of *service.UserService the user and webhook
// handlers use.
type UserService interface {
	CurrentUser(ctx context.Context, identity *model.Identity) (*model.User, error)
	UpsertFromExternalEvent(ctx context.Context, event model.SyncEvent) (*model.User, error)
}

// UserHandler serves the caller's own profile.
type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleMe returns the caller's stored user, or null before the first write
// has created one.
//
// HTTP: GET /api/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.CurrentUser(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
