package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/hypeshelf/internal/auth"
	"github.com/sakif/hypeshelf/internal/model"
)

// WebhookVerifier checks a signed webhook request. *auth.WebhookVerifier
// implements it.
type WebhookVerifier interface {
	Verify(header http.Header, body []byte) error
}

// Identity-provider event types that carry a user record.
const (
	eventUserCreated = "user.created"
	eventUserUpdated = "user.updated"
)

// userEvent is the provider's webhook payload. Only the fields used to build
// a model.SyncEvent are decoded.
type userEvent struct {
	Type string `json:"type"`
	Data struct {
		ID             string `json:"id"`
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		ImageURL       string `json:"image_url"`
		PublicMetadata struct {
			Role string `json:"role"`
		} `json:"public_metadata"`
	} `json:"data"`
}

// syncEvent converts the payload. Display name is "first last" with empty
// parts dropped, or DefaultDisplayName when both are empty. Only an explicit
// "admin" in public metadata grants the admin role.
func (e userEvent) syncEvent() model.SyncEvent {
	var parts []string
	for _, p := range []string{e.Data.FirstName, e.Data.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	role := model.RoleUser
	if e.Data.PublicMetadata.Role == string(model.RoleAdmin) {
		role = model.RoleAdmin
	}

	return model.SyncEvent{
		Subject:     e.Data.ID,
		DisplayName: strings.Join(parts, " "),
		ImageURL:    e.Data.ImageURL,
		Role:        role,
	}
}

// WebhookHandler receives user sync events from the identity provider.
type WebhookHandler struct {
	verifier WebhookVerifier
	users    UserService
	logger   *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler. A nil verifier means no secret
// is configured and every delivery is refused with 500.
func NewWebhookHandler(verifier WebhookVerifier, users UserService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, users: users, logger: logger}
}

// HandleIdentityEvent verifies and applies one sync event.
//
// HTTP: POST /webhooks/identity
//
// RESPONSES:
//   - 500 when no webhook secret is configured
//   - 400 for missing signature headers, a bad signature or bad JSON
//   - 200 for every verified event, including types we ignore, so the
//     provider does not keep retrying them
func (h *WebhookHandler) HandleIdentityEvent(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		h.logger.Error("identity webhook received but no webhook secret is configured")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "not_configured",
			Message: "webhook secret is not configured",
		})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "could not read body"})
		return
	}

	if err := h.verifier.Verify(r.Header, body); err != nil {
		h.logger.Warn("identity webhook rejected", slog.String("reason", err.Error()))
		message := "invalid signature"
		if errors.Is(err, auth.ErrMissingWebhookHeaders) {
			message = "missing signature headers"
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_signature", Message: message})
		return
	}

	var event userEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "payload is not valid JSON"})
		return
	}

	switch event.Type {
	case eventUserCreated, eventUserUpdated:
		user, err := h.users.UpsertFromExternalEvent(r.Context(), event.syncEvent())
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		h.logger.Info("identity event applied",
			slog.String("type", event.Type),
			slog.String("userID", user.ID),
		)
	default:
		h.logger.Debug("identity event ignored", slog.String("type", event.Type))
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
