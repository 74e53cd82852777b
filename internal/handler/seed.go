package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/hypeshelf/internal/auth"
	"github.com/sakif/hypeshelf/internal/model"
)

// Seeder loads the demo data set.
type Seeder interface {
	Seed(ctx context.Context) (model.SeedResult, error)
}

// SecretChecker compares a presented secret with a stored hash.
// *auth.SecretHasher implements it.
type SecretChecker interface {
	Verify(hash, secret string) error
}

// SeedHandler exposes seeding over HTTP behind a shared secret.
type SeedHandler struct {
	seeder     Seeder
	checker    SecretChecker
	secretHash string
	logger     *slog.Logger
}

// NewSeedHandler creates a SeedHandler. An empty secretHash disables the
// endpoint.
func NewSeedHandler(seeder Seeder, checker SecretChecker, secretHash string, logger *slog.Logger) *SeedHandler {
	return &SeedHandler{seeder: seeder, checker: checker, secretHash: secretHash, logger: logger}
}

type seedResponse struct {
	OK bool `json:"ok"`
	model.SeedResult
}

// HandleSeed runs the seeder.
//
// HTTP: GET /seed?secret=...
//
// 501 when no seed secret is configured, 403 when the secret is wrong.
// Repeated calls succeed and report zero insertions.
func (h *SeedHandler) HandleSeed(w http.ResponseWriter, r *http.Request) {
	if h.secretHash == "" {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{
			Error:   "not_configured",
			Message: "seed secret is not configured",
		})
		return
	}

	if err := h.checker.Verify(h.secretHash, r.URL.Query().Get("secret")); err != nil {
		if !errors.Is(err, auth.ErrSecretMismatch) {
			h.logger.Error("seed secret hash is unusable", slog.String("error", err.Error()))
		}
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "forbidden", Message: "Forbidden"})
		return
	}

	result, err := h.seeder.Seed(r.Context())
	if err != nil {
		h.logger.Error("seed failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Seed failed"})
		return
	}
	writeJSON(w, http.StatusOK, seedResponse{OK: true, SeedResult: result})
}
