package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/hypeshelf/internal/apperror"
	"github.com/sakif/hypeshelf/internal/auth"
	"github.com/sakif/hypeshelf/internal/model"
	"github.com/sakif/hypeshelf/internal/service"
)

// RecommendationService is the subset of *service.RecommendationService the
// handler uses. Tests pass a fake.
type RecommendationService interface {
	ListLatestPublic(ctx context.Context, limit int) []model.RecommendationWithUser
	ListAllForViewer(ctx context.Context, identity *model.Identity, filter service.ListFilter) ([]model.RecommendationWithUser, error)
	Create(ctx context.Context, identity *model.Identity, in service.CreateInput) (string, error)
	Delete(ctx context.Context, identity *model.Identity, id string) error
	ToggleStaffPick(ctx context.Context, identity *model.Identity, id string) error
}

// RecommendationHandler serves the recommendation endpoints.
type RecommendationHandler struct {
	recs   RecommendationService
	logger *slog.Logger
}

// NewRecommendationHandler creates a RecommendationHandler.
func NewRecommendationHandler(recs RecommendationService, logger *slog.Logger) *RecommendationHandler {
	return &RecommendationHandler{recs: recs, logger: logger}
}

// HandleLatest returns the public feed.
//
// HTTP: GET /api/recommendations/latest?count=N
//
// No authentication. count is optional; the service applies the default and
// the cap. A store outage yields [] rather than an error.
func (h *RecommendationHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, h.logger, apperror.ValidationFailed("count", "count must be a whole number"))
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, h.recs.ListLatestPublic(r.Context(), limit))
}

// HandleList returns every recommendation for the dashboard.
//
// HTTP: GET /api/recommendations?genre=drama&mine=true
//
// Anonymous callers get []. Both query parameters are optional.
func (h *RecommendationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.ListFilter{
		Genre: model.Genre(strings.TrimSpace(q.Get("genre"))),
	}
	if raw := q.Get("mine"); raw != "" {
		mine, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, h.logger, apperror.ValidationFailed("mine", "mine must be true or false"))
			return
		}
		filter.Mine = mine
	}

	recs, err := h.recs.ListAllForViewer(r.Context(), auth.IdentityFromContext(r.Context()), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// createResponse is returned by HandleCreate.
type createResponse struct {
	ID string `json:"id"`
}

// HandleCreate posts a recommendation as the caller.
//
// HTTP: POST /api/recommendations
// REQUEST BODY: {"title": "...", "genre": "drama", "link": "https://...", "blurb": "..."}
//
// Unknown fields such as "ownerId" or "isStaffPick" are ignored; the server
// decides those.
func (h *RecommendationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		h.logger.Warn("invalid recommendation JSON", slog.String("error", err.Error()))
		writeError(w, h.logger, apperror.ValidationFailed("body", "request body must be a JSON object"))
		return
	}

	id, err := h.recs.Create(r.Context(), auth.IdentityFromContext(r.Context()), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{ID: id})
}

// HandleDelete removes a recommendation.
//
// HTTP: DELETE /api/recommendations/{id}
func (h *RecommendationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.recs.Delete(r.Context(), auth.IdentityFromContext(r.Context()), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStaffPick makes the recommendation the staff pick.
//
// HTTP: POST /api/recommendations/{id}/staff-pick
func (h *RecommendationHandler) HandleStaffPick(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.recs.ToggleStaffPick(r.Context(), auth.IdentityFromContext(r.Context()), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
