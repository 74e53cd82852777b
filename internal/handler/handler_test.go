package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/hypeshelf/internal/apperror"
	"github.com/sakif/hypeshelf/internal/auth"
	"github.com/sakif/hypeshelf/internal/model"
	"github.com/sakif/hypeshelf/internal/service"
)

// =========================================================================
// FAKE SERVICES
// =========================================================================

// fakeRecommendations records what the handler passed and returns canned
// results.
type fakeRecommendations struct {
	latest      []model.RecommendationWithUser
	all         []model.RecommendationWithUser
	createdID   string
	err         error
	gotLimit    int
	gotFilter   service.ListFilter
	gotInput    service.CreateInput
	gotIdentity *model.Identity
	gotID       string
}

func (f *fakeRecommendations) ListLatestPublic(_ context.Context, limit int) []model.RecommendationWithUser {
	f.gotLimit = limit
	return f.latest
}

func (f *fakeRecommendations) ListAllForViewer(_ context.Context, identity *model.Identity, filter service.ListFilter) ([]model.RecommendationWithUser, error) {
	f.gotIdentity = identity
	f.gotFilter = filter
	if identity == nil {
		return []model.RecommendationWithUser{}, nil
	}
	return f.all, f.err
}

func (f *fakeRecommendations) Create(_ context.Context, identity *model.Identity, in service.CreateInput) (string, error) {
	f.gotIdentity = identity
	f.gotInput = in
	if identity == nil {
		return "", apperror.Unauthenticated()
	}
	return f.createdID, f.err
}

func (f *fakeRecommendations) Delete(_ context.Context, identity *model.Identity, id string) error {
	f.gotIdentity = identity
	f.gotID = id
	return f.err
}

func (f *fakeRecommendations) ToggleStaffPick(_ context.Context, identity *model.Identity, id string) error {
	f.gotIdentity = identity
	f.gotID = id
	return f.err
}

type fakeUsers struct {
	current  *model.User
	err      error
	gotEvent *model.SyncEvent
}

func (f *fakeUsers) CurrentUser(_ context.Context, identity *model.Identity) (*model.User, error) {
	if identity == nil {
		return nil, apperror.Unauthenticated()
	}
	return f.current, f.err
}

func (f *fakeUsers) UpsertFromExternalEvent(_ context.Context, event model.SyncEvent) (*model.User, error) {
	f.gotEvent = &event
	if f.err != nil {
		return nil, f.err
	}
	return &model.User{ID: "user-1", Subject: event.Subject, Role: event.Role}, nil
}

// =========================================================================
// HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var alex = &model.Identity{Subject: "user_alex", DisplayName: "Alex"}

// request builds a request with an optional identity already in context,
// the way the auth middleware leaves it.
func request(method, target, body string, identity *model.Identity) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if identity != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	}
	return req
}

// withURLParam adds a chi route parameter so handlers can read it with
// chi.URLParam without going through a router.
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
