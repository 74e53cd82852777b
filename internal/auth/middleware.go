package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/hypeshelf/internal/model"
)

// SessionCookie is the cookie the identity provider's frontend SDK sets.
const SessionCookie = "__session"

// Verifier turns a raw session token into an identity. *TokenVerifier
// implements it; handler tests use a stub.
type Verifier interface {
	Verify(token string) (*model.Identity, error)
}

// contextKey is unexported so no other package can read or overwrite the
// identity stored in a request context.
type contextKey string

const identityKey contextKey = "identity"

// RequireIdentity rejects requests without a valid session token with 401.
//
// On success the verified *model.Identity is stored in the request context
// for IdentityFromContext.
func RequireIdentity(v Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := identityFromRequest(r, v)
			if err != nil {
				logger.Debug("rejecting unauthenticated request",
					slog.String("path", r.URL.Path),
					slog.String("reason", err.Error()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthenticated","message":"authentication required"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalIdentity attaches the identity when a valid token is present and
// lets the request through either way. Handlers then see nil for anonymous
// callers.
func OptionalIdentity(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity, err := identityFromRequest(r, v); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the verified caller, or nil for an anonymous
// request.
func IdentityFromContext(ctx context.Context) *model.Identity {
	identity, _ := ctx.Value(identityKey).(*model.Identity)
	return identity
}

// identityFromRequest prefers the Authorization header and falls back to the
// session cookie.
func identityFromRequest(r *http.Request, v Verifier) (*model.Identity, error) {
	token := bearerToken(r)
	if token == "" {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			return nil, err
		}
		token = cookie.Value
	}
	return v.Verify(token)
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
