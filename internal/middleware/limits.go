package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// CORSOptions configures cross-origin access for the browser frontend.
type CORSOptions struct {
	AllowedOrigins []string
	MaxAge         time.Duration
}

// CORS allows the configured frontend origins to call the API with the
// session token in an Authorization header or cookie. With no origins
// configured the middleware is a no-op: responses carry no CORS headers and
// browsers block cross-origin calls. go-chi/cors would treat an empty list as
// "allow all".
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	if len(opts.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           int(maxAge.Seconds()),
	})
}

// RateLimit limits each client IP to requests per window. requests <= 0
// disables limiting. The 429 response uses the API's JSON error shape.
//
// RealIP must run earlier in the chain so proxied clients are keyed by their
// own address.
func RateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if requests <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate_limited","message":"too many requests"}`))
		}),
	)
}
