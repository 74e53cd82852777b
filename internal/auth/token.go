// Package auth is the identity boundary of HypeShelf.
//
// Sign-in happens entirely at the external identity provider. The provider
// hands the browser a short-lived session token; this package only verifies
// it and turns it into a model.Identity for the service layer.
//
// REQUEST FLOW:
//  1. The browser sends the provider's session token, either as
//     "Authorization: Bearer <jwt>" or in the "__session" cookie
//  2. Middleware verifies the signature, expiry and issuer
//  3. The claims become a *model.Identity stored in the request context
//  4. Handlers pass that identity to the services, which look up the role
//     from the database. Claims never carry a role we trust.
//
// SESSION TOKEN (HS256 JWT):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"sub":"user_2abc","name":"Alex","picture":"https://...","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, sharedSecret)
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/hypeshelf/internal/model"
)

// MinSecretLength is the shortest shared secret accepted for session tokens.
const MinSecretLength = 16

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("auth: invalid session token")

// TokenVerifier checks identity-provider session tokens.
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier creates a TokenVerifier. When issuer is non-empty the
// token's "iss" claim must match it exactly.
func NewTokenVerifier(secret, issuer string) (*TokenVerifier, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: token secret must be at least %d characters", MinSecretLength)
	}
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}, nil
}

// sessionClaims is the provider's token payload. "sub" is the external
// subject; name and picture are optional profile hints used when a user is
// created on first access.
type sessionClaims struct {
	jwt.RegisteredClaims
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// Verify parses and verifies a session token and returns the caller's
// identity.
//
// CHECKS (performed by the jwt library):
//   - Signature is valid HS256 under the shared secret
//   - Token carries an expiry and has not expired
//   - Issuer matches, if one is configured
//
// jwt.WithValidMethods pins the algorithm so a token with "alg":"none" or an
// asymmetric algorithm is rejected outright.
func (v *TokenVerifier) Verify(tokenStr string) (*model.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &sessionClaims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	subject := strings.TrimSpace(c.Subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	return &model.Identity{
		Subject:     subject,
		DisplayName: strings.TrimSpace(c.Name),
		ImageURL:    strings.TrimSpace(c.Picture),
	}, nil
}

// Sign issues a token the way the identity provider would. It is used by the
// dev-token CLI command and by tests; production tokens come from the
// provider.
func (v *TokenVerifier) Sign(identity model.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	c := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:    identity.DisplayName,
		Picture: identity.ImageURL,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}
