package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultWebhookTolerance is how far a webhook timestamp may drift from the
// server clock in either direction.
const DefaultWebhookTolerance = 5 * time.Minute

var (
	// ErrMissingWebhookHeaders means one of the id, timestamp or signature
	// headers is absent.
	ErrMissingWebhookHeaders = errors.New("auth: missing webhook signature headers")
	// ErrInvalidWebhookSignature covers bad signatures and stale timestamps.
	ErrInvalidWebhookSignature = errors.New("auth: invalid webhook signature")
)

// WebhookVerifier checks the identity provider's signed sync events.
//
// SIGNATURE SCHEME:
// The provider sends three headers, as "svix-*" or the equivalent
// "webhook-*" names:
//
//	svix-id:        msg_2abc...
//	svix-timestamp: 1714000000              (Unix seconds)
//	svix-signature: v1,<base64> v1,<base64> (space separated, any may match)
//
// Each signature is base64(HMAC-SHA256(key, id + "." + timestamp + "." + body)).
// The key is the base64 part of the "whsec_..." secret. Several signatures
// appear during secret rotation, so one match is enough.
type WebhookVerifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewWebhookVerifier decodes secret ("whsec_<base64>" or bare base64).
func NewWebhookVerifier(secret string) (*WebhookVerifier, error) {
	encoded := strings.TrimPrefix(strings.TrimSpace(secret), "whsec_")
	if encoded == "" {
		return nil, errors.New("auth: webhook secret must not be empty")
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("auth: decoding webhook secret: %w", err)
	}
	return &WebhookVerifier{key: key, tolerance: DefaultWebhookTolerance, now: time.Now}, nil
}

// Verify checks the signature headers against body.
func (v *WebhookVerifier) Verify(header http.Header, body []byte) error {
	id := headerValue(header, "id")
	timestamp := headerValue(header, "timestamp")
	signatures := headerValue(header, "signature")
	if id == "" || timestamp == "" || signatures == "" {
		return ErrMissingWebhookHeaders
	}

	sent, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidWebhookSignature)
	}
	drift := v.now().Sub(time.Unix(sent, 0))
	if drift > v.tolerance || drift < -v.tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidWebhookSignature)
	}

	expected := v.sign(id, timestamp, body)
	for _, candidate := range strings.Fields(signatures) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return ErrInvalidWebhookSignature
}

// Sign returns a "v1,<base64>" signature for the given message. The provider
// computes the same value; tests use it to build signed requests.
func (v *WebhookVerifier) Sign(id string, timestamp time.Time, body []byte) string {
	return "v1," + v.sign(id, strconv.FormatInt(timestamp.Unix(), 10), body)
}

func (v *WebhookVerifier) sign(id, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id))
	mac.Write([]byte{'.'})
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// headerValue reads "svix-<name>", falling back to "webhook-<name>".
func headerValue(header http.Header, name string) string {
	if v := header.Get("svix-" + name); v != "" {
		return v
	}
	return header.Get("webhook-" + name)
}
