package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// BasicAuth returns the Authorization header value for a private key. The
// key is the user name and the password is empty.
func BasicAuth(key string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(key+":"))
}

func BearerAuth(token string) string { return "Bearer " + token }

const (
	tokenSkew        = 30 * time.Second
	fallbackTokenTTL = 15 * time.Minute
)

// TokenSource obtains bearer tokens from the token API and caches them until
// shortly before they expire. It is safe for concurrent use.
type TokenSource struct {
	transport Transport
	url       string
	key       string
	now       func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewTokenSource(t Transport, tokenURL, privateKey string) *TokenSource {
	return &TokenSource{transport: t, url: tokenURL, key: privateKey, now: time.Now}
}

// Token returns a cached token or fetches a new one.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expires) {
		return s.token, nil
	}

	resp, err := s.transport.Send(ctx, &Request{
		Method: http.MethodPost,
		URL:    s.url,
		Header: http.Header{
			"Authorization": {BasicAuth(s.key)},
			"Accept":        {"application/json"},
		},
		API: "token",
	})
	if err != nil {
		return "", err
	}
	if resp.Status >= 400 {
		return "", fmt.Errorf("token request failed with status %d: %s", resp.Status, resp.Body)
	}

	var body struct {
		AccessToken string `json:"accessToken"`
		ExpiresIn   int64  `json:"expiresIn"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token response without accessToken")
	}

	s.token = body.AccessToken
	s.expires = s.expiry(body.AccessToken, body.ExpiresIn).Add(-tokenSkew)
	return s.token, nil
}

// expiry reads the exp claim of the token without verifying it; the gateway
// is the verifier. Opaque tokens fall back to expiresIn, then to a fixed TTL.
func (s *TokenSource) expiry(token string, expiresIn int64) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	if expiresIn > 0 {
		return s.now().Add(time.Duration(expiresIn) * time.Second)
	}
	return s.now().Add(fallbackTokenTTL)
}

// Invalidate drops the cached token.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}
