package sync

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const tokenLifetime = 15 * time.Minute

// deviceTokenSource mints short-lived bearer tokens identifying this
// device to the remote store. Tokens are cached until close to expiry.
type deviceTokenSource struct {
	deviceID string
	secret   []byte
	clock    func() time.Time

	mu      sync.Mutex
	current *oauth2.Token
}

// NewDeviceTokenSource builds a token source that signs device claims
// with the shared secret.
func NewDeviceTokenSource(deviceID, secret string) oauth2.TokenSource {
	return &deviceTokenSource{
		deviceID: deviceID,
		secret:   []byte(secret),
		clock:    time.Now,
	}
}

func (s *deviceTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if s.current != nil && s.current.Expiry.After(now.Add(time.Minute)) {
		return s.current, nil
	}

	expiry := now.Add(tokenLifetime)
	claims := jwt.RegisteredClaims{
		Subject:   s.deviceID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiry),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign device token: %w", err)
	}

	s.current = &oauth2.Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}
	return s.current, nil
}
