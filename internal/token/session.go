package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidSession indicates session claims failed validation.
var ErrInvalidSession = errors.New("token: invalid session")

// SessionClaims are the signed claims carried by session tokens.
type SessionClaims struct {
	HomeID string `json:"home_id,omitempty"`
	jwt.RegisteredClaims
}

// SignSession issues HS256-signed session claims for the user. Requires a
// secret configured via WithSessionSecret.
func (m *Manager) SignSession(userID, homeID string, ttl time.Duration) (string, error) {
	if len(m.sessionSecret) == 0 {
		return "", errors.New("token: session secret is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("token: userID is required")
	}
	if ttl <= 0 {
		return "", errors.New("token: ttl must be greater than zero")
	}

	now := m.now().UTC()
	claims := SessionClaims{
		HomeID: homeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.sessionSecret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ParseSession verifies the signature and required claims of a session
// token string.
func (m *Manager) ParseSession(raw string) (*SessionClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(m.sessionSecret) == 0 {
		return nil, ErrInvalidSession
	}

	parsed, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidSession
		}
		return m.sessionSecret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, ErrInvalidSession
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	if claims.Issuer != m.issuer {
		return nil, ErrInvalidSession
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidSession
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
