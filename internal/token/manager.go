package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// valueBytes of CSPRNG output encode to a 64-character base64url value,
// well past the 256 bits needed to make collisions negligible.
const valueBytes = 48

// Store persists tokens. Mutate applies fn atomically per token.
type Store interface {
	Create(ctx context.Context, t *Token) error
	Find(ctx context.Context, id string) (*Token, error)
	FindByValue(ctx context.Context, value string) (*Token, error)
	Mutate(ctx context.Context, id string, fn func(*Token) error) (*Token, error)
}

// Manager drives token lifecycle.
type Manager struct {
	store         Store
	now           func() time.Time
	rand          io.Reader
	log           zerolog.Logger
	sessionSecret []byte
	issuer        string
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// WithRand overrides the randomness source (useful for tests).
func WithRand(r io.Reader) Option {
	return func(m *Manager) {
		if r != nil {
			m.rand = r
		}
	}
}

// WithLogger sets the logger used for decryption-failure reporting.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithSessionSecret enables HS256 session claims using the given secret.
func WithSessionSecret(secret []byte) Option {
	return func(m *Manager) {
		if len(secret) > 0 {
			m.sessionSecret = secret
		}
	}
}

// WithIssuer overrides the issuer embedded into session claims.
func WithIssuer(issuer string) Option {
	return func(m *Manager) { m.issuer = issuer }
}

// NewManager constructs a Manager over the given store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		now:    time.Now,
		rand:   rand.Reader,
		log:    zerolog.Nop(),
		issuer: "homeguard",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IssueRequest describes a token to mint.
type IssueRequest struct {
	UserID      string
	Type        Type
	ExpiresAt   *time.Time
	Fingerprint string
}

// Issue mints a new active token with a fresh opaque value. No expiry is
// set unless the request supplies one.
func (m *Manager) Issue(ctx context.Context, req IssueRequest) (*Token, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	if _, ok := types[req.Type]; !ok {
		return nil, fmt.Errorf("%w: unknown token type %q", ErrInvalidInput, req.Type)
	}
	value, err := m.generateValue()
	if err != nil {
		return nil, err
	}
	t := &Token{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Type:        req.Type,
		Value:       value,
		Active:      true,
		ExpiresAt:   req.ExpiresAt,
		Fingerprint: req.Fingerprint,
		CreatedAt:   m.now().UTC(),
	}
	if err := m.store.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (m *Manager) generateValue() (string, error) {
	buf := make([]byte, valueBytes)
	if _, err := io.ReadFull(m.rand, buf); err != nil {
		return "", fmt.Errorf("token: generate value: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Find loads a token by id.
func (m *Manager) Find(ctx context.Context, id string) (*Token, error) {
	return m.store.Find(ctx, id)
}

// FindByValue loads a token by its opaque value (exact match).
func (m *Manager) FindByValue(ctx context.Context, value string) (*Token, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: empty token value", ErrInvalidInput)
	}
	return m.store.FindByValue(ctx, value)
}

// IsValid reports whether the token admits use right now.
func (m *Manager) IsValid(ctx context.Context, id string) (bool, error) {
	t, err := m.store.Find(ctx, id)
	if err != nil {
		return false, err
	}
	return t.Valid(m.now()), nil
}

// RecordUsage stamps last-used and the presenting source metadata.
func (m *Manager) RecordUsage(ctx context.Context, id, ipAddress, userAgent string) (*Token, error) {
	now := m.now().UTC()
	return m.store.Mutate(ctx, id, func(t *Token) error {
		t.LastUsed = &now
		t.IPAddress = ipAddress
		t.UserAgent = userAgent
		return nil
	})
}

// Revoke deactivates the token permanently. There is no un-revoke.
func (m *Manager) Revoke(ctx context.Context, id string) (*Token, error) {
	return m.store.Mutate(ctx, id, func(t *Token) error {
		t.Active = false
		return nil
	})
}
