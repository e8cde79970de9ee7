package security

import (
	"context"
	"errors"

	"homeguard.org/internal/obs"
	"homeguard.org/internal/token"
)

// Auth is the result of presenting a token value. OK is false for
// unknown, revoked, or expired tokens; no distinction leaks to callers.
type Auth struct {
	OK     bool
	UserID string
	Type   token.Type
}

// IssueToken mints a token and audits the issuance.
func (s *Service) IssueToken(ctx context.Context, req token.IssueRequest) (*token.Token, error) {
	t, err := s.tokens.Issue(ctx, req)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, "token", t.ID, "issue", "", map[string]string{
		"user": t.UserID,
		"type": string(t.Type),
	})
	return t, nil
}

// AuthenticateToken resolves a presented value to its owner. Valid
// presentations record usage metadata; invalid ones return a not-ok Auth
// without error so callers cannot probe which check failed.
func (s *Service) AuthenticateToken(ctx context.Context, value, ipAddress, userAgent string) (Auth, error) {
	t, err := s.tokens.FindByValue(ctx, value)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) || errors.Is(err, token.ErrInvalidInput) {
			return Auth{}, nil
		}
		return Auth{}, err
	}
	if !t.Valid(s.now()) {
		return Auth{}, nil
	}
	if _, err := s.tokens.RecordUsage(ctx, t.ID, ipAddress, userAgent); err != nil {
		return Auth{}, err
	}
	return Auth{OK: true, UserID: t.UserID, Type: t.Type}, nil
}

// RevokeToken permanently deactivates a token and audits the revocation.
func (s *Service) RevokeToken(ctx context.Context, id string) (*token.Token, error) {
	t, err := s.tokens.Revoke(ctx, id)
	if err != nil {
		return nil, err
	}
	obs.RecordRevocation(string(t.Type))
	s.emit(ctx, "token", t.ID, "revoke", "", map[string]string{
		"user": t.UserID,
		"type": string(t.Type),
	})
	return t, nil
}
