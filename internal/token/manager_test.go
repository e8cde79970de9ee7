package token

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	return NewManager(NewMemory(), opts...)
}

func TestIssueGeneratesOpaqueValue(t *testing.T) {
	m := newTestManager(t)
	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		tok, err := m.Issue(context.Background(), IssueRequest{UserID: "u1", Type: TypeAPI})
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if len(tok.Value) < 32 {
			t.Fatalf("value too short: %d chars", len(tok.Value))
		}
		if !tok.Active {
			t.Fatalf("issued token should be active")
		}
		if tok.ExpiresAt != nil {
			t.Fatalf("no expiry requested but got %v", tok.ExpiresAt)
		}
		if _, dup := seen[tok.Value]; dup {
			t.Fatalf("duplicate value issued")
		}
		seen[tok.Value] = struct{}{}
	}
}

func TestIssueRejectsBadInput(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Issue(context.Background(), IssueRequest{Type: TypeAPI}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing user: expected ErrInvalidInput, got %v", err)
	}
	if _, err := m.Issue(context.Background(), IssueRequest{UserID: "u1", Type: "magic"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad type: expected ErrInvalidInput, got %v", err)
	}
}

func TestTokenValidity(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	cases := []struct {
		name string
		tok  Token
		want bool
	}{
		{"active no expiry", Token{Active: true}, true},
		{"active future expiry", Token{Active: true, ExpiresAt: &future}, true},
		{"expired", Token{Active: true, ExpiresAt: &past}, false},
		{"revoked with future expiry", Token{Active: false, ExpiresAt: &future}, false},
	}
	for _, tc := range cases {
		if got := tc.tok.Valid(now); got != tc.want {
			t.Fatalf("%s: Valid=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	m := newTestManager(t)
	tok, err := m.Issue(context.Background(), IssueRequest{UserID: "u1", Type: TypeDevice})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	payload := map[string]any{"door_code": "4417", "zone": "garage"}
	key, err := m.EncryptPayload(context.Background(), tok.ID, payload)
	if err != nil {
		t.Fatalf("EncryptPayload: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("key length %d, want 32", len(key))
	}

	var out map[string]any
	if err := m.DecryptPayload(context.Background(), tok.ID, key, &out); err != nil {
		t.Fatalf("DecryptPayload: %v", err)
	}
	if out["door_code"] != "4417" || out["zone"] != "garage" {
		t.Fatalf("round trip mismatch: %v", out)
	}
}

func TestDecryptWrongKeyIsOpaque(t *testing.T) {
	m := newTestManager(t)
	tok, err := m.Issue(context.Background(), IssueRequest{UserID: "u1", Type: TypeDevice})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	key, err := m.EncryptPayload(context.Background(), tok.ID, "secret")
	if err != nil {
		t.Fatalf("EncryptPayload: %v", err)
	}

	wrong := make([]byte, len(key))
	copy(wrong, key)
	wrong[0] ^= 0xff

	var out any
	if err := m.DecryptPayload(context.Background(), tok.ID, wrong, &out); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("wrong key: expected ErrDecrypt, got %v", err)
	}

	// Corrupted ciphertext yields the same error, not a different one.
	if _, err := m.store.Mutate(context.Background(), tok.ID, func(t *Token) error {
		t.EncryptedData = "not-base64!!!"
		return nil
	}); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if err := m.DecryptPayload(context.Background(), tok.ID, key, &out); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("corrupt ciphertext: expected ErrDecrypt, got %v", err)
	}
}

func TestEncryptKeysDiffer(t *testing.T) {
	m := newTestManager(t)
	tok, err := m.Issue(context.Background(), IssueRequest{UserID: "u1", Type: TypeDevice})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	k1, err := m.EncryptPayload(context.Background(), tok.ID, "a")
	if err != nil {
		t.Fatalf("EncryptPayload: %v", err)
	}
	k2, err := m.EncryptPayload(context.Background(), tok.ID, "b")
	if err != nil {
		t.Fatalf("EncryptPayload: %v", err)
	}
	if string(k1) == string(k2) {
		t.Fatalf("each encryption must use a fresh key")
	}
}

func TestRevocationIsPermanent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	m := newTestManager(t, WithClock(func() time.Time { return clock }))

	tok, err := m.Issue(context.Background(), IssueRequest{UserID: "u1", Type: TypeAPI})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if ok, _ := m.IsValid(context.Background(), tok.ID); !ok {
		t.Fatalf("fresh token should be valid")
	}
	if _, err := m.Revoke(context.Background(), tok.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if ok, _ := m.IsValid(context.Background(), tok.ID); ok {
		t.Fatalf("revoked token should be invalid")
	}
	// Advancing or rewinding the clock never resurrects it.
	clock = now.Add(-time.Hour)
	if ok, _ := m.IsValid(context.Background(), tok.ID); ok {
		t.Fatalf("revocation must hold regardless of clock")
	}
}

func TestRecordUsage(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, WithClock(func() time.Time { return now }))

	tok, err := m.Issue(context.Background(), IssueRequest{UserID: "u1", Type: TypeSession})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	updated, err := m.RecordUsage(context.Background(), tok.ID, "192.0.2.10", "homeguard-mobile/2.1")
	if err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}
	if updated.LastUsed == nil || !updated.LastUsed.Equal(now) {
		t.Fatalf("LastUsed=%v, want %v", updated.LastUsed, now)
	}
	if updated.IPAddress != "192.0.2.10" || updated.UserAgent != "homeguard-mobile/2.1" {
		t.Fatalf("source metadata not recorded: %+v", updated)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	m := newTestManager(t,
		WithClock(func() time.Time { return clock }),
		WithSessionSecret([]byte("test-secret")),
		WithIssuer("homeguard-test"),
	)

	raw, err := m.SignSession("u1", "h1", 30*time.Minute)
	if err != nil {
		t.Fatalf("SignSession: %v", err)
	}
	claims, err := m.ParseSession(raw)
	if err != nil {
		t.Fatalf("ParseSession: %v", err)
	}
	if claims.Subject != "u1" || claims.HomeID != "h1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	// Expired sessions are rejected.
	clock = now.Add(time.Hour)
	if _, err := m.ParseSession(raw); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for expired session, got %v", err)
	}

	// Tampered tokens are rejected.
	clock = now
	if _, err := m.ParseSession(raw + "x"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for tampered session, got %v", err)
	}
}

func TestSessionRequiresSecret(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.SignSession("u1", "h1", time.Minute); err == nil {
		t.Fatalf("expected error without configured secret")
	}
}
