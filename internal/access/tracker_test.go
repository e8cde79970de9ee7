package access

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGrantValidity(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name  string
		grant Grant
		want  bool
	}{
		{"active without expiry", Grant{Active: true}, true},
		{"active with future expiry", Grant{Active: true, ExpiresAt: &future}, true},
		{"expired despite active", Grant{Active: true, ExpiresAt: &past}, false},
		{"inactive despite future expiry", Grant{Active: false, ExpiresAt: &future}, false},
		{"inactive without expiry", Grant{Active: false}, false},
	}
	for _, tc := range cases {
		if got := tc.grant.Valid(now); got != tc.want {
			t.Fatalf("%s: Valid=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTrackerGrantDuplicate(t *testing.T) {
	tr := NewTracker(NewMemory())
	g := &Grant{HomeID: "h1", UserID: "u1", DeviceID: "d1", Level: LevelFamily}
	if err := tr.Grant(context.Background(), g); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	dup := &Grant{HomeID: "h1", UserID: "u1", DeviceID: "d1", Level: LevelGuest}
	if err := tr.Grant(context.Background(), dup); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	// Same user, different device is a distinct key.
	other := &Grant{HomeID: "h1", UserID: "u1", DeviceID: "d2", Level: LevelGuest}
	if err := tr.Grant(context.Background(), other); err != nil {
		t.Fatalf("Grant other device: %v", err)
	}
}

func TestTrackerRejectsBadInput(t *testing.T) {
	tr := NewTracker(NewMemory())
	if err := tr.Grant(context.Background(), &Grant{HomeID: "h1", UserID: "u1", Level: LevelAdmin}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing device: expected ErrInvalidInput, got %v", err)
	}
	if err := tr.Grant(context.Background(), &Grant{HomeID: "h1", UserID: "u1", DeviceID: "d1", Level: "superuser"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad level: expected ErrInvalidInput, got %v", err)
	}
}

func TestTrackerRecordAccess(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(NewMemory(), WithClock(fixedClock(now)))
	key := Key{HomeID: "h1", UserID: "u1", DeviceID: "d1"}
	if err := tr.Grant(context.Background(), &Grant{HomeID: "h1", UserID: "u1", DeviceID: "d1", Level: LevelOwner}); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	for i := 1; i <= 3; i++ {
		g, err := tr.RecordAccess(context.Background(), key)
		if err != nil {
			t.Fatalf("RecordAccess %d: %v", i, err)
		}
		if g.AccessCount != uint64(i) {
			t.Fatalf("AccessCount=%d, want %d", g.AccessCount, i)
		}
		if g.LastUsed == nil || !g.LastUsed.Equal(now) {
			t.Fatalf("LastUsed=%v, want %v", g.LastUsed, now)
		}
	}
}

func TestTrackerRevokePersists(t *testing.T) {
	tr := NewTracker(NewMemory())
	key := Key{HomeID: "h1", UserID: "u1", DeviceID: "d1"}
	if err := tr.Grant(context.Background(), &Grant{HomeID: "h1", UserID: "u1", DeviceID: "d1", Level: LevelGuest}); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if _, err := tr.Revoke(context.Background(), key); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	ok, err := tr.IsValid(context.Background(), key)
	if err != nil {
		t.Fatalf("IsValid: %v", err)
	}
	if ok {
		t.Fatalf("revoked grant should be invalid")
	}
	// Record survives revocation for the audit trail.
	if _, err := tr.Find(context.Background(), key); err != nil {
		t.Fatalf("Find after revoke: %v", err)
	}
}

func TestTrackerNotFound(t *testing.T) {
	tr := NewTracker(NewMemory())
	key := Key{HomeID: "h1", UserID: "u1", DeviceID: "missing"}
	if _, err := tr.IsValid(context.Background(), key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := tr.RecordAccess(context.Background(), key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
