// Package access tracks per-device access grants and their usage.
package access

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("access: not found")
	ErrAlreadyExists = errors.New("access: already exists")
	ErrInvalidInput  = errors.New("access: invalid input")
)

// Level is the access level attached to a grant.
type Level string

const (
	LevelAdmin     Level = "admin"
	LevelOwner     Level = "owner"
	LevelFamily    Level = "family"
	LevelGuest     Level = "guest"
	LevelService   Level = "service"
	LevelEmergency Level = "emergency"
)

var levels = map[Level]struct{}{
	LevelAdmin: {}, LevelOwner: {}, LevelFamily: {},
	LevelGuest: {}, LevelService: {}, LevelEmergency: {},
}

// Grant is one user's permission to operate one device. Unique per
// (home, user, device); never physically deleted, revocation flips Active.
type Grant struct {
	ID          string
	HomeID      string
	UserID      string
	DeviceID    string
	Level       Level
	Active      bool
	GrantedAt   time.Time
	ExpiresAt   *time.Time
	LastUsed    *time.Time
	AccessCount uint64
	// Restrictions are opaque here; callers interpret them (for example
	// time-of-day windows).
	Restrictions map[string]any
}

// Valid reports whether the grant admits use at the given instant.
// Inactive grants are invalid regardless of expiry; expired grants are
// invalid regardless of the active flag.
func (g *Grant) Valid(now time.Time) bool {
	if !g.Active {
		return false
	}
	if g.ExpiresAt != nil && now.After(*g.ExpiresAt) {
		return false
	}
	return true
}

// Key identifies a grant by its natural identity.
type Key struct {
	HomeID   string
	UserID   string
	DeviceID string
}

func (k Key) valid() bool {
	return k.HomeID != "" && k.UserID != "" && k.DeviceID != ""
}
