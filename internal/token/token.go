// Package token manages bearer credential lifecycle: issuance, validity,
// usage recording, revocation, and encryption of attached payloads.
package token

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("token: not found")
	ErrAlreadyExists = errors.New("token: already exists")
	ErrInvalidInput  = errors.New("token: invalid input")
	// ErrDecrypt covers every payload decryption failure. It deliberately
	// does not distinguish a wrong key from corrupted ciphertext.
	ErrDecrypt = errors.New("token: decryption failed")
)

// Type classifies a token.
type Type string

const (
	TypeAPI       Type = "api"
	TypeRefresh   Type = "refresh"
	TypeSession   Type = "session"
	TypeDevice    Type = "device"
	TypeEmergency Type = "emergency"
)

var types = map[Type]struct{}{
	TypeAPI: {}, TypeRefresh: {}, TypeSession: {}, TypeDevice: {}, TypeEmergency: {},
}

// Token is a bearer credential. The value is opaque: random bytes encoded
// to a printable alphabet, compared only for exact equality. Once revoked
// the active flag never returns to true.
type Token struct {
	ID            string
	UserID        string
	Type          Type
	Value         string
	EncryptedData string
	Active        bool
	ExpiresAt     *time.Time
	LastUsed      *time.Time
	IPAddress     string
	UserAgent     string
	Fingerprint   string
	CreatedAt     time.Time
}

// Valid reports whether the token admits use at the given instant.
func (t *Token) Valid(now time.Time) bool {
	if !t.Active {
		return false
	}
	if t.ExpiresAt != nil && now.After(*t.ExpiresAt) {
		return false
	}
	return true
}
