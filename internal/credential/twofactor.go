package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
)

const (
	backupCodeCount  = 10
	backupCodeDigits = 8
)

// OTPVerifier is the one-time-password capability. TOTP math lives
// outside this package; implementations wrap an external library or
// hardware token.
type OTPVerifier interface {
	VerifyCode(secret, code string) (bool, error)
}

// GenerateBackupCodes produces a fresh set of single-use numeric backup
// codes from the given randomness source (nil means crypto/rand).
func GenerateBackupCodes(r io.Reader) ([]string, error) {
	if r == nil {
		r = rand.Reader
	}
	codes := make([]string, 0, backupCodeCount)
	buf := make([]byte, backupCodeDigits)
	for i := 0; i < backupCodeCount; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("credential: generate backup codes: %w", err)
		}
		code := make([]byte, backupCodeDigits)
		for j, b := range buf {
			code[j] = '0' + b%10
		}
		codes = append(codes, string(code))
	}
	return codes, nil
}

// ConsumeBackupCode checks the candidate against the remaining codes and,
// on a match, returns the set with that code removed. Each code is valid
// exactly once.
func ConsumeBackupCode(codes []string, candidate string) ([]string, bool) {
	for i, code := range codes {
		if subtle.ConstantTimeCompare([]byte(code), []byte(candidate)) == 1 {
			remaining := make([]string, 0, len(codes)-1)
			remaining = append(remaining, codes[:i]...)
			remaining = append(remaining, codes[i+1:]...)
			return remaining, true
		}
	}
	return codes, false
}
