// Package credential verifies secondary credentials: PIN codes, two-factor
// backup codes, and biometric templates.
package credential

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput = errors.New("credential: invalid input")
	ErrNoCredential = errors.New("credential: not configured")
)

const pinLength = 6

// HashPIN validates and hashes a 6-digit PIN code.
func HashPIN(pin string) (string, error) {
	if err := validatePIN(pin); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPIN compares a candidate PIN with the stored hash. Returns false
// without error for a well-formed but wrong PIN.
func VerifyPIN(hash, pin string) (bool, error) {
	if hash == "" {
		return false, ErrNoCredential
	}
	if err := validatePIN(pin); err != nil {
		return false, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)); err != nil {
		return false, nil
	}
	return true, nil
}

func validatePIN(pin string) error {
	if len(pin) != pinLength {
		return fmt.Errorf("%w: PIN must be %d digits", ErrInvalidInput, pinLength)
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: PIN must be %d digits", ErrInvalidInput, pinLength)
		}
	}
	return nil
}
