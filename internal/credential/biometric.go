package credential

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// BiometricVerifier matches a captured template against an enrolled one.
// Real matching algorithms plug in here; the default compares digests,
// which is a stand-in inherited from the system this replaces, not a
// biometric matcher.
type BiometricVerifier interface {
	VerifyTemplate(enrolledHash, templateData string) bool
}

// HashVerifier is the digest-comparison BiometricVerifier.
type HashVerifier struct{}

// HashTemplate returns the enrollment digest for template data.
func HashTemplate(templateData string) string {
	sum := sha256.Sum256([]byte(templateData))
	return hex.EncodeToString(sum[:])
}

func (HashVerifier) VerifyTemplate(enrolledHash, templateData string) bool {
	if enrolledHash == "" {
		return false
	}
	current := HashTemplate(templateData)
	return subtle.ConstantTimeCompare([]byte(enrolledHash), []byte(current)) == 1
}
