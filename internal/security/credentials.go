package security

import (
	"context"

	"homeguard.org/internal/credential"
)

// HashPIN validates and hashes a 6-digit PIN for storage.
func (s *Service) HashPIN(pin string) (string, error) {
	return credential.HashPIN(pin)
}

// VerifyPIN checks a candidate PIN against the stored hash and audits the
// attempt. A wrong PIN is a deny result, not an error.
func (s *Service) VerifyPIN(ctx context.Context, userID, hash, pin string) (bool, error) {
	ok, err := credential.VerifyPIN(hash, pin)
	if err != nil {
		return false, err
	}
	decision := "deny"
	if ok {
		decision = "allow"
	}
	s.emit(ctx, "credential", userID, decision, "", map[string]string{"method": "pin"})
	return ok, nil
}

// VerifyBackupCode consumes a single-use two-factor backup code. The
// returned slice replaces the stored set on success.
func (s *Service) VerifyBackupCode(ctx context.Context, userID string, codes []string, candidate string) ([]string, bool) {
	remaining, ok := credential.ConsumeBackupCode(codes, candidate)
	decision := "deny"
	if ok {
		decision = "allow"
	}
	s.emit(ctx, "credential", userID, decision, "", map[string]string{"method": "backup_code"})
	return remaining, ok
}

// EnrollBiometric returns the enrollment digest for a captured template.
func (s *Service) EnrollBiometric(templateData string) string {
	return credential.HashTemplate(templateData)
}

// VerifyBiometric matches a captured template against the enrollment.
func (s *Service) VerifyBiometric(ctx context.Context, userID, enrolledHash, templateData string) bool {
	ok := s.biometric.VerifyTemplate(enrolledHash, templateData)
	decision := "deny"
	if ok {
		decision = "allow"
	}
	s.emit(ctx, "credential", userID, decision, "", map[string]string{"method": "biometric"})
	return ok
}
