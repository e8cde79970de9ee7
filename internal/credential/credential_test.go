package credential

import (
	"errors"
	"testing"
)

func TestPINRoundTrip(t *testing.T) {
	hash, err := HashPIN("441792")
	if err != nil {
		t.Fatalf("HashPIN: %v", err)
	}
	ok, err := VerifyPIN(hash, "441792")
	if err != nil {
		t.Fatalf("VerifyPIN: %v", err)
	}
	if !ok {
		t.Fatalf("correct PIN rejected")
	}
	ok, err = VerifyPIN(hash, "441793")
	if err != nil {
		t.Fatalf("VerifyPIN wrong: %v", err)
	}
	if ok {
		t.Fatalf("wrong PIN accepted")
	}
}

func TestPINValidation(t *testing.T) {
	for _, pin := range []string{"", "12345", "1234567", "12345a", "abcdef"} {
		if _, err := HashPIN(pin); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("HashPIN(%q): expected ErrInvalidInput, got %v", pin, err)
		}
	}
	if _, err := VerifyPIN("", "123456"); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}

func TestBackupCodes(t *testing.T) {
	codes, err := GenerateBackupCodes(nil)
	if err != nil {
		t.Fatalf("GenerateBackupCodes: %v", err)
	}
	if len(codes) != 10 {
		t.Fatalf("got %d codes, want 10", len(codes))
	}
	for _, code := range codes {
		if len(code) != 8 {
			t.Fatalf("code %q is not 8 digits", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains non-digit", code)
			}
		}
	}

	remaining, ok := ConsumeBackupCode(codes, codes[3])
	if !ok {
		t.Fatalf("valid code rejected")
	}
	if len(remaining) != 9 {
		t.Fatalf("code not consumed: %d remaining", len(remaining))
	}
	// The same code is single-use.
	if _, ok := ConsumeBackupCode(remaining, codes[3]); ok {
		t.Fatalf("consumed code accepted twice")
	}
	if _, ok := ConsumeBackupCode(remaining, "00000000"); ok {
		t.Fatalf("unknown code accepted")
	}
}

func TestBiometricHashVerifier(t *testing.T) {
	enrolled := HashTemplate("template-bytes-v1")
	var v HashVerifier
	if !v.VerifyTemplate(enrolled, "template-bytes-v1") {
		t.Fatalf("matching template rejected")
	}
	if v.VerifyTemplate(enrolled, "template-bytes-v2") {
		t.Fatalf("non-matching template accepted")
	}
	if v.VerifyTemplate("", "anything") {
		t.Fatalf("empty enrollment accepted")
	}
}
