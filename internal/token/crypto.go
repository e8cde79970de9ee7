package token

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

const (
	keyLen   = 32
	nonceLen = 12 // AES-256-GCM standard nonce size
)

// EncryptPayload serializes data to JSON and seals it with AES-256-GCM
// under a fresh key, storing the ciphertext on the token. The key is
// returned to the caller and never persisted here; key custody belongs to
// the caller, and a lost key makes the payload unrecoverable.
func (m *Manager) EncryptPayload(ctx context.Context, id string, data any) ([]byte, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not serializable", ErrInvalidInput)
	}

	key := make([]byte, keyLen)
	if _, err := io.ReadFull(m.rand, key); err != nil {
		return nil, fmt.Errorf("token: generate key: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(m.rand, nonce); err != nil {
		return nil, fmt.Errorf("token: generate nonce: %w", err)
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	encoded := base64.RawURLEncoding.EncodeToString(sealed)

	if _, err := m.store.Mutate(ctx, id, func(t *Token) error {
		t.EncryptedData = encoded
		return nil
	}); err != nil {
		return nil, err
	}
	return key, nil
}

// DecryptPayload opens the token's stored ciphertext with key and decodes
// it into out. A wrong key, corrupted ciphertext, and malformed stored
// data all surface as the same ErrDecrypt so callers cannot probe which
// part was at fault. The failure is logged.
func (m *Manager) DecryptPayload(ctx context.Context, id string, key []byte, out any) error {
	t, err := m.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if t.EncryptedData == "" {
		return fmt.Errorf("%w: no payload", ErrNotFound)
	}

	plaintext, reason := openPayload(t.EncryptedData, key)
	if reason != "" {
		m.log.Warn().Str("token_id", id).Msg("payload decryption failed")
		return ErrDecrypt
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		m.log.Warn().Str("token_id", id).Msg("payload decryption failed")
		return ErrDecrypt
	}
	return nil
}

func openPayload(encoded string, key []byte) ([]byte, string) {
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "encoding"
	}
	if len(sealed) < nonceLen {
		return nil, "length"
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, "key"
	}
	plaintext, err := aead.Open(nil, sealed[:nonceLen], sealed[nonceLen:], nil)
	if err != nil {
		return nil, "open"
	}
	return plaintext, ""
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
