package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/apperrors"
)

// EncryptionKeyEnv names the environment variable carrying the base64
// encoded 32-byte key used to seal tokens at rest.
const EncryptionKeyEnv = "TOKEN_ENCRYPTION_KEY"

// TokenCipher seals and opens OAuth token material before it reaches
// the database. Ciphertext layout is nonce||sealed, base64 encoded.
type TokenCipher struct {
	key []byte
}

// NewTokenCipher builds a cipher from a raw 32-byte key.
func NewTokenCipher(key []byte) (*TokenCipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("token cipher key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &TokenCipher{key: k}, nil
}

// NewTokenCipherFromEnv reads the base64 key from TOKEN_ENCRYPTION_KEY.
func NewTokenCipherFromEnv() (*TokenCipher, error) {
	raw := os.Getenv(EncryptionKeyEnv)
	if raw == "" {
		return nil, fmt.Errorf("%s not set", EncryptionKeyEnv)
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", EncryptionKeyEnv, err)
	}
	return NewTokenCipher(key)
}

// Encrypt seals plaintext with a fresh random nonce.
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("init aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a sealed value produced by Encrypt. Any tampering or a
// key mismatch yields apperrors.ErrCorruptedCredential.
func (c *TokenCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrCorruptedCredential, err)
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("init aead: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", apperrors.ErrCorruptedCredential)
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrCorruptedCredential, err)
	}
	return string(plaintext), nil
}
