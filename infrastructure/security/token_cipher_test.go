package security

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/halilenesdaghan/tiktok-api-integration/domain/apperrors"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestTokenCipherRoundTrip(t *testing.T) {
	cipher, err := NewTokenCipher(testKey())
	require.NoError(t, err)

	sealed, err := cipher.Encrypt("act.example-access-token")
	require.NoError(t, err)
	require.NotEqual(t, "act.example-access-token", sealed)

	plain, err := cipher.Decrypt(sealed)
	require.NoError(t, err)
	require.Equal(t, "act.example-access-token", plain)
}

func TestTokenCipherNonceUniqueness(t *testing.T) {
	cipher, err := NewTokenCipher(testKey())
	require.NoError(t, err)

	a, err := cipher.Encrypt("same-plaintext")
	require.NoError(t, err)
	b, err := cipher.Encrypt("same-plaintext")
	require.NoError(t, err)
	require.NotEqual(t, a, b, "a fresh nonce must be used per encryption")
}

func TestTokenCipherTamperedCiphertext(t *testing.T) {
	cipher, err := NewTokenCipher(testKey())
	require.NoError(t, err)

	sealed, err := cipher.Encrypt("rft.example-refresh-token")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = cipher.Decrypt(tampered)
	require.ErrorIs(t, err, apperrors.ErrCorruptedCredential)
}

func TestTokenCipherWrongKey(t *testing.T) {
	cipher, err := NewTokenCipher(testKey())
	require.NoError(t, err)

	other := testKey()
	other[0] ^= 0xff
	cipher2, err := NewTokenCipher(other)
	require.NoError(t, err)

	sealed, err := cipher.Encrypt("secret")
	require.NoError(t, err)

	_, err = cipher2.Decrypt(sealed)
	require.ErrorIs(t, err, apperrors.ErrCorruptedCredential)
}

func TestTokenCipherInvalidBase64(t *testing.T) {
	cipher, err := NewTokenCipher(testKey())
	require.NoError(t, err)

	_, err = cipher.Decrypt("not base64!!!")
	require.ErrorIs(t, err, apperrors.ErrCorruptedCredential)
}

func TestNewTokenCipherKeyLength(t *testing.T) {
	_, err := NewTokenCipher(make([]byte, 16))
	require.Error(t, err)
}

func TestNewTokenCipherFromEnv(t *testing.T) {
	t.Setenv(EncryptionKeyEnv, base64.StdEncoding.EncodeToString(testKey()))

	cipher, err := NewTokenCipherFromEnv()
	require.NoError(t, err)

	sealed, err := cipher.Encrypt("value")
	require.NoError(t, err)
	plain, err := cipher.Decrypt(sealed)
	require.NoError(t, err)
	require.Equal(t, "value", plain)
}

func TestNewTokenCipherFromEnvMissing(t *testing.T) {
	t.Setenv(EncryptionKeyEnv, "")

	_, err := NewTokenCipherFromEnv()
	require.Error(t, err)
}
