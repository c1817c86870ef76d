package utils

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setTestKey(t *testing.T) {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(key))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	setTestKey(t)

	ciphertext, err := Encrypt("someone@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "someone@example.com", ciphertext)

	plaintext, err := Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "someone@example.com", plaintext)
}

func TestEncryptEmptyStringIsNoop(t *testing.T) {
	setTestKey(t)

	out, err := Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	setTestKey(t)

	ciphertext, err := Encrypt("secret")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = Decrypt(tampered)
	assert.Error(t, err)
}

func TestGetEncryptionKeyValidation(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "")
	_, err := GetEncryptionKey()
	assert.Error(t, err)

	t.Setenv("ENCRYPTION_KEY", "not base64!!!")
	_, err = GetEncryptionKey()
	assert.Error(t, err)

	t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString([]byte("short")))
	_, err = GetEncryptionKey()
	assert.Error(t, err)
}
