package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	hexKey, hexIV, err := GenerateKeyIV()
	require.NoError(t, err)
	c, err := NewCipher(hexKey, hexIV)
	require.NoError(t, err)

	plaintext := "https://portal.example.com/rest/1/abcdef"
	encrypted, err := c.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "portal.example.com")

	decrypted, err := c.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecryptWithWrongKey(t *testing.T) {
	hexKey, hexIV, err := GenerateKeyIV()
	require.NoError(t, err)
	c, err := NewCipher(hexKey, hexIV)
	require.NoError(t, err)

	plaintext := "secret webhook url"
	encrypted, err := c.Encrypt(plaintext)
	require.NoError(t, err)

	otherKey, otherIV, err := GenerateKeyIV()
	require.NoError(t, err)
	other, err := NewCipher(otherKey, otherIV)
	require.NoError(t, err)

	// Garbage plaintext can occasionally carry valid padding, so the
	// contract is: an error, or anything but the original text.
	decrypted, err := other.Decrypt(encrypted)
	if err == nil {
		assert.NotEqual(t, plaintext, decrypted)
	} else {
		assert.ErrorIs(t, err, ErrMalformedCiphertext)
	}
}

func TestDecryptMalformedInput(t *testing.T) {
	hexKey, hexIV, err := GenerateKeyIV()
	require.NoError(t, err)
	c, err := NewCipher(hexKey, hexIV)
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
	}{
		{"not base64", "%%%"},
		{"empty", ""},
		{"truncated block", "YWJj"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decrypt(tt.input)
			assert.ErrorIs(t, err, ErrMalformedCiphertext)
		})
	}
}

func TestNewCipherRejectsBadKeys(t *testing.T) {
	_, hexIV, err := GenerateKeyIV()
	require.NoError(t, err)

	tests := []struct {
		name string
		key  string
		iv   string
	}{
		{"short key", "abcd", hexIV},
		{"not hex", strings.Repeat("zz", 32), hexIV},
		{"short iv", strings.Repeat("ab", 32), "beef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCipher(tt.key, tt.iv)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestPassphraseDerivationIsStable(t *testing.T) {
	_, hexIV, err := GenerateKeyIV()
	require.NoError(t, err)

	first, err := NewCipherFromPassphrase("correct horse", "salt", hexIV)
	require.NoError(t, err)
	second, err := NewCipherFromPassphrase("correct horse", "salt", hexIV)
	require.NoError(t, err)

	encrypted, err := first.Encrypt("payload")
	require.NoError(t, err)
	decrypted, err := second.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "payload", decrypted)
}

func TestEncryptBlockAligned(t *testing.T) {
	hexKey, hexIV, err := GenerateKeyIV()
	require.NoError(t, err)
	c, err := NewCipher(hexKey, hexIV)
	require.NoError(t, err)

	// Exactly one block long; padding must still round-trip.
	plaintext := strings.Repeat("a", 16)
	encrypted, err := c.Encrypt(plaintext)
	require.NoError(t, err)
	decrypted, err := c.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}
