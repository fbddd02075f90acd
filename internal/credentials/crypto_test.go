package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher("shared-secret")
	require.NoError(t, err)

	encrypted, err := c.Encrypt("sk-live-abcdef123456")
	require.NoError(t, err)
	assert.NotEqual(t, "sk-live-abcdef123456", encrypted)

	plain, err := c.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "sk-live-abcdef123456", plain)
}

func TestCipherNonDeterministicNonce(t *testing.T) {
	c, err := NewCipher("shared-secret")
	require.NoError(t, err)

	first, err := c.Encrypt("same-plaintext")
	require.NoError(t, err)
	second, err := c.Encrypt("same-plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCipherWrongSecret(t *testing.T) {
	c1, err := NewCipher("secret-one")
	require.NoError(t, err)
	c2, err := NewCipher("secret-two")
	require.NoError(t, err)

	encrypted, err := c1.Encrypt("sk-live-abcdef123456")
	require.NoError(t, err)

	_, err = c2.Decrypt(encrypted)
	assert.Error(t, err)
}

func TestCipherRejectsGarbage(t *testing.T) {
	c, err := NewCipher("shared-secret")
	require.NoError(t, err)

	_, err = c.Decrypt("not base64 at all!!!")
	assert.Error(t, err)

	_, err = c.Decrypt("c2hvcnQ=") // valid base64, shorter than a nonce
	assert.Error(t, err)
}

func TestNewCipherEmptySecret(t *testing.T) {
	_, err := NewCipher("")
	assert.Error(t, err)
}

func TestGenerateHint(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"short key", "sk-12345", "***"},
		{"empty key", "", "***"},
		{"exactly eight", "12345678", "***"},
		{"long key", "sk-live-abcdef123456", "sk-...456"},
		{"nine chars", "123456789", "123...789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateHint(tt.key))
		})
	}
}
