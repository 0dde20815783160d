package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := New("a-test-secret-key-value")
	require.NoError(t, err)

	cases := []string{
		"ya29.a0Ab-access-token-value",
		"1//0g-refresh-token-value",
		"short",
	}

	for _, plaintext := range cases {
		t.Run(plaintext, func(t *testing.T) {
			ciphertext, err := c.Encrypt(plaintext)
			require.NoError(t, err)

			require.True(t, IsEncrypted(ciphertext))
			require.False(t, IsEncrypted(plaintext))

			got, err := c.Decrypt(ciphertext)
			require.NoError(t, err)
			require.Equal(t, plaintext, got)
		})
	}
}

func TestEncryptEmptyString(t *testing.T) {
	c, err := New("a-test-secret-key-value")
	require.NoError(t, err)

	ciphertext, err := c.Encrypt("")
	require.NoError(t, err)
	require.Equal(t, "", ciphertext)

	plaintext, err := c.Decrypt("")
	require.NoError(t, err)
	require.Equal(t, "", plaintext)
}

func TestDifferentKeysDoNotCrossDecrypt(t *testing.T) {
	a, err := New("secret-a")
	require.NoError(t, err)
	b, err := New("secret-b")
	require.NoError(t, err)

	ciphertext, err := a.Encrypt("sensitive-value")
	require.NoError(t, err)

	_, err = b.Decrypt(ciphertext)
	require.Error(t, err)
}

func TestKeyDerivationIsDeterministic(t *testing.T) {
	a, err := New("same-secret")
	require.NoError(t, err)
	b, err := New("same-secret")
	require.NoError(t, err)

	ciphertext, err := a.Encrypt("value")
	require.NoError(t, err)

	got, err := b.Decrypt(ciphertext)
	require.NoError(t, err)
	require.Equal(t, "value", got)
}
