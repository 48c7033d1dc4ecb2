package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	for _, size := range []int{TokenSize128, TokenSize256, 24} {
		token, err := GenerateToken(size)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		token2, err := GenerateToken(size)
		require.NoError(t, err)
		require.NotEqual(t, token, token2, "tokens should be unique")
	}
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}

	require.Panics(t, func() { MustGenerateToken(0) })
}

func TestFingerprintToken(t *testing.T) {
	fp1a := FingerprintToken("test-token-1")
	fp1b := FingerprintToken("test-token-1")
	fp2 := FingerprintToken("test-token-2")

	require.Equal(t, fp1a, fp1b, "fingerprint should be deterministic")
	require.NotEqual(t, fp1a, fp2)

	// 9 bytes of digest, base64url without padding
	require.Len(t, fp1a, 12)
	require.NotContains(t, fp1a, "test-token")
}

func TestEqualSecret(t *testing.T) {
	const secret = "s3rvice-to-service"

	require.True(t, EqualSecret(secret, secret))
	require.False(t, EqualSecret(secret[:5], secret), "prefix must not match")
	require.False(t, EqualSecret(secret+"x", secret), "extension must not match")
	require.False(t, EqualSecret("", secret))
	require.False(t, EqualSecret("", ""), "empty secret disables the comparison")
	require.False(t, EqualSecret("anything", ""))
}
