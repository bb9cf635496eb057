package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerificationToken(t *testing.T) {
	plain, hash, err := GenerateVerificationToken()
	require.NoError(t, err)

	assert.Len(t, plain, 40) // 20 random bytes, hex encoded
	assert.Len(t, hash, 64)  // sha256 hex digest
	assert.NotEqual(t, plain, hash)
	assert.Equal(t, hash, HashToken(plain))
}

func TestGenerateVerificationTokenIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		plain, _, err := GenerateVerificationToken()
		require.NoError(t, err)
		require.False(t, seen[plain])
		seen[plain] = true
	}
}

func TestHashTokenIsDeterministic(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
}
