package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	require.NotEqual(t, "Sup3rSecret", hash)

	assert.True(t, CompareHashAndPassword(hash, "Sup3rSecret"))
	assert.False(t, CompareHashAndPassword(hash, "sup3rsecret"))
	assert.False(t, CompareHashAndPassword(hash, ""))
}

func TestHashPasswordSaltsEachCall(t *testing.T) {
	h1, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	h2, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
