package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, CheckPassword("s3cret-pass", hash))
	assert.False(t, CheckPassword("wrong-pass", hash))
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9', "code %q contains non-digit %q", code, c)
	}
}

func TestGenerateNumericCodeDigitsUniform(t *testing.T) {
	// 1000 six-digit codes; every digit should show up and none should
	// dominate the way a biased generator would over this many samples.
	counts := make(map[rune]int)
	for i := 0; i < 1000; i++ {
		code, err := GenerateNumericCode(6)
		require.NoError(t, err)
		for _, c := range code {
			counts[c]++
		}
	}
	require.Len(t, counts, 10)
	for d, n := range counts {
		// Expected 600 per digit; allow a wide margin to stay flake-free.
		assert.Greater(t, n, 400, "digit %q underrepresented", d)
		assert.Less(t, n, 800, "digit %q overrepresented", d)
	}
}
