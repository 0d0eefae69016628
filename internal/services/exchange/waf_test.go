package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsWAFChallenge(t *testing.T) {
	assert.True(t, IsWAFChallenge("<html><script>var arg1='6A1BD91A326E6D59624B3D30A11D8797179D2ABF';</script></html>"))
	assert.False(t, IsWAFChallenge("<html><body>normal page</body></html>"))
	assert.False(t, IsWAFChallenge(""))
}

func TestSolveWAFChallenge(t *testing.T) {
	body := "var arg1='6A1BD91A326E6D59624B3D30A11D8797179D2ABF';"

	cookie := SolveWAFChallenge(body)
	require.NotEmpty(t, cookie)

	// 40 hex chars in, 40 lowercase hex chars out.
	assert.Len(t, cookie, 40)
	for _, r := range cookie {
		assert.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f'), "unexpected character %c", r)
	}

	// Same input always derives the same cookie.
	assert.Equal(t, cookie, SolveWAFChallenge(body))
}

func TestSolveWAFChallenge_Deterministic(t *testing.T) {
	// Hand-checked derivation: token equal to the mask after permutation
	// XORs to a predictable value, so verify the permutation itself instead.
	// Character 1 of the token (index 0) must land at slot 6, because
	// posList[6] == 0x1.
	tokenA := "A000000000000000000000000000000000000000"
	tokenB := "B000000000000000000000000000000000000000"

	a := SolveWAFChallenge("var arg1='" + tokenA + "';")
	b := SolveWAFChallenge("var arg1='" + tokenB + "';")
	require.NotEmpty(t, a)
	require.NotEmpty(t, b)

	// Only the byte pair containing slot 6 may differ.
	assert.Equal(t, a[:6], b[:6])
	assert.NotEqual(t, a[6:8], b[6:8])
	assert.Equal(t, a[8:], b[8:])
}

func TestSolveWAFChallenge_MissingToken(t *testing.T) {
	assert.Empty(t, SolveWAFChallenge("<html>no challenge here</html>"))
	assert.Empty(t, SolveWAFChallenge(""))
	// Lowercase hex is not the challenge's token format.
	assert.Empty(t, SolveWAFChallenge("var arg1='abcdef';"))
}
