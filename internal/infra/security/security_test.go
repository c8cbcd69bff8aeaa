package security

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse", hash)

	require.NoError(t, h.Compare(hash, "correct horse"))
	require.ErrorIs(t, h.Compare(hash, "wrong"), ErrPasswordMismatch)
}

func TestRandomTokenGeneratorIsUnique(t *testing.T) {
	g := RandomTokenGenerator{Size: 16}
	a, err := g.NewToken()
	require.NoError(t, err)
	b, err := g.NewToken()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.Len(t, a, 22)
}
