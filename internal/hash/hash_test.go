package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("password")
	require.NoError(t, err)
	require.NotEmpty(t, h)
	require.NotEqual(t, "password", h)

	// per-call salt: hashing twice never yields the same string
	h2, err := HashPassword("password")
	require.NoError(t, err)
	require.NotEqual(t, h, h2)
}

func TestCheckPassword(t *testing.T) {
	h, err := HashPassword("password")
	require.NoError(t, err)

	require.True(t, CheckPassword(h, "password"))
	require.False(t, CheckPassword(h, "wrong"))
	require.False(t, CheckPassword("not a hash", "password"))
}
