package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := NewBcryptHasher(10)
	salt, err := h.GenerateSalt()
	require.NoError(t, err)
	assert.Len(t, salt, saltBytes*2, "salt is hex-encoded")

	hash, err := h.Hash(salt, "my-secret-password")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.NoError(t, h.Compare(hash, salt, "my-secret-password"))
	assert.Error(t, h.Compare(hash, salt, "not-my-password"))
}

func TestBcryptHasher_SaltIsPartOfTheHash(t *testing.T) {
	h := NewBcryptHasher(10)
	salt1, err := h.GenerateSalt()
	require.NoError(t, err)
	salt2, err := h.GenerateSalt()
	require.NoError(t, err)
	require.NotEqual(t, salt1, salt2)

	hash, err := h.Hash(salt1, "password")
	require.NoError(t, err)
	assert.Error(t, h.Compare(hash, salt2, "password"))
}

// bcrypt truncates inputs past 72 bytes; hashing the digest instead of the
// raw password keeps long passwords distinguishable.
func TestBcryptHasher_LongPasswords(t *testing.T) {
	h := NewBcryptHasher(10)
	salt, err := h.GenerateSalt()
	require.NoError(t, err)

	long := strings.Repeat("a", 100)
	hash, err := h.Hash(salt, long)
	require.NoError(t, err)

	assert.NoError(t, h.Compare(hash, salt, long))
	assert.Error(t, h.Compare(hash, salt, long+"b"))
}
