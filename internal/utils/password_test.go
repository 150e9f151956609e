package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("Secur3!Pass")
	require.NoError(t, err)
	assert.NotEqual(t, "Secur3!Pass", hash)
	assert.True(t, h.Verify(hash, "Secur3!Pass"))
	assert.False(t, h.Verify(hash, "secur3!pass"))
	assert.False(t, h.Verify("not-a-hash", "Secur3!Pass"))
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).Cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).Cost)
	assert.Equal(t, 12, NewBcryptHasher(12).Cost)
}

func TestBcryptHasher_LongPasswords(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)
	long := "Aa1!" + strings.Repeat("x", 96)
	hash, err := h.Hash(long)
	require.NoError(t, err)
	assert.True(t, h.Verify(hash, long))
	// differs only past byte 72, which plain bcrypt would ignore
	assert.False(t, h.Verify(hash, "Aa1!"+strings.Repeat("x", 95)+"y"))

	multi := strings.Repeat("é", 40) + "A1!"
	hash, err = h.Hash(multi)
	require.NoError(t, err)
	assert.True(t, h.Verify(hash, multi))
}
