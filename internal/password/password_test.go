package password

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost)

	digest, err := h.Hash("s3cret!")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret!", digest)

	require.True(t, h.Verify("s3cret!", digest))
	require.False(t, h.Verify("S3cret!", digest))
	require.False(t, h.Verify("", digest))
	require.False(t, h.Verify("s3cret!", ""))
	require.False(t, h.Verify("s3cret!", "not-a-bcrypt-digest"))
}

func TestHasher_SaltDiffersPerCall(t *testing.T) {
	t.Parallel()

	h := New(bcrypt.MinCost)

	d1, err := h.Hash("same-password")
	require.NoError(t, err)
	d2, err := h.Hash("same-password")
	require.NoError(t, err)

	require.NotEqual(t, d1, d2)
	require.True(t, h.Verify("same-password", d1))
	require.True(t, h.Verify("same-password", d2))
}

func TestHasher_EmptyPassword(t *testing.T) {
	t.Parallel()

	_, err := New(bcrypt.MinCost).Hash("")
	require.ErrorIs(t, err, ErrEmptyPassword)
}

func TestNew_CostOutOfRange_FallsBackToDefault(t *testing.T) {
	t.Parallel()

	h := New(1)
	digest, err := h.Hash("pw")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	require.Equal(t, bcrypt.DefaultCost, cost)
}
