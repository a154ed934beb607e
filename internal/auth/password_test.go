package auth_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegis-id/aegis/internal/auth"
	_ "github.com/aegis-id/aegis/testing"
)

func TestHashAndVerifyRoundTrip(t *testing.T) {
	hasher := auth.NewHasher()

	digest, salt, err := hasher.Hash("Sup3r-Secret!")
	require.NoError(t, err)
	require.NotEmpty(t, digest)
	require.NotEmpty(t, salt)

	raw, err := hex.DecodeString(digest)
	require.NoError(t, err)
	require.Len(t, raw, 32)

	require.True(t, hasher.Verify("Sup3r-Secret!", digest, salt))
	require.False(t, hasher.Verify("sup3r-secret!", digest, salt))
	require.False(t, hasher.Verify("", digest, salt))
}

func TestHashUsesFreshSalt(t *testing.T) {
	hasher := auth.NewHasher()

	digestA, saltA, err := hasher.Hash("Sup3r-Secret!")
	require.NoError(t, err)
	digestB, saltB, err := hasher.Hash("Sup3r-Secret!")
	require.NoError(t, err)

	require.NotEqual(t, saltA, saltB)
	require.NotEqual(t, digestA, digestB)
}

func TestVerifyRejectsCorruptDigest(t *testing.T) {
	hasher := auth.NewHasher()
	_, salt, err := hasher.Hash("Sup3r-Secret!")
	require.NoError(t, err)

	require.False(t, hasher.Verify("Sup3r-Secret!", "not-hex", salt))
}

func TestIsStrong(t *testing.T) {
	hasher := auth.NewHasher()

	cases := []struct {
		name   string
		secret string
		want   bool
	}{
		{"all classes", "Passw0rd!", true},
		{"too short", "Pw0rd!", false},
		{"no upper", "passw0rd!", false},
		{"no lower", "PASSW0RD!", false},
		{"no digit", "Password!", false},
		{"no special", "Passw0rdA", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, hasher.IsStrong(tc.secret))
		})
	}
}

func TestGenerateResetToken(t *testing.T) {
	a, err := auth.GenerateResetToken()
	require.NoError(t, err)
	b, err := auth.GenerateResetToken()
	require.NoError(t, err)

	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}
