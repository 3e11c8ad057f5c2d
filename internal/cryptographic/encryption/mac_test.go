package encryption

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The subkey derivation and masking follow RFC 4493 for single-block input,
// so its vectors pin the tag values.
func TestMACVectors(t *testing.T) {
	key := fromHex(t, "2b7e151628aed2a6abf7158809cf4f3c")

	tests := []struct {
		name string
		seed string
		want string
	}{
		{"empty seed", "", "bb1d6929e95937287fa37d129b756746"},
		{"full block", "6bc1bee22e409f96e93d7e117393172a", "070a16b46b4d4144f79bdd9dd04a287c"},
		{"short seed", "6bc1bee22e409f96e93d7e11", "eac4a2024677c814cb6d9ded89b2d6cb"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tag, err := MAC(key, fromHex(t, tc.seed))
			require.NoError(t, err)
			assert.Equal(t, tc.want, hex.EncodeToString(tag[:]))
		})
	}
}

func TestMACSeedLengthSelectsSubkey(t *testing.T) {
	key := fromHex(t, "2b7e151628aed2a6abf7158809cf4f3c")

	// A 15-byte seed takes the terminator path; the same bytes padded by the
	// caller to 16 take the full-block path. The tags must differ.
	seed := fromHex(t, "6bc1bee22e409f96e93d7e117393172a")

	full, err := MAC(key, seed)
	require.NoError(t, err)
	short, err := MAC(key, seed[:15])
	require.NoError(t, err)

	assert.NotEqual(t, full, short)
}

func TestMACDeterministic(t *testing.T) {
	key := fromHex(t, "000102030405060708090a0b0c0d0e0f")
	seed := []byte{0x00, 0x00, 0x00, 0x07}

	a, err := MAC(key, seed)
	require.NoError(t, err)
	b, err := MAC(key, seed)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMACRejectsBadInput(t *testing.T) {
	_, err := MAC(make([]byte, 24), nil)
	assert.Error(t, err)

	_, err = MAC(make([]byte, 16), make([]byte, 17))
	assert.Error(t, err)
}
