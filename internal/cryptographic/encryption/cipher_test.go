package encryption

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// The encrypt path reads the first schedule copy with the forward tables,
// which is plain FIPS-197 AES, so the published vectors apply.
func TestBlockVectors(t *testing.T) {
	plaintext := "00112233445566778899aabbccddeeff"

	tests := []struct {
		name string
		key  string
		want string
	}{
		{"128-bit", "000102030405060708090a0b0c0d0e0f", "69c4e0d86a7b0430d8cdb78070b4c55a"},
		{"192-bit", "000102030405060708090a0b0c0d0e0f1011121314151617", "dda97ca4864cdfe06eaf70a0ec0d7191"},
		{"256-bit", "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f", "8ea2b7ca516745bfeafc49904b496089"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sc, err := ExpandKey(fromHex(t, tc.key))
			require.NoError(t, err)

			block := fromHex(t, plaintext)
			sc.EncryptBlock(block, nil)
			assert.Equal(t, tc.want, hex.EncodeToString(block))

			sc.DecryptBlock(block, nil)
			assert.Equal(t, plaintext, hex.EncodeToString(block))
		})
	}
}

func TestBlockSeedLeavesSourceIntact(t *testing.T) {
	sc, err := ExpandKey(fromHex(t, "000102030405060708090a0b0c0d0e0f"))
	require.NoError(t, err)

	seed := fromHex(t, "00112233445566778899aabbccddeeff")
	orig := append([]byte(nil), seed...)

	out := make([]byte, BlockSize)
	sc.EncryptBlock(out, seed)

	assert.Equal(t, orig, seed)
	assert.Equal(t, "69c4e0d86a7b0430d8cdb78070b4c55a", hex.EncodeToString(out))
}

func TestExpandKeyRejectsBadLengths(t *testing.T) {
	for _, n := range []int{0, 1, 15, 17, 23, 25, 33} {
		_, err := ExpandKey(make([]byte, n))
		assert.Error(t, err, "key length %d", n)
	}
}

func TestChainRoundTrip(t *testing.T) {
	key := fromHex(t, "2b7e151628aed2a6abf7158809cf4f3c")

	for _, n := range []int{16, 32, 48, 832} {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i*13 + 7)
		}
		orig := append([]byte(nil), data...)

		require.NoError(t, Chain(key, data, true))
		assert.NotEqual(t, orig, data, "length %d", n)
		require.NoError(t, Chain(key, data, false))
		assert.Equal(t, orig, data, "length %d", n)
	}
}

// A ragged tail keeps only its own byte count of the final ciphertext block,
// so the tail cannot be inverted; only the full-block prefix round-trips. The
// protocol itself chains nothing but 16- and 832-byte buffers.
func TestChainRaggedLengths(t *testing.T) {
	key := fromHex(t, "2b7e151628aed2a6abf7158809cf4f3c")

	for _, n := range []int{1, 15, 17, 31, 33, 107} {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i*13 + 7)
		}
		orig := append([]byte(nil), data...)

		require.NoError(t, Chain(key, data, true))
		require.Len(t, data, n)
		require.NoError(t, Chain(key, data, false))
		require.Len(t, data, n)

		whole := n - n%BlockSize
		assert.Equal(t, orig[:whole], data[:whole], "length %d", n)
		assert.NotEqual(t, orig[whole:], data[whole:], "length %d", n)
	}
}

// The first chained block sees an all-zero feedback, so it must equal a raw
// block encryption of the same bytes.
func TestChainFirstBlockMatchesRawBlock(t *testing.T) {
	key := fromHex(t, "000102030405060708090a0b0c0d0e0f")
	sc, err := ExpandKey(key)
	require.NoError(t, err)

	data := make([]byte, 48)
	for i := range data {
		data[i] = byte(i)
	}

	raw := append([]byte(nil), data[:BlockSize]...)
	sc.EncryptBlock(raw, nil)

	require.NoError(t, Chain(key, data, true))
	assert.Equal(t, raw, data[:BlockSize])
	assert.NotEqual(t, raw, data[BlockSize:2*BlockSize])
}

// A short final chunk is zero-padded for the block operation but only the
// original byte count is written back, truncating the final ciphertext
// block. The decrypt side then works from a zero-padded partial block, so
// the whole blocks recover and the tail comes back as fixed garbage.
func TestChainShortFinalChunk(t *testing.T) {
	key := fromHex(t, "2b7e151628aed2a6abf7158809cf4f3c")

	data := bytes.Repeat([]byte{0xa5}, 21)

	require.NoError(t, Chain(key, data, true))
	require.Len(t, data, 21)
	require.NoError(t, Chain(key, data, false))
	require.Len(t, data, 21)

	assert.Equal(t, bytes.Repeat([]byte{0xa5}, 16), data[:16])
	assert.Equal(t, fromHex(t, "8394d26d18"), data[16:])
}

func TestECB(t *testing.T) {
	key := fromHex(t, "000102030405060708090a0b0c0d0e0f")

	t.Run("round trip", func(t *testing.T) {
		data := bytes.Repeat(fromHex(t, "00112233445566778899aabbccddeeff"), 3)
		require.NoError(t, ECB(key, data, true))

		// No chaining: identical plaintext blocks yield identical ciphertext.
		assert.Equal(t, data[:16], data[16:32])
		assert.Equal(t, "69c4e0d86a7b0430d8cdb78070b4c55a", hex.EncodeToString(data[:16]))

		require.NoError(t, ECB(key, data, false))
		assert.Equal(t, bytes.Repeat(fromHex(t, "00112233445566778899aabbccddeeff"), 3), data)
	})

	t.Run("ragged length untouched", func(t *testing.T) {
		data := fromHex(t, "00112233445566778899aabbccddee")
		orig := append([]byte(nil), data...)
		require.NoError(t, ECB(key, data, true))
		assert.Equal(t, orig, data)
	})
}
