package hash

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The compression function matches FIPS 180 SHA-1 round-for-round, so the
// published vectors pin the digest down exactly.
func TestDigestVectors(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"empty", "", "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{"abc", "abc", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{"two blocks", "abcdbcdecdefdefgefghfghighijhijkijkljklmklmnlmnomnopnopq", "84983e441c3bd26ebaae4aa1f95129e5e54670f1"},
		{"block boundary", string(bytes.Repeat([]byte{'a'}, 64)), "0098ba824b5c16427bd7a1122a5a442a25ec644d"},
		{"terminator split", string(bytes.Repeat([]byte{'a'}, 57)), "f08f24908d682555111be7ff6f004e78283d989a"},
	}

	st := New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := st.Digest([]byte(tc.msg))
			assert.Equal(t, tc.want, hex.EncodeToString(got[:]))
		})
	}
}

func TestStreamingSplitsAgree(t *testing.T) {
	msg := make([]byte, 257)
	for i := range msg {
		msg[i] = byte(i * 7)
	}

	st := New()
	st.Update(msg)
	want := st.Finalize()

	for _, split := range [][]int{
		{1, 256},
		{63, 1, 193},
		{64, 64, 64, 65},
		{100, 100, 57},
		{257},
		{5, 5, 5, 5, 237},
	} {
		st.Reset()
		off := 0
		for _, n := range split {
			st.Update(msg[off : off+n])
			off += n
		}
		require.Equal(t, len(msg), off)
		got := st.Finalize()
		assert.Equal(t, want, got, "split %v", split)
	}
}

func TestFinalizeResetsForReuse(t *testing.T) {
	st := New()

	st.Update([]byte("first message"))
	first := st.Finalize()

	// The state must come back identical to a fresh one.
	second := st.Digest([]byte("first message"))
	assert.Equal(t, first, second)
}

func TestExpandPrefixProperty(t *testing.T) {
	st := New()
	msg := []byte("keystream seed material")

	long := st.Expand(msg, 107)
	for _, n := range []int{1, 19, 20, 21, 40, 99, 107} {
		short := st.Expand(msg, n)
		assert.Equal(t, long[:n], short, "outLen=%d", n)
	}
}

func TestExpandChunkIndependence(t *testing.T) {
	st := New()
	msg := []byte{0xde, 0xad, 0xbe, 0xef}

	out := st.Expand(msg, 60)

	// Each 20-byte chunk is the digest of msg with its own counter suffix.
	for i := 0; i < 3; i++ {
		counted := append(append([]byte(nil), msg...), 0, 0, 0, byte(i))
		want := st.Digest(counted)
		assert.Equal(t, want[:], out[i*Size:(i+1)*Size], "chunk %d", i)
	}
}
