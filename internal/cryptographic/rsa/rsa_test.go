package rsa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testModulus = "dcee073be2d1a126ce3840ddf01a04a6bbb409d5c39cbe8ff07b3962624494b6" +
		"8ad95e1070ded9e829205e767f8126a5c98004ab9abeea59e39e811fb618436c" +
		"854ffa3b4a72bf06c9eabd0222edd73f19a4103e575167ad4f6646f9a6f24279" +
		"f573be77f6ed4afb0d95117bd4dfe3ff998e893127fa99e2f2e9921b4d8cd7db"
	testPrivateExponent = "be08b0883e8dfa841a962095c6d55a72e0b9f84bbb3ab45fb3870ad1299dbc1d" +
		"5849a8b393a2dce4e99b4225c37f1ff332e3bf20acb6d37606686cc10e2cc8b0" +
		"91e429bb65d1e99bafe71fce37cadaffe14bc3804d3da92a45168d449dde0676" +
		"fbc66781b8e7f5f90ccb9348d2f1aa17273f4455e4d2d23267a19d26dc5106e1"
	testPublicExponent = "10001"
)

func testKeys(t *testing.T) (*PrivateKey, *PublicKey) {
	t.Helper()
	priv, err := NewPrivateKey(testModulus, testPrivateExponent, testPublicExponent)
	require.NoError(t, err)
	pub, err := NewPublicKey(testModulus, testPublicExponent)
	require.NoError(t, err)
	return priv, pub
}

func TestTransformRoundTrip(t *testing.T) {
	priv, pub := testKeys(t)

	in := make([]byte, 128)
	for i := range in {
		in[i] = byte(i + 3)
	}
	in[0] = 0 // keep the value below the modulus

	signed := make([]byte, 128)
	n, err := priv.Transform(signed, in)
	require.NoError(t, err)
	assert.Equal(t, 128, n)
	assert.NotEqual(t, in, signed)

	back := make([]byte, 128)
	n, err = pub.Transform(back, signed)
	require.NoError(t, err)
	assert.Equal(t, 128, n)
	assert.Equal(t, in, back)
}

// The big-integer representation drops leading zero bytes; the fixed-width
// output must restore them so the round trip is byte-exact.
func TestTransformRestoresLeadingZeros(t *testing.T) {
	priv, pub := testKeys(t)

	in := make([]byte, 128)
	for i := 5; i < len(in); i++ {
		in[i] = byte(i * 11)
	}

	signed := make([]byte, 128)
	_, err := priv.Transform(signed, in)
	require.NoError(t, err)

	back := make([]byte, 128)
	_, err = pub.Transform(back, signed)
	require.NoError(t, err)
	assert.Equal(t, in, back)
}

func TestSignMatchesPrivateTransform(t *testing.T) {
	priv, _ := testKeys(t)

	in := make([]byte, 128)
	in[127] = 0xbc

	a := make([]byte, 128)
	b := make([]byte, 128)
	_, err := priv.Sign(a, in)
	require.NoError(t, err)
	_, err = priv.Transform(b, in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTransformRejectsSmallOutput(t *testing.T) {
	priv, _ := testKeys(t)

	in := make([]byte, 128)
	for i := range in {
		in[i] = 0x55
	}
	in[0] = 0

	out := make([]byte, 64)
	_, err := priv.Transform(out, in)
	assert.Error(t, err)
}

func TestNewKeyRejectsBadHex(t *testing.T) {
	_, err := NewPrivateKey("zz", testPrivateExponent, testPublicExponent)
	assert.Error(t, err)

	_, err = NewPublicKey(testModulus, "not-hex")
	assert.Error(t, err)
}
