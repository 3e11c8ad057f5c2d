package handshake

import (
	"bytes"
	"crypto/subtle"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtpz_auth/internal/cryptographic/hash"
	"mtpz_auth/internal/cryptographic/rsa"
	"mtpz_auth/internal/model"
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

func testKeyMaterial() *model.KeyMaterial {
	return &model.KeyMaterial{
		PublicExponent:  testPublicExponent,
		EncryptionKey:   []byte("0123456789abcdef"),
		Modulus:         testModulus,
		PrivateExponent: testPrivateExponent,
		Certificates:    bytes.Repeat([]byte{0xc3}, CertBlobSize),
	}
}

func testPrivateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.NewPrivateKey(testModulus, testPrivateExponent, testPublicExponent)
	require.NoError(t, err)
	return priv
}

func TestBuildCertificateMessage(t *testing.T) {
	km := testKeyMaterial()
	msg, nonce, err := buildCertificateMessage(km, testPrivateKey(t))
	require.NoError(t, err)
	require.Len(t, msg, CertMessageSize)

	assert.Equal(t, []byte{0x02, 0x01, 0x01, 0x00, 0x00, 0x02, 0x75}, msg[:7])
	assert.Equal(t, km.Certificates, msg[certBlobOffset:certBlobOffset+CertBlobSize])
	assert.Equal(t, []byte{0x00, 0x10}, msg[nonceOffset-2:nonceOffset])
	assert.Equal(t, nonce[:], msg[nonceOffset:nonceOffset+NonceSize])
	assert.Equal(t, []byte{0x01, 0x00, 0x80}, msg[sigOffset-3:sigOffset])
}

func TestBuildCertificateMessageFreshNonce(t *testing.T) {
	km := testKeyMaterial()
	priv := testPrivateKey(t)

	_, a, err := buildCertificateMessage(km, priv)
	require.NoError(t, err)
	_, b, err := buildCertificateMessage(km, priv)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

// The signature block must survive the public transform with its structure
// intact: trailer byte 0xbc, cleared top bit, and the digest over the signed
// body at its fixed offset.
func TestSignCertificateBodyVerifies(t *testing.T) {
	priv := testPrivateKey(t)
	pub, err := rsa.NewPublicKey(testModulus, testPublicExponent)
	require.NoError(t, err)

	body := make([]byte, 652)
	for i := range body {
		body[i] = byte(i * 5)
	}

	sig, err := signCertificateBody(body, priv)
	require.NoError(t, err)
	require.Len(t, sig, SignatureSize)

	block := make([]byte, SignatureSize)
	_, err = pub.Transform(block, sig)
	require.NoError(t, err)

	assert.Equal(t, byte(0xbc), block[127])
	assert.Zero(t, block[0]&0x80)

	st := hash.New()
	st.Update(body)
	inner := st.Finalize()
	var wrapped [28]byte
	copy(wrapped[8:], inner[:])
	digest := st.Digest(wrapped[:])
	assert.Equal(t, 1, subtle.ConstantTimeCompare(block[107:127], digest[:]))
}

func TestBuildConfirmationMessage(t *testing.T) {
	macHash := make([]byte, MacHashSize)
	for i := range macHash {
		macHash[i] = byte(i + 1)
	}

	msg, err := buildConfirmationMessage(macHash)
	require.NoError(t, err)
	require.Len(t, msg, ConfirmMessageSize)
	assert.Equal(t, []byte{0x02, 0x03, 0x00, 0x10}, msg[:4])

	again, err := buildConfirmationMessage(macHash)
	require.NoError(t, err)
	assert.Equal(t, msg, again)

	macHash[0] ^= 0xff
	changed, err := buildConfirmationMessage(macHash)
	require.NoError(t, err)
	assert.NotEqual(t, msg[4:], changed[4:])
}
