package devicesim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtpz_auth/internal/protocol/handshake"
)

func TestResponseRequiresCertificate(t *testing.T) {
	dev, err := New(SyntheticKeyMaterial())
	require.NoError(t, err)
	require.NoError(t, dev.ResetHandshake())

	_, err = dev.GetResponse()
	assert.Error(t, err)
}

func TestRejectsUnrecognizedMessage(t *testing.T) {
	dev, err := New(SyntheticKeyMaterial())
	require.NoError(t, err)

	assert.Error(t, dev.SendRequest(make([]byte, 100)))
}

func TestRejectsTamperedSignature(t *testing.T) {
	km := SyntheticKeyMaterial()
	dev, err := New(km)
	require.NoError(t, err)

	msg := make([]byte, handshake.CertMessageSize)
	copy(msg, []byte{0x02, 0x01, 0x01, 0x00, 0x00, 0x02, 0x75})
	copy(msg[7:], km.Certificates)
	msg[7+handshake.CertBlobSize] = 0x00
	msg[7+handshake.CertBlobSize+1] = 0x10
	sigOffset := 7 + handshake.CertBlobSize + 2 + handshake.NonceSize + 3
	msg[sigOffset-3] = 0x01
	msg[sigOffset-2] = 0x00
	msg[sigOffset-1] = 0x80
	// Signature bytes left zero: the public transform of zero never carries
	// the 0xbc trailer.
	assert.Error(t, dev.SendRequest(msg))
}

func TestEnableRequiresConfirmation(t *testing.T) {
	dev, err := New(SyntheticKeyMaterial())
	require.NoError(t, err)

	assert.Error(t, dev.EnableTrustedOperations(0, 0, 0, 0))
}
