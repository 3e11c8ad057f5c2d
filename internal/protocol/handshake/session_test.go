package handshake_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtpz_auth/internal/devicesim"
	"mtpz_auth/internal/protocol/handshake"
)

func newPair(t *testing.T) (*handshake.Session, *devicesim.Device) {
	t.Helper()
	km := devicesim.SyntheticKeyMaterial()
	dev, err := devicesim.New(km)
	require.NoError(t, err)
	sess, err := handshake.New(km, dev)
	require.NoError(t, err)
	return sess, dev
}

func TestHandshakeEndToEnd(t *testing.T) {
	sess, dev := newPair(t)

	require.NoError(t, sess.Run())

	assert.Equal(t, handshake.StateSessionOpen, sess.State())
	assert.True(t, dev.TrustedEnabled)
	assert.Equal(t, dev.SessionKey(), sess.SessionKey())
	assert.Equal(t, handshake.InitiatorInfo, dev.InitiatorInfo)
}

func TestHandshakeNonceEchoMismatch(t *testing.T) {
	sess, dev := newPair(t)
	dev.CorruptNonceEcho = true

	err := sess.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, handshake.ErrAuthentication)
	assert.Equal(t, handshake.StateFailed, sess.State())
	assert.False(t, dev.TrustedEnabled)

	// Failure wipes the session-scoped secrets.
	assert.Zero(t, sess.SessionKey())
}

func TestHandshakeBadLengthMarker(t *testing.T) {
	sess, dev := newPair(t)
	dev.CorruptLengthMarker = true

	err := sess.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, handshake.ErrFraming)
	assert.NotErrorIs(t, err, handshake.ErrCrypto)
	assert.Equal(t, handshake.StateFailed, sess.State())
	assert.False(t, dev.TrustedEnabled)
}

func TestSessionNotReusable(t *testing.T) {
	sess, _ := newPair(t)

	require.NoError(t, sess.Run())
	err := sess.Run()
	require.Error(t, err)
	assert.Equal(t, handshake.StateFailed, sess.State())
}

func TestNewRejectsInvalidMaterial(t *testing.T) {
	km := devicesim.SyntheticKeyMaterial()
	km.EncryptionKey = km.EncryptionKey[:5]

	_, err := handshake.New(km, nil)
	assert.Error(t, err)
}

type failingTransport struct {
	devicesim.Device
	failOn string
}

func (f *failingTransport) ResetHandshake() error {
	if f.failOn == "reset" {
		return fmt.Errorf("transport down")
	}
	return f.Device.ResetHandshake()
}

func TestHandshakeTransportFailure(t *testing.T) {
	km := devicesim.SyntheticKeyMaterial()
	dev, err := devicesim.New(km)
	require.NoError(t, err)

	ft := &failingTransport{Device: *dev, failOn: "reset"}
	sess, err := handshake.New(km, ft)
	require.NoError(t, err)

	err = sess.Run()
	require.Error(t, err)
	assert.False(t, errors.Is(err, handshake.ErrAuthentication))
	assert.Equal(t, handshake.StateFailed, sess.State())
}
