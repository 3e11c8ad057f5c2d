package handshake

import (
	"crypto/rand"
	"fmt"

	"mtpz_auth/internal/cryptographic/encryption"
	"mtpz_auth/internal/cryptographic/hash"
	"mtpz_auth/internal/cryptographic/rsa"
	"mtpz_auth/internal/model"
)

// Wire framing, byte-exact.
const (
	CertMessageSize    = 785
	CertBlobSize       = model.CertificateSize
	NonceSize          = 16
	SignatureSize      = 128
	RSABlobSize        = 128
	PayloadSize        = 832
	PayloadLengthWord  = 0x0340
	ResponseSize       = 2 + 1 + 1 + RSABlobSize + 2 + 2 + PayloadSize
	ConfirmMessageSize = 20
	MacHashSize        = 20

	// Offsets inside the certificate message.
	certBlobOffset = 7
	nonceOffset    = certBlobOffset + CertBlobSize + 2
	sigOffset      = nonceOffset + NonceSize + 3
)

// buildCertificateMessage assembles the 785-byte application-certificate
// message: marker/length bytes, the certificate blob, a fresh 16-byte nonce
// and the RSA signature block. It returns the message and the nonce to match
// against the device's echo.
func buildCertificateMessage(km *model.KeyMaterial, priv *rsa.PrivateKey) ([]byte, [NonceSize]byte, error) {
	var nonce [NonceSize]byte

	msg := make([]byte, CertMessageSize)
	copy(msg, []byte{0x02, 0x01, 0x01, 0x00, 0x00, 0x02, 0x75})
	copy(msg[certBlobOffset:certBlobOffset+CertBlobSize], km.Certificates)

	msg[nonceOffset-2] = 0x00
	msg[nonceOffset-1] = 0x10
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, nonce, fmt.Errorf("handshake: nonce generation: %w", err)
	}
	copy(msg[nonceOffset:], nonce[:])

	sig, err := signCertificateBody(msg[2:nonceOffset+NonceSize], priv)
	if err != nil {
		return nil, nonce, err
	}

	msg[sigOffset-3] = 0x01
	msg[sigOffset-2] = 0x00
	msg[sigOffset-1] = 0x80
	copy(msg[sigOffset:], sig)

	return msg, nonce, nil
}

// signCertificateBody produces the 128-byte signature block: the body digest
// is wrapped and digested again, expanded into a 107-byte keystream, and the
// resulting masked buffer is run through the raw RSA private transform.
func signCertificateBody(body []byte, priv *rsa.PrivateKey) ([]byte, error) {
	st := hash.New()

	st.Update(body)
	inner := st.Finalize()

	var wrapped [28]byte
	copy(wrapped[8:], inner[:])
	digest := st.Digest(wrapped[:])

	stream := st.Expand(digest[:], 107)

	var block [SignatureSize]byte
	copy(block[107:], digest[:])
	block[106] = 0x01
	for i, b := range stream {
		block[i] ^= b
	}
	block[0] &= 0x7f
	block[127] = 0xbc

	sig := make([]byte, SignatureSize)
	n, err := priv.Sign(sig, block[:])
	if err != nil || n != SignatureSize {
		return nil, fmt.Errorf("%w: signing certificate body: %v", ErrCrypto, err)
	}

	return sig, nil
}

// buildConfirmationMessage assembles the 20-byte confirmation: a 4-byte
// marker and the MAC over a seed whose final byte is 0x01, keyed by the
// device MAC-hash.
func buildConfirmationMessage(macHash []byte) ([]byte, error) {
	var seed [encryption.BlockSize]byte
	seed[15] = 0x01

	mac, err := encryption.MAC(macHash[:16], seed[:])
	if err != nil {
		return nil, fmt.Errorf("%w: confirmation mac: %v", ErrCrypto, err)
	}

	msg := make([]byte, ConfirmMessageSize)
	copy(msg, []byte{0x02, 0x03, 0x00, 0x10})
	copy(msg[4:], mac[:])
	return msg, nil
}
