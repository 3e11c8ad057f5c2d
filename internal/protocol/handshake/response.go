package handshake

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/cryptobyte"

	"mtpz_auth/internal/cryptographic/encryption"
	"mtpz_auth/internal/cryptographic/hash"
	"mtpz_auth/internal/cryptographic/rsa"
)

type (
	// deviceResponse is the framed-but-still-encrypted handshake response.
	deviceResponse struct {
		rsaBlob []byte
		payload []byte
	}

	// payloadFields are the fixed-order records inside the decrypted payload.
	payloadFields struct {
		certificates []byte
		randomEcho   []byte
		deviceRandom []byte
		signature    []byte
		macHash      []byte
	}
)

// parseResponseFraming validates every marker and declared length in the raw
// response before any cryptographic work happens. The returned slices are
// copies, so the payload can be decrypted in place.
func parseResponseFraming(resp []byte) (*deviceResponse, error) {
	s := cryptobyte.String(resp)

	var markers []byte
	if !s.ReadBytes(&markers, 2) || markers[0] != 0x02 || markers[1] != 0x02 {
		return nil, fmt.Errorf("%w: bad response marker", ErrFraming)
	}

	var lengthByte uint8
	if !s.Skip(1) || !s.ReadUint8(&lengthByte) || lengthByte != 0x80 {
		return nil, fmt.Errorf("%w: bad key-blob length byte", ErrFraming)
	}

	var blob []byte
	if !s.ReadBytes(&blob, RSABlobSize) {
		return nil, fmt.Errorf("%w: truncated key blob", ErrFraming)
	}

	var payloadLen uint16
	if !s.Skip(2) || !s.ReadUint16(&payloadLen) {
		return nil, fmt.Errorf("%w: truncated payload length", ErrFraming)
	}
	if payloadLen != PayloadLengthWord {
		return nil, fmt.Errorf("%w: payload length word 0x%04x, want 0x%04x", ErrFraming, payloadLen, PayloadLengthWord)
	}

	var payload []byte
	if !s.ReadBytes(&payload, PayloadSize) {
		return nil, fmt.Errorf("%w: truncated payload", ErrFraming)
	}

	return &deviceResponse{
		rsaBlob: append([]byte(nil), blob...),
		payload: append([]byte(nil), payload...),
	}, nil
}

// unwrapSessionKey removes the two chained keystream masks from the
// RSA-decrypted blob in place and returns the 16-byte session key from its
// tail. First the tail bytes key a 20-byte stream that unmasks bytes [1:21),
// then those bytes key a 107-byte stream that unmasks the tail.
func unwrapSessionKey(dec []byte) [encryption.BlockSize]byte {
	st := hash.New()

	head := st.Expand(dec[21:RSABlobSize], 20)
	for i, b := range head {
		dec[1+i] ^= b
	}

	tail := st.Expand(dec[1:21], 107)
	for i, b := range tail {
		dec[21+i] ^= b
	}

	var key [encryption.BlockSize]byte
	copy(key[:], dec[RSABlobSize-encryption.BlockSize:])
	return key
}

// parsePayload walks the decrypted payload's fixed-order, length-prefixed
// fields. The two-byte lengths read big-endian; the four-byte certificate
// length likewise.
func parsePayload(payload []byte) (*payloadFields, error) {
	s := cryptobyte.String(payload)

	readField := func(name string) ([]byte, error) {
		var length uint16
		var field []byte
		if !s.ReadUint16(&length) || !s.ReadBytes(&field, int(length)) {
			return nil, fmt.Errorf("%w: truncated %s field", ErrFraming, name)
		}
		return field, nil
	}

	var certsLen uint32
	var f payloadFields
	if !s.Skip(1) || !s.ReadUint32(&certsLen) || !s.ReadBytes(&f.certificates, int(certsLen)) {
		return nil, fmt.Errorf("%w: truncated certificate field", ErrFraming)
	}

	var err error
	if f.randomEcho, err = readField("random echo"); err != nil {
		return nil, err
	}
	if f.deviceRandom, err = readField("device random"); err != nil {
		return nil, err
	}
	if !s.Skip(1) {
		return nil, fmt.Errorf("%w: truncated payload", ErrFraming)
	}
	if f.signature, err = readField("signature"); err != nil {
		return nil, err
	}
	if !s.Skip(1) {
		return nil, fmt.Errorf("%w: truncated payload", ErrFraming)
	}
	if f.macHash, err = readField("mac hash"); err != nil {
		return nil, err
	}

	if len(f.randomEcho) != NonceSize {
		return nil, fmt.Errorf("%w: random echo is %d bytes, want %d", ErrFraming, len(f.randomEcho), NonceSize)
	}
	if len(f.macHash) != MacHashSize {
		return nil, fmt.Errorf("%w: mac hash is %d bytes, want %d", ErrFraming, len(f.macHash), MacHashSize)
	}

	return &f, nil
}

// validateResponse runs the full ResponseValidated step: framing, RSA
// decryption, session-key unwrap, payload decryption, field parsing and the
// nonce-echo check. On success it fills in the session key and MAC-hash.
func (s *Session) validateResponse(resp []byte, priv *rsa.PrivateKey) error {
	framed, err := parseResponseFraming(resp)
	if err != nil {
		return err
	}

	dec := make([]byte, RSABlobSize)
	n, err := priv.Transform(dec, framed.rsaBlob)
	if err != nil || n == 0 {
		return fmt.Errorf("%w: key blob decryption: %v", ErrCrypto, err)
	}

	s.sessionKey = unwrapSessionKey(dec)

	if err := encryption.Chain(s.sessionKey[:], framed.payload, false); err != nil {
		return fmt.Errorf("%w: payload decryption: %v", ErrCrypto, err)
	}

	fields, err := parsePayload(framed.payload)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare(fields.randomEcho, s.nonce[:]) != 1 {
		return fmt.Errorf("%w: nonce echo mismatch", ErrAuthentication)
	}

	copy(s.macHash[:], fields.macHash)
	return nil
}
