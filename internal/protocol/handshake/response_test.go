package handshake

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtpz_auth/internal/cryptographic/hash"
)

func validRawResponse() []byte {
	resp := make([]byte, 0, ResponseSize)
	resp = append(resp, 0x02, 0x02, 0x00, 0x80)
	blob := make([]byte, RSABlobSize)
	for i := range blob {
		blob[i] = byte(i)
	}
	resp = append(resp, blob...)
	resp = append(resp, 0x00, 0x00)
	resp = binary.BigEndian.AppendUint16(resp, PayloadLengthWord)
	resp = append(resp, make([]byte, PayloadSize)...)
	return resp
}

func TestParseResponseFraming(t *testing.T) {
	framed, err := parseResponseFraming(validRawResponse())
	require.NoError(t, err)
	assert.Len(t, framed.rsaBlob, RSABlobSize)
	assert.Len(t, framed.payload, PayloadSize)
	assert.Equal(t, byte(0), framed.rsaBlob[0])
	assert.Equal(t, byte(127), framed.rsaBlob[127])
}

func TestParseResponseFramingCopies(t *testing.T) {
	raw := validRawResponse()
	framed, err := parseResponseFraming(raw)
	require.NoError(t, err)

	raw[4] ^= 0xff
	raw[len(raw)-1] ^= 0xff
	assert.Equal(t, byte(0), framed.rsaBlob[0])
	assert.Equal(t, byte(0), framed.payload[PayloadSize-1])
}

func TestParseResponseFramingRejects(t *testing.T) {
	corrupt := func(mutate func([]byte)) []byte {
		raw := validRawResponse()
		mutate(raw)
		return raw
	}

	tests := []struct {
		name string
		raw  []byte
	}{
		{"first marker", corrupt(func(r []byte) { r[0] = 0x01 })},
		{"second marker", corrupt(func(r []byte) { r[1] = 0x03 })},
		{"key-blob length byte", corrupt(func(r []byte) { r[3] = 0x7f })},
		{"payload length high byte", corrupt(func(r []byte) { r[134] = 0x04 })},
		{"payload length low byte", corrupt(func(r []byte) { r[135] = 0x41 })},
		{"truncated", validRawResponse()[:ResponseSize-1]},
		{"empty", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseResponseFraming(tc.raw)
			assert.ErrorIs(t, err, ErrFraming)
		})
	}
}

func buildPlainPayload(certs, echo, deviceRandom, sig, macHash []byte) []byte {
	p := make([]byte, 0, PayloadSize)
	p = append(p, 0x00)
	p = binary.BigEndian.AppendUint32(p, uint32(len(certs)))
	p = append(p, certs...)
	p = binary.BigEndian.AppendUint16(p, uint16(len(echo)))
	p = append(p, echo...)
	p = binary.BigEndian.AppendUint16(p, uint16(len(deviceRandom)))
	p = append(p, deviceRandom...)
	p = append(p, 0x00)
	p = binary.BigEndian.AppendUint16(p, uint16(len(sig)))
	p = append(p, sig...)
	p = append(p, 0x00)
	p = binary.BigEndian.AppendUint16(p, uint16(len(macHash)))
	p = append(p, macHash...)
	return append(p, make([]byte, PayloadSize-len(p))...)
}

func TestParsePayload(t *testing.T) {
	certs := make([]byte, 300)
	echo := make([]byte, NonceSize)
	deviceRandom := make([]byte, 16)
	sig := make([]byte, SignatureSize)
	macHash := make([]byte, MacHashSize)
	for i := range echo {
		echo[i] = byte(0x40 + i)
	}
	for i := range macHash {
		macHash[i] = byte(0x60 + i)
	}

	fields, err := parsePayload(buildPlainPayload(certs, echo, deviceRandom, sig, macHash))
	require.NoError(t, err)
	assert.Equal(t, certs, fields.certificates)
	assert.Equal(t, echo, fields.randomEcho)
	assert.Equal(t, deviceRandom, fields.deviceRandom)
	assert.Equal(t, sig, fields.signature)
	assert.Equal(t, macHash, fields.macHash)
}

// Length prefixes inside the payload are big-endian: a 16-byte field carries
// {0x00, 0x10}, never {0x10, 0x00}.
func TestParsePayloadLengthByteOrder(t *testing.T) {
	payload := buildPlainPayload(make([]byte, 8), make([]byte, NonceSize), make([]byte, 4), make([]byte, 4), make([]byte, MacHashSize))

	echoLenOffset := 1 + 4 + 8
	require.Equal(t, []byte{0x00, 0x10}, payload[echoLenOffset:echoLenOffset+2])

	_, err := parsePayload(payload)
	require.NoError(t, err)

	// Byte-swapping the same prefix declares a 4096-byte field, which cannot
	// fit in one payload.
	payload[echoLenOffset] = 0x10
	payload[echoLenOffset+1] = 0x00
	_, err = parsePayload(payload)
	assert.ErrorIs(t, err, ErrFraming)
}

func TestParsePayloadRejectsBadFieldSizes(t *testing.T) {
	t.Run("short echo", func(t *testing.T) {
		payload := buildPlainPayload(nil, make([]byte, 8), nil, nil, make([]byte, MacHashSize))
		_, err := parsePayload(payload)
		assert.ErrorIs(t, err, ErrFraming)
	})

	t.Run("short mac hash", func(t *testing.T) {
		payload := buildPlainPayload(nil, make([]byte, NonceSize), nil, nil, make([]byte, 12))
		_, err := parsePayload(payload)
		assert.ErrorIs(t, err, ErrFraming)
	})

	t.Run("certificate length overruns", func(t *testing.T) {
		payload := buildPlainPayload(nil, make([]byte, NonceSize), nil, nil, make([]byte, MacHashSize))
		binary.BigEndian.PutUint32(payload[1:], uint32(PayloadSize))
		_, err := parsePayload(payload)
		assert.ErrorIs(t, err, ErrFraming)
	})
}

// Masking the blob the way a device does and unwrapping it must return the
// session key planted in the tail.
func TestUnwrapSessionKey(t *testing.T) {
	dec := make([]byte, RSABlobSize)
	for i := range dec {
		dec[i] = byte(i * 3)
	}
	dec[0] = 0
	var want [16]byte
	copy(want[:], dec[112:])

	st := hash.New()
	masked := append([]byte(nil), dec...)
	tail := st.Expand(masked[1:21], 107)
	for i, b := range tail {
		masked[21+i] ^= b
	}
	head := st.Expand(masked[21:], 20)
	for i, b := range head {
		masked[1+i] ^= b
	}

	got := unwrapSessionKey(masked)
	assert.Equal(t, want, got)
	assert.Equal(t, dec, masked)
}
