// Package devicesim provides an in-process device that speaks the responder
// side of the MTPZ handshake. It exists so the full exchange can run without
// hardware: provisioning checks in the CLI and the protocol tests both drive
// the real orchestrator against it.
package devicesim

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"mtpz_auth/internal/cryptographic/encryption"
	"mtpz_auth/internal/cryptographic/hash"
	"mtpz_auth/internal/cryptographic/rsa"
	"mtpz_auth/internal/model"
	"mtpz_auth/internal/protocol/handshake"
)

type (
	// Device implements handshake.Transport. One Device serves one handshake
	// attempt at a time; it is not safe for concurrent use.
	Device struct {
		km  *model.KeyMaterial
		pub *rsa.PublicKey

		// Fault injection for failure-path tests.
		CorruptNonceEcho    bool
		CorruptLengthMarker bool

		hostNonce   []byte
		sessionKey  [encryption.BlockSize]byte
		macHash     [handshake.MacHashSize]byte
		gotCert     bool
		confirmedOK bool

		// TrustedEnabled records that the host reached the final enable
		// command with the MAC words this device expected.
		TrustedEnabled bool

		// InitiatorInfo records the session-initiator string, when the host
		// announces one.
		InitiatorInfo string
	}
)

// New builds a simulated device sharing the host's key material (the host
// authenticates against the public half).
func New(km *model.KeyMaterial) (*Device, error) {
	if err := km.Validate(); err != nil {
		return nil, fmt.Errorf("devicesim: key material: %w", err)
	}
	pub, err := rsa.NewPublicKey(km.Modulus, km.PublicExponent)
	if err != nil {
		return nil, fmt.Errorf("devicesim: %w", err)
	}
	return &Device{km: km, pub: pub}, nil
}

func (d *Device) SetInitiatorInfo(info string) error {
	d.InitiatorInfo = info
	return nil
}

func (d *Device) ResetHandshake() error {
	d.hostNonce = nil
	d.gotCert = false
	d.confirmedOK = false
	d.TrustedEnabled = false
	return nil
}

func (d *Device) SendRequest(msg []byte) error {
	switch {
	case len(msg) == handshake.CertMessageSize && msg[0] == 0x02 && msg[1] == 0x01:
		return d.consumeCertificateMessage(msg)
	case len(msg) == handshake.ConfirmMessageSize && msg[0] == 0x02 && msg[1] == 0x03:
		return d.consumeConfirmationMessage(msg)
	default:
		return fmt.Errorf("devicesim: unrecognized message (%d bytes)", len(msg))
	}
}

func (d *Device) consumeCertificateMessage(msg []byte) error {
	nonceOffset := 7 + handshake.CertBlobSize + 2
	if msg[nonceOffset-2] != 0x00 || msg[nonceOffset-1] != 0x10 {
		return fmt.Errorf("devicesim: bad nonce length marker")
	}
	sigOffset := nonceOffset + handshake.NonceSize + 3
	if msg[sigOffset-3] != 0x01 || msg[sigOffset-2] != 0x00 || msg[sigOffset-1] != 0x80 {
		return fmt.Errorf("devicesim: bad signature length marker")
	}

	if err := d.verifySignature(msg[2:nonceOffset+handshake.NonceSize], msg[sigOffset:]); err != nil {
		return err
	}

	d.hostNonce = append([]byte(nil), msg[nonceOffset:nonceOffset+handshake.NonceSize]...)
	d.gotCert = true
	return nil
}

// verifySignature applies the public transform to the signature block and
// checks the embedded digest against a recomputation over the message body.
func (d *Device) verifySignature(body, sig []byte) error {
	block := make([]byte, handshake.SignatureSize)
	if _, err := d.pub.Transform(block, sig); err != nil {
		return fmt.Errorf("devicesim: signature transform: %w", err)
	}
	if block[127] != 0xbc {
		return fmt.Errorf("devicesim: bad signature trailer byte 0x%02x", block[127])
	}

	st := hash.New()
	st.Update(body)
	inner := st.Finalize()

	var wrapped [28]byte
	copy(wrapped[8:], inner[:])
	digest := st.Digest(wrapped[:])

	if subtle.ConstantTimeCompare(block[107:127], digest[:]) != 1 {
		return fmt.Errorf("devicesim: signature digest mismatch")
	}
	return nil
}

func (d *Device) consumeConfirmationMessage(msg []byte) error {
	var seed [encryption.BlockSize]byte
	seed[15] = 0x01
	want, err := encryption.MAC(d.macHash[:16], seed[:])
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(msg[4:], want[:]) != 1 {
		return fmt.Errorf("devicesim: confirmation mac mismatch")
	}
	d.confirmedOK = true
	return nil
}

// GetResponse produces the handshake response: a public-transformed key blob
// wrapped the way the host expects to unwrap it, and the chained-encrypted
// payload echoing the host's nonce.
func (d *Device) GetResponse() ([]byte, error) {
	if !d.gotCert {
		return nil, fmt.Errorf("devicesim: no certificate message received")
	}

	if _, err := rand.Read(d.sessionKey[:]); err != nil {
		return nil, err
	}
	if _, err := rand.Read(d.macHash[:]); err != nil {
		return nil, err
	}

	blob, err := d.buildKeyBlob()
	if err != nil {
		return nil, err
	}

	payload, err := d.buildPayload()
	if err != nil {
		return nil, err
	}

	resp := make([]byte, 0, handshake.ResponseSize)
	resp = append(resp, 0x02, 0x02, 0x00, 0x80)
	resp = append(resp, blob...)
	lengthWord := uint16(handshake.PayloadLengthWord)
	if d.CorruptLengthMarker {
		lengthWord++
	}
	resp = append(resp, 0x00, 0x00, byte(lengthWord>>8), byte(lengthWord))
	resp = append(resp, payload...)
	return resp, nil
}

// buildKeyBlob runs the host's unwrap in reverse: mask the tail under the
// plaintext head, mask the head under the masked tail, then apply the raw
// public transform. Byte 0 stays zero so the blob is below the modulus.
func (d *Device) buildKeyBlob() ([]byte, error) {
	dec := make([]byte, handshake.RSABlobSize)
	if _, err := rand.Read(dec[1:112]); err != nil {
		return nil, err
	}
	dec[0] = 0
	copy(dec[112:], d.sessionKey[:])

	st := hash.New()

	tail := st.Expand(dec[1:21], 107)
	for i, b := range tail {
		dec[21+i] ^= b
	}

	head := st.Expand(dec[21:], 20)
	for i, b := range head {
		dec[1+i] ^= b
	}

	blob := make([]byte, handshake.RSABlobSize)
	if _, err := d.pub.Transform(blob, dec); err != nil {
		return nil, fmt.Errorf("devicesim: key blob transform: %w", err)
	}
	return blob, nil
}

func (d *Device) buildPayload() ([]byte, error) {
	// Device-side certificate and signature fields are opaque to the host,
	// which skips them by length; short synthetic blobs keep the payload
	// within its fixed 832 bytes.
	deviceCerts := make([]byte, 64)
	deviceSig := make([]byte, 128)
	deviceRandom := make([]byte, 16)
	if _, err := rand.Read(deviceRandom); err != nil {
		return nil, err
	}

	echo := append([]byte(nil), d.hostNonce...)
	if d.CorruptNonceEcho {
		echo[0] ^= 0xff
	}

	payload := make([]byte, 0, handshake.PayloadSize)
	payload = append(payload, 0x00)
	payload = binary.BigEndian.AppendUint32(payload, uint32(len(deviceCerts)))
	payload = append(payload, deviceCerts...)
	payload = binary.BigEndian.AppendUint16(payload, uint16(len(echo)))
	payload = append(payload, echo...)
	payload = binary.BigEndian.AppendUint16(payload, uint16(len(deviceRandom)))
	payload = append(payload, deviceRandom...)
	payload = append(payload, 0x00)
	payload = binary.BigEndian.AppendUint16(payload, uint16(len(deviceSig)))
	payload = append(payload, deviceSig...)
	payload = append(payload, 0x00)
	payload = binary.BigEndian.AppendUint16(payload, uint16(len(d.macHash)))
	payload = append(payload, d.macHash[:]...)
	payload = append(payload, make([]byte, handshake.PayloadSize-len(payload))...)

	if err := encryption.Chain(d.sessionKey[:], payload, true); err != nil {
		return nil, err
	}
	return payload, nil
}

// SessionKey exposes the device's half of the derived key so callers can
// check agreement with the host.
func (d *Device) SessionKey() [encryption.BlockSize]byte {
	return d.sessionKey
}

func (d *Device) EnableTrustedOperations(w0, w1, w2, w3 uint32) error {
	if !d.confirmedOK {
		return fmt.Errorf("devicesim: enable before confirmation")
	}

	mac, err := encryption.MAC(d.macHash[:16], d.macHash[16:])
	if err != nil {
		return err
	}
	want := [4]uint32{
		binary.BigEndian.Uint32(mac[0:]),
		binary.BigEndian.Uint32(mac[4:]),
		binary.BigEndian.Uint32(mac[8:]),
		binary.BigEndian.Uint32(mac[12:]),
	}
	got := [4]uint32{w0, w1, w2, w3}
	if want != got {
		return fmt.Errorf("devicesim: trusted-operations mac mismatch")
	}

	d.TrustedEnabled = true
	return nil
}
