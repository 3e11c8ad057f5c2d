// Package handshake implements the MTPZ authentication exchange: the state
// machine that proves the host to the device, verifies the device's answer
// and derives the session key that unlocks trusted file operations.
package handshake

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"

	"mtpz_auth/internal/cryptographic/encryption"
	"mtpz_auth/internal/cryptographic/rsa"
	"mtpz_auth/internal/model"
	"mtpz_auth/internal/utils/log"
)

type State int

const (
	StateIdle State = iota
	StateReset
	StateCertSent
	StateResponseValidated
	StateConfirmed
	StateSessionOpen
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReset:
		return "reset"
	case StateCertSent:
		return "cert-sent"
	case StateResponseValidated:
		return "response-validated"
	case StateConfirmed:
		return "confirmed"
	case StateSessionOpen:
		return "session-open"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type (
	// Session is one handshake attempt. It owns all session-scoped secrets
	// (nonce, session key, device MAC-hash) and discards them when the
	// attempt fails. Sessions are not reusable; retry from a fresh one.
	// Concurrent attempts may share the read-only KeyMaterial but never a
	// Session.
	Session struct {
		km        *model.KeyMaterial
		transport Transport
		state     State

		nonce      [NonceSize]byte
		sessionKey [encryption.BlockSize]byte
		macHash    [MacHashSize]byte
	}
)

func New(km *model.KeyMaterial, transport Transport) (*Session, error) {
	if err := km.Validate(); err != nil {
		return nil, fmt.Errorf("handshake: key material: %w", err)
	}
	return &Session{km: km, transport: transport, state: StateIdle}, nil
}

func (s *Session) State() State {
	return s.state
}

// SessionKey returns the derived 16-byte session key. Valid only once the
// session reached StateSessionOpen.
func (s *Session) SessionKey() [encryption.BlockSize]byte {
	return s.sessionKey
}

// fail transitions to the terminal Failed state and wipes every
// session-scoped secret before propagating err.
func (s *Session) fail(err error) error {
	s.state = StateFailed
	s.nonce = [NonceSize]byte{}
	s.sessionKey = [encryption.BlockSize]byte{}
	s.macHash = [MacHashSize]byte{}
	return err
}

// Run drives the exchange to completion. Each step blocks on the transport;
// there is no internal retry and no mid-protocol cancellation point. Any
// failure is terminal for this Session.
func (s *Session) Run() error {
	if s.state != StateIdle {
		return s.fail(fmt.Errorf("handshake: session already ran (state %s)", s.state))
	}

	priv, err := rsa.NewPrivateKey(s.km.Modulus, s.km.PrivateExponent, s.km.PublicExponent)
	if err != nil {
		return s.fail(fmt.Errorf("%w: %v", ErrCrypto, err))
	}

	if setter, ok := s.transport.(InitiatorInfoSetter); ok {
		log.Debug("setting session initiator info")
		if err := setter.SetInitiatorInfo(InitiatorInfo); err != nil {
			return s.fail(fmt.Errorf("handshake: set initiator info: %w", err))
		}
	}

	log.Debug("resetting handshake")
	if err := s.transport.ResetHandshake(); err != nil {
		return s.fail(fmt.Errorf("handshake: reset: %w", err))
	}
	s.state = StateReset

	log.Debug("sending application certificate message")
	msg, nonce, err := buildCertificateMessage(s.km, priv)
	if err != nil {
		return s.fail(err)
	}
	s.nonce = nonce
	if err := s.transport.SendRequest(msg); err != nil {
		return s.fail(fmt.Errorf("handshake: send certificate message: %w", err))
	}
	s.state = StateCertSent

	log.Debug("validating handshake response")
	resp, err := s.transport.GetResponse()
	if err != nil {
		return s.fail(fmt.Errorf("handshake: get response: %w", err))
	}
	if err := s.validateResponse(resp, priv); err != nil {
		return s.fail(err)
	}
	s.state = StateResponseValidated

	log.Debug("sending confirmation message")
	confirm, err := buildConfirmationMessage(s.macHash[:])
	if err != nil {
		return s.fail(err)
	}
	if err := s.transport.SendRequest(confirm); err != nil {
		return s.fail(fmt.Errorf("handshake: send confirmation: %w", err))
	}
	s.state = StateConfirmed

	log.Debug("opening secure session")
	if err := s.openSession(); err != nil {
		return s.fail(err)
	}
	s.state = StateSessionOpen

	log.Info("handshake complete", zap.String("state", s.state.String()))
	return nil
}

// openSession computes the session-open MAC, seeded by the 4-byte MAC-use
// counter carried at the tail of the device MAC-hash, and issues the enable
// command with the MAC's four words read big-endian.
func (s *Session) openSession() error {
	mac, err := encryption.MAC(s.macHash[:16], s.macHash[16:MacHashSize])
	if err != nil {
		return fmt.Errorf("%w: session-open mac: %v", ErrCrypto, err)
	}

	w0 := binary.BigEndian.Uint32(mac[0:])
	w1 := binary.BigEndian.Uint32(mac[4:])
	w2 := binary.BigEndian.Uint32(mac[8:])
	w3 := binary.BigEndian.Uint32(mac[12:])

	if err := s.transport.EnableTrustedOperations(w0, w1, w2, w3); err != nil {
		return fmt.Errorf("handshake: enable trusted operations: %w", err)
	}
	return nil
}
