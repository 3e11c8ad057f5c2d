package handshake

import (
	"errors"
)

var (
	// ErrFraming reports an unexpected marker byte or declared length in a
	// device message. Not retryable within the attempt.
	ErrFraming = errors.New("handshake: framing error")

	// ErrCrypto reports a failed cryptographic operation, e.g. an RSA
	// transform that produced no usable output.
	ErrCrypto = errors.New("handshake: cryptographic failure")

	// ErrAuthentication reports a security-relevant validation failure such
	// as a nonce echo mismatch (possible tamper or replay). Distinct from
	// framing so callers can tell a hostile peer from a broken one.
	ErrAuthentication = errors.New("handshake: authentication failure")
)
