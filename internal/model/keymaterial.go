package model

import (
	"fmt"
)

const (
	// EncryptionKeySize is the raw length of the provisioned cipher key.
	EncryptionKeySize = 16

	// CertificateSize is the exact length of the decoded certificate blob;
	// the wire format declares it with a fixed length marker.
	CertificateSize = 0x275

	// MaxExponentHexDigits bounds the hex-string form of the RSA modulus and
	// private exponent.
	MaxExponentHexDigits = 256
)

type (
	// KeyMaterial holds the provisioned secrets the handshake runs on. It is
	// immutable once loaded and shared read-only across handshake attempts;
	// it is never generated in-process.
	KeyMaterial struct {
		PublicExponent  string
		EncryptionKey   []byte
		Modulus         string
		PrivateExponent string
		Certificates    []byte
	}
)

func (k *KeyMaterial) Validate() error {
	if len(k.EncryptionKey) != EncryptionKeySize {
		return fmt.Errorf("encryption key must be %d bytes, got %d", EncryptionKeySize, len(k.EncryptionKey))
	}
	if k.PublicExponent == "" {
		return fmt.Errorf("public exponent is empty")
	}
	if k.Modulus == "" || len(k.Modulus) > MaxExponentHexDigits {
		return fmt.Errorf("modulus length %d outside 1..%d hex digits", len(k.Modulus), MaxExponentHexDigits)
	}
	if k.PrivateExponent == "" || len(k.PrivateExponent) > MaxExponentHexDigits {
		return fmt.Errorf("private exponent length %d outside 1..%d hex digits", len(k.PrivateExponent), MaxExponentHexDigits)
	}
	if len(k.Certificates) != CertificateSize {
		return fmt.Errorf("certificate blob must be %d bytes, got %d", CertificateSize, len(k.Certificates))
	}
	return nil
}
