package model

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validKeyMaterial() *KeyMaterial {
	return &KeyMaterial{
		PublicExponent:  "10001",
		EncryptionKey:   bytes.Repeat([]byte{0x11}, EncryptionKeySize),
		Modulus:         strings.Repeat("ab", 128),
		PrivateExponent: strings.Repeat("cd", 128),
		Certificates:    bytes.Repeat([]byte{0xa5}, CertificateSize),
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validKeyMaterial().Validate())

	tests := []struct {
		name   string
		mutate func(*KeyMaterial)
	}{
		{"short encryption key", func(k *KeyMaterial) { k.EncryptionKey = k.EncryptionKey[:5] }},
		{"long encryption key", func(k *KeyMaterial) { k.EncryptionKey = append(k.EncryptionKey, 0) }},
		{"empty public exponent", func(k *KeyMaterial) { k.PublicExponent = "" }},
		{"empty modulus", func(k *KeyMaterial) { k.Modulus = "" }},
		{"oversized modulus", func(k *KeyMaterial) { k.Modulus = strings.Repeat("ab", 129) }},
		{"empty private exponent", func(k *KeyMaterial) { k.PrivateExponent = "" }},
		{"empty certificates", func(k *KeyMaterial) { k.Certificates = nil }},
		// The wire format's fixed length marker declares the full blob, so a
		// short one may not slip through and get zero-padded downstream.
		{"short certificates", func(k *KeyMaterial) { k.Certificates = k.Certificates[:CertificateSize-1] }},
		{"long certificates", func(k *KeyMaterial) { k.Certificates = append(k.Certificates, 0xa5) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			km := validKeyMaterial()
			tc.mutate(km)
			assert.Error(t, km.Validate())
		})
	}
}
