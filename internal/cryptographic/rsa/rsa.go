// Package rsa wraps arbitrary-precision modular exponentiation as the raw
// (unpadded) RSA transform the handshake needs. crypto/rsa deliberately
// refuses textbook RSA, so the transform is built on math/big directly; the
// fixed-width output contract restores the leading zero bytes the big-integer
// representation discards.
package rsa

import (
	"fmt"
	"math/big"
)

type (
	PrivateKey struct {
		n *big.Int
		d *big.Int
		e *big.Int
	}

	PublicKey struct {
		n *big.Int
		e *big.Int
	}
)

func parseHex(name, value string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(value, 16)
	if !ok {
		return nil, fmt.Errorf("rsa: %s is not valid hex", name)
	}
	return v, nil
}

// NewPrivateKey builds a private key from hex-string modulus, private exponent
// and public exponent, the representation the key-material file uses.
func NewPrivateKey(modulus, privateExponent, publicExponent string) (*PrivateKey, error) {
	n, err := parseHex("modulus", modulus)
	if err != nil {
		return nil, err
	}
	d, err := parseHex("private exponent", privateExponent)
	if err != nil {
		return nil, err
	}
	e, err := parseHex("public exponent", publicExponent)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{n: n, d: d, e: e}, nil
}

func NewPublicKey(modulus, publicExponent string) (*PublicKey, error) {
	n, err := parseHex("modulus", modulus)
	if err != nil {
		return nil, err
	}
	e, err := parseHex("public exponent", publicExponent)
	if err != nil {
		return nil, err
	}
	return &PublicKey{n: n, e: e}, nil
}

func rawTransform(out, in []byte, exponent, modulus *big.Int) (int, error) {
	m := new(big.Int).SetBytes(in)
	c := m.Exp(m, exponent, modulus)

	if c.BitLen() > 8*len(out) {
		return 0, fmt.Errorf("rsa: result needs %d bits, output holds %d", c.BitLen(), 8*len(out))
	}

	// FillBytes left-pads with the zero bytes SetBytes/Bytes strip.
	c.FillBytes(out)
	return len(out), nil
}

// Transform raises in to the private exponent modulo the modulus and writes
// the fixed-width big-endian result into out. No padding scheme is involved.
func (k *PrivateKey) Transform(out, in []byte) (int, error) {
	return rawTransform(out, in, k.d, k.n)
}

// Sign is the raw private transform under another name; signing and
// decryption are the same operation in this protocol.
func (k *PrivateKey) Sign(out, in []byte) (int, error) {
	return k.Transform(out, in)
}

// Transform raises in to the public exponent modulo the modulus, the inverse
// of the private transform.
func (k *PublicKey) Transform(out, in []byte) (int, error) {
	return rawTransform(out, in, k.e, k.n)
}
