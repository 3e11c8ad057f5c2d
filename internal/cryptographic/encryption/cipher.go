// Package encryption implements the AES-family block cipher used by the MTPZ
// handshake: a Rijndael core whose expanded key carries two copies of the
// schedule, the second with InvMixColumns folded into its inner round keys.
// crypto/aes cannot produce this layout, nor does it expose the per-block seed
// input the protocol's chained mode is built from, so the core is table-driven
// here with the tables carried verbatim.
package encryption

import (
	"encoding/binary"
	"fmt"
)

// BlockSize is the cipher block length in bytes.
const BlockSize = 16

const scheduleHeader = 4

type (
	// Schedule is the expanded round-key material for one raw key. It is
	// immutable once derived and serves both the encrypt and decrypt paths,
	// which index it at different offsets and directions.
	Schedule struct {
		rounds int
		key    []byte
	}
)

func roundsForKey(keyLen int) (int, error) {
	switch keyLen {
	case 16:
		return 10, nil
	case 24:
		return 12, nil
	case 32:
		return 14, nil
	default:
		return 0, fmt.Errorf("encryption: unsupported key length %d", keyLen)
	}
}

// ExpandKey derives the round-key schedule from a 16-, 24- or 32-byte key.
// The buffer holds a header word with the round count followed by two copies
// of the Rijndael expansion; the inner round keys of the second copy get the
// InvMixColumns transform, which is what the decrypt path consumes.
func ExpandKey(rawKey []byte) (*Schedule, error) {
	rounds, err := roundsForKey(len(rawKey))
	if err != nil {
		return nil, err
	}

	inner := expandKeyInner(rawKey, rounds)

	buf := make([]byte, scheduleHeader+2*len(inner))
	buf[0] = byte(rounds % 0xff)
	copy(buf[scheduleHeader:], inner)
	copy(buf[scheduleHeader+len(inner):], inner)

	invMixColumns(buf, scheduleHeader+len(inner), rounds)

	return &Schedule{rounds: rounds, key: buf}, nil
}

// expandKeyInner is the standard Rijndael key expansion: S-box substitution
// plus round-constant XOR on each key-length word boundary, and a plain
// substitution on the middle word for 256-bit keys.
func expandKeyInner(rawKey []byte, rounds int) []byte {
	keyLen := len(rawKey)
	ks := BlockSize * (rounds + 1)

	key := make([]byte, ks)
	copy(key, rawKey)

	rconIndex := 0
	for i := keyLen; i < ks; i += 4 {
		t0, t1, t2, t3 := key[i-4], key[i-3], key[i-2], key[i-1]

		if i%keyLen == 0 {
			t0, t1, t2, t3 = sbox[t1]^rcon[rconIndex], sbox[t2], sbox[t3], sbox[t0]
			rconIndex++
		} else if keyLen > 24 && i%keyLen == 16 {
			t0, t1, t2, t3 = sbox[t0], sbox[t1], sbox[t2], sbox[t3]
		}

		key[i+0] = key[i+0-keyLen] ^ t0
		key[i+1] = key[i+1-keyLen] ^ t1
		key[i+2] = key[i+2-keyLen] ^ t2
		key[i+3] = key[i+3-keyLen] ^ t3
	}

	return key
}

// invMixColumns rewrites the inner round keys (all but the first and last)
// starting at the copy rooted at offset, in place.
func invMixColumns(buf []byte, offset, rounds int) {
	o := offset
	for r := 1; r < rounds; r++ {
		k := buf[o+16 : o+32]
		w0 := gb9[k[3]] ^ gb13[k[2]] ^ gb11[k[1]] ^ gb14[k[0]]
		w1 := gb9[k[7]] ^ gb13[k[6]] ^ gb11[k[5]] ^ gb14[k[4]]
		w2 := gb9[k[11]] ^ gb13[k[10]] ^ gb11[k[9]] ^ gb14[k[8]]
		w3 := gb9[k[15]] ^ gb13[k[14]] ^ gb11[k[13]] ^ gb14[k[12]]
		binary.BigEndian.PutUint32(k[0:], w0)
		binary.BigEndian.PutUint32(k[4:], w1)
		binary.BigEndian.PutUint32(k[8:], w2)
		binary.BigEndian.PutUint32(k[12:], w3)
		o += 16
	}
}

func (sc *Schedule) roundKey(offset int) (a, b, c, d uint32) {
	a = binary.BigEndian.Uint32(sc.key[offset:])
	b = binary.BigEndian.Uint32(sc.key[offset+4:])
	c = binary.BigEndian.Uint32(sc.key[offset+8:])
	d = binary.BigEndian.Uint32(sc.key[offset+12:])
	return
}

func loadBlock(p []byte) (a, b, c, d uint32) {
	a = binary.BigEndian.Uint32(p[0:])
	b = binary.BigEndian.Uint32(p[4:])
	c = binary.BigEndian.Uint32(p[8:])
	d = binary.BigEndian.Uint32(p[12:])
	return
}

func storeBlock(p []byte, a, b, c, d uint32) {
	binary.BigEndian.PutUint32(p[0:], a)
	binary.BigEndian.PutUint32(p[4:], b)
	binary.BigEndian.PutUint32(p[8:], c)
	binary.BigEndian.PutUint32(p[12:], d)
}

func byte0(v uint32) byte { return byte(v >> 24) }
func byte1(v uint32) byte { return byte(v >> 16) }
func byte2(v uint32) byte { return byte(v >> 8) }
func byte3(v uint32) byte { return byte(v) }

// EncryptBlock encrypts one 16-byte block into data. When seed is non-nil the
// round input is taken from seed and data receives only the output; when seed
// is nil data is transformed in place.
func (sc *Schedule) EncryptBlock(data, seed []byte) {
	if seed == nil {
		seed = data
	}

	ko := scheduleHeader
	k0, k1, k2, k3 := sc.roundKey(ko)
	s0, s1, s2, s3 := loadBlock(seed)
	s0, s1, s2, s3 = s0^k0, s1^k1, s2^k2, s3^k3

	t0 := ft1[byte3(s3)] ^ ft2[byte2(s2)] ^ ft3[byte0(s0)] ^ ft4[byte1(s1)]
	t1 := ft1[byte3(s0)] ^ ft2[byte2(s3)] ^ ft3[byte0(s1)] ^ ft4[byte1(s2)]
	t2 := ft1[byte3(s1)] ^ ft2[byte2(s0)] ^ ft3[byte0(s2)] ^ ft4[byte1(s3)]
	t3 := ft1[byte3(s2)] ^ ft2[byte2(s1)] ^ ft3[byte0(s3)] ^ ft4[byte1(s0)]
	ko += 16

	for r := 1; r < sc.rounds-1; r++ {
		k0, k1, k2, k3 = sc.roundKey(ko)
		s0, s1, s2, s3 = t0^k0, t1^k1, t2^k2, t3^k3

		t0 = ft1[byte3(s3)] ^ ft2[byte2(s2)] ^ ft3[byte0(s0)] ^ ft4[byte1(s1)]
		t1 = ft1[byte3(s0)] ^ ft2[byte2(s3)] ^ ft3[byte0(s1)] ^ ft4[byte1(s2)]
		t2 = ft1[byte3(s1)] ^ ft2[byte2(s0)] ^ ft3[byte0(s2)] ^ ft4[byte1(s3)]
		t3 = ft1[byte3(s2)] ^ ft2[byte2(s1)] ^ ft3[byte0(s3)] ^ ft4[byte1(s0)]

		ko += 16
	}

	k0, k1, k2, k3 = sc.roundKey(ko)
	s0, s1, s2, s3 = t0^k0, t1^k1, t2^k2, t3^k3
	ko += 16

	// Final round: substitution and row shift, no column mixing.
	t0 = uint32(sbox[byte0(s0)])<<24 | uint32(sbox[byte1(s1)])<<16 | uint32(sbox[byte2(s2)])<<8 | uint32(sbox[byte3(s3)])
	t1 = uint32(sbox[byte0(s1)])<<24 | uint32(sbox[byte1(s2)])<<16 | uint32(sbox[byte2(s3)])<<8 | uint32(sbox[byte3(s0)])
	t2 = uint32(sbox[byte0(s2)])<<24 | uint32(sbox[byte1(s3)])<<16 | uint32(sbox[byte2(s0)])<<8 | uint32(sbox[byte3(s1)])
	t3 = uint32(sbox[byte0(s3)])<<24 | uint32(sbox[byte1(s0)])<<16 | uint32(sbox[byte2(s1)])<<8 | uint32(sbox[byte3(s2)])

	k0, k1, k2, k3 = sc.roundKey(ko)
	storeBlock(data, t0^k0, t1^k1, t2^k2, t3^k3)
}

// DecryptBlock is the inverse of EncryptBlock, reading the second schedule
// copy backwards. The same seed convention applies.
func (sc *Schedule) DecryptBlock(data, seed []byte) {
	if seed == nil {
		seed = data
	}

	inner := BlockSize * (sc.rounds + 1)
	ko := scheduleHeader + inner + BlockSize*sc.rounds

	k0, k1, k2, k3 := sc.roundKey(ko)
	s0, s1, s2, s3 := loadBlock(seed)
	s0, s1, s2, s3 = s0^k0, s1^k1, s2^k2, s3^k3

	t0 := rt1[byte3(s1)] ^ rt2[byte2(s2)] ^ rt3[byte0(s0)] ^ rt4[byte1(s3)]
	t1 := rt1[byte3(s2)] ^ rt2[byte2(s3)] ^ rt3[byte0(s1)] ^ rt4[byte1(s0)]
	t2 := rt1[byte3(s3)] ^ rt2[byte2(s0)] ^ rt3[byte0(s2)] ^ rt4[byte1(s1)]
	t3 := rt1[byte3(s0)] ^ rt2[byte2(s1)] ^ rt3[byte0(s3)] ^ rt4[byte1(s2)]
	ko -= 16

	for r := 1; r < sc.rounds-1; r++ {
		k0, k1, k2, k3 = sc.roundKey(ko)
		s0, s1, s2, s3 = t0^k0, t1^k1, t2^k2, t3^k3

		t0 = rt1[byte3(s1)] ^ rt2[byte2(s2)] ^ rt3[byte0(s0)] ^ rt4[byte1(s3)]
		t1 = rt1[byte3(s2)] ^ rt2[byte2(s3)] ^ rt3[byte0(s1)] ^ rt4[byte1(s0)]
		t2 = rt1[byte3(s3)] ^ rt2[byte2(s0)] ^ rt3[byte0(s2)] ^ rt4[byte1(s1)]
		t3 = rt1[byte3(s0)] ^ rt2[byte2(s1)] ^ rt3[byte0(s3)] ^ rt4[byte1(s2)]

		ko -= 16
	}

	k0, k1, k2, k3 = sc.roundKey(ko)
	s0, s1, s2, s3 = t0^k0, t1^k1, t2^k2, t3^k3
	ko -= 16

	t0 = uint32(invSbox[byte0(s0)])<<24 | uint32(invSbox[byte1(s3)])<<16 | uint32(invSbox[byte2(s2)])<<8 | uint32(invSbox[byte3(s1)])
	t1 = uint32(invSbox[byte0(s1)])<<24 | uint32(invSbox[byte1(s0)])<<16 | uint32(invSbox[byte2(s3)])<<8 | uint32(invSbox[byte3(s2)])
	t2 = uint32(invSbox[byte0(s2)])<<24 | uint32(invSbox[byte1(s1)])<<16 | uint32(invSbox[byte2(s0)])<<8 | uint32(invSbox[byte3(s3)])
	t3 = uint32(invSbox[byte0(s3)])<<24 | uint32(invSbox[byte1(s2)])<<16 | uint32(invSbox[byte2(s1)])<<8 | uint32(invSbox[byte3(s0)])

	k0, k1, k2, k3 = sc.roundKey(ko)
	storeBlock(data, t0^k0, t1^k1, t2^k2, t3^k3)
}

// Chain runs the chained (zero-IV CBC) mode over data in place. The final
// chunk may be shorter than a block; it is zero-padded into scratch for the
// block operation and only the original byte count is written back.
func Chain(key, data []byte, encrypt bool) error {
	sc, err := ExpandKey(key)
	if err != nil {
		return err
	}

	var feedback, scratch, out [BlockSize]byte

	offset := 0
	for offset < len(data) {
		chunk := len(data) - offset
		if chunk > BlockSize {
			chunk = BlockSize
		} else if chunk < BlockSize {
			for i := range scratch {
				scratch[i] = 0
			}
		}
		copy(scratch[:], data[offset:offset+chunk])

		if encrypt {
			for i := range scratch {
				scratch[i] ^= feedback[i]
			}
			sc.EncryptBlock(out[:], scratch[:])
			copy(data[offset:], out[:chunk])
			feedback = out
		} else {
			sc.DecryptBlock(out[:], scratch[:])
			for i := range out {
				out[i] ^= feedback[i]
			}
			copy(data[offset:], out[:chunk])
			feedback = scratch
		}

		offset += chunk
	}

	return nil
}

// ECB applies the cipher block-by-block without chaining. Data whose length is
// not a block multiple is left untouched.
func ECB(key, data []byte, encrypt bool) error {
	if len(data)%BlockSize != 0 {
		return nil
	}

	sc, err := ExpandKey(key)
	if err != nil {
		return err
	}

	for offset := 0; offset < len(data); offset += BlockSize {
		if encrypt {
			sc.EncryptBlock(data[offset:offset+BlockSize], nil)
		} else {
			sc.DecryptBlock(data[offset:offset+BlockSize], nil)
		}
	}

	return nil
}
