// Package hash implements the 20-byte digest used by the MTPZ handshake and
// the counter-mode keystream expansion built on top of it.
//
// The compression function follows the SHA-1 construction (same initialization
// constants, message schedule and round-function split); it is kept hand-rolled
// so the state can be reset and reused mid-protocol exactly the way the device
// expects, and so any deviation stays under our control rather than a library's.
package hash

import (
	"encoding/binary"
	"math/bits"
)

// Size is the digest length in bytes.
const Size = 20

const blockSize = 64

type (
	// State is a reusable digest state. The zero value is not ready for use;
	// call New or Reset first. Finalize re-initializes the state, so a single
	// State can digest an unbounded sequence of independent messages.
	State struct {
		h      [5]uint32
		block  [blockSize]byte
		lenLow uint32
		lenHi  uint32
	}
)

func New() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset restores the accumulators to their initialization constants and zeroes
// both length counters.
func (s *State) Reset() {
	s.h[0] = 0x67452301
	s.h[1] = 0xefcdab89
	s.h[2] = 0x98badcfe
	s.h[3] = 0x10325476
	s.h[4] = 0xc3d2e1f0
	s.lenLow = 0
	s.lenHi = 0
}

// Update absorbs msg, flushing full 64-byte blocks through the compression
// function as they accumulate.
func (s *State) Update(msg []byte) {
	pending := int(s.lenLow & 0x3f)

	low := s.lenLow + uint32(len(msg))
	if low < s.lenLow {
		s.lenHi++
	}
	s.lenLow = low

	if pending > 0 {
		n := copy(s.block[pending:], msg)
		if pending+n < blockSize {
			return
		}
		s.compress(s.block[:])
		msg = msg[n:]
	}

	for len(msg) >= blockSize {
		s.compress(msg[:blockSize])
		msg = msg[blockSize:]
	}

	copy(s.block[:], msg)
}

// Finalize appends the 0x80 terminator, pads to a 64- or 128-byte boundary
// (128 when fewer than 8 trailing bytes remain for the length field), appends
// the 64-bit big-endian bit length, emits the digest and resets the state.
func (s *State) Finalize() [Size]byte {
	pad := blockSize - int(s.lenLow&0x3f)
	if pad <= 8 {
		pad += blockSize
	}

	var trailer [2 * blockSize]byte
	trailer[0] = 0x80
	hiBits := s.lenHi<<3 | s.lenLow>>29
	loBits := s.lenLow << 3
	binary.BigEndian.PutUint32(trailer[pad-8:], hiBits)
	binary.BigEndian.PutUint32(trailer[pad-4:], loBits)

	s.Update(trailer[:pad])

	var out [Size]byte
	for i, w := range s.h {
		binary.BigEndian.PutUint32(out[4*i:], w)
	}

	s.Reset()
	return out
}

// Digest is a one-shot Reset/Update/Finalize cycle.
func (s *State) Digest(msg []byte) [Size]byte {
	s.Reset()
	s.Update(msg)
	return s.Finalize()
}

// Expand derives outLen keystream bytes from msg by digesting msg with a
// big-endian 32-bit counter suffix per 20-byte chunk. Each chunk depends only
// on its own counter value, so a longer expansion's prefix equals a shorter
// expansion's full output for the same msg.
func (s *State) Expand(msg []byte, outLen int) []byte {
	chunks := outLen/Size + 1

	counted := make([]byte, len(msg)+4)
	copy(counted, msg)

	out := make([]byte, chunks*Size)
	for i := 0; i < chunks; i++ {
		binary.BigEndian.PutUint32(counted[len(msg):], uint32(i))
		d := s.Digest(counted)
		copy(out[i*Size:], d[:])
	}

	return out[:outLen]
}

var k = [4]uint32{0x5a827999, 0x6ed9eba1, 0x8f1bbcdc, 0xca62c1d6}

func (s *State) compress(block []byte) {
	var w [80]uint32
	for i := 0; i < 16; i++ {
		w[i] = binary.BigEndian.Uint32(block[4*i:])
	}
	for i := 16; i < 80; i++ {
		w[i] = bits.RotateLeft32(w[i-3]^w[i-8]^w[i-14]^w[i-16], 1)
	}

	a, b, c, d, e := s.h[0], s.h[1], s.h[2], s.h[3], s.h[4]

	for i := 0; i < 80; i++ {
		var f uint32
		// Round split per the protocol: Ch, Parity, Maj, Parity.
		switch i / 20 {
		case 0:
			f = (b & c) ^ (^b & d)
		case 2:
			f = (b & c) ^ (b & d) ^ (c & d)
		default:
			f = b ^ c ^ d
		}

		t := bits.RotateLeft32(a, 5) + f + e + k[i/20] + w[i]
		e = d
		d = c
		c = bits.RotateLeft32(b, 30)
		b = a
		a = t
	}

	s.h[0] += a
	s.h[1] += b
	s.h[2] += c
	s.h[3] += d
	s.h[4] += e
}
