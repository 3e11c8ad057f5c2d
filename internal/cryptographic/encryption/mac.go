package encryption

import (
	"fmt"
)

// macSubkey left-shifts a block by one bit and folds the lost top bit back in
// with the 0x87 reduction constant, the CMAC subkey step.
func macSubkey(l *[BlockSize + 1]byte) (k [BlockSize + 1]byte) {
	for i := 0; i < BlockSize; i++ {
		k[i] = l[i]<<1 | l[i+1]>>7
	}
	if l[0] >= 0x80 {
		k[15] ^= 0x87
	}
	return
}

// MAC computes the single-block authentication tag over seed under key. A
// 16-byte seed is masked with subkey K1; shorter seeds get a 0x80 terminator
// and subkey K2. The masked block is then encrypted under key's schedule.
func MAC(key, seed []byte) ([BlockSize]byte, error) {
	var out [BlockSize]byte

	if len(key) != BlockSize {
		return out, fmt.Errorf("encryption: mac key must be %d bytes, got %d", BlockSize, len(key))
	}
	if len(seed) > BlockSize {
		return out, fmt.Errorf("encryption: mac seed longer than one block: %d", len(seed))
	}

	// L = E_K(0^16), padded with a trailing zero byte so the shift can read
	// one past the block.
	var l [BlockSize + 1]byte
	if err := Chain(key, l[:BlockSize], true); err != nil {
		return out, err
	}

	k1 := macSubkey(&l)
	k2 := macSubkey(&k1)

	sc, err := ExpandKey(key)
	if err != nil {
		return out, err
	}

	var masked [BlockSize]byte
	copy(masked[:], seed)
	if len(seed) == BlockSize {
		for i := range masked {
			masked[i] ^= k1[i]
		}
	} else {
		masked[len(seed)] = 0x80
		for i := range masked {
			masked[i] ^= k2[i]
		}
	}

	sc.EncryptBlock(out[:], masked[:])
	return out, nil
}
