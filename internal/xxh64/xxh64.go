// Package xxh64 implements the 64-bit xxHash algorithm with explicit seed
// support and restartable streaming state. Digests are bit-compatible with
// the reference implementation, so values recorded in a manifest on one
// machine verify on any other.
package xxh64

import (
	"encoding/binary"
	"math/bits"
)

const (
	prime1 uint64 = 11400714785074694791
	prime2 uint64 = 14029467366897019727
	prime3 uint64 = 1609587929392839161
	prime4 uint64 = 9650029242287828579
	prime5 uint64 = 2870177450012600261
)

// stripeSize is the input block consumed by one round of the four lanes.
const stripeSize = 32

// Digest holds streaming hash state. It is not safe for concurrent use;
// hash each input with its own Digest.
type Digest struct {
	seed  uint64
	v1    uint64
	v2    uint64
	v3    uint64
	v4    uint64
	total uint64
	mem   [stripeSize]byte
	n     int // bytes buffered in mem
}

// New returns a Digest initialized with the given seed.
func New(seed uint64) *Digest {
	d := &Digest{seed: seed}
	d.Reset()
	return d
}

// Reset restores the Digest to its initial state, keeping the seed.
func (d *Digest) Reset() {
	d.v1 = d.seed + prime1 + prime2
	d.v2 = d.seed + prime2
	d.v3 = d.seed
	d.v4 = d.seed - prime1
	d.total = 0
	d.n = 0
}

// Size returns the digest length in bytes.
func (d *Digest) Size() int { return 8 }

// BlockSize returns the stripe size.
func (d *Digest) BlockSize() int { return stripeSize }

// Write absorbs more input. It never fails, and the result is independent
// of how the input is partitioned across calls.
func (d *Digest) Write(p []byte) (int, error) {
	n := len(p)
	d.total += uint64(n)

	if d.n+len(p) < stripeSize {
		// Not enough for a full stripe; carry everything.
		copy(d.mem[d.n:], p)
		d.n += len(p)
		return n, nil
	}

	if d.n > 0 {
		// Complete the carried stripe first.
		c := copy(d.mem[d.n:], p)
		d.consumeStripe(d.mem[:])
		p = p[c:]
		d.n = 0
	}

	for len(p) >= stripeSize {
		d.consumeStripe(p[:stripeSize])
		p = p[stripeSize:]
	}

	if len(p) > 0 {
		d.n = copy(d.mem[:], p)
	}
	return n, nil
}

func (d *Digest) consumeStripe(b []byte) {
	d.v1 = round(d.v1, binary.LittleEndian.Uint64(b[0:8]))
	d.v2 = round(d.v2, binary.LittleEndian.Uint64(b[8:16]))
	d.v3 = round(d.v3, binary.LittleEndian.Uint64(b[16:24]))
	d.v4 = round(d.v4, binary.LittleEndian.Uint64(b[24:32]))
}

// Sum64 finalizes the hash over everything written so far. The Digest
// remains usable; further Writes continue the same stream.
func (d *Digest) Sum64() uint64 {
	var h uint64
	if d.total >= stripeSize {
		h = bits.RotateLeft64(d.v1, 1) + bits.RotateLeft64(d.v2, 7) +
			bits.RotateLeft64(d.v3, 12) + bits.RotateLeft64(d.v4, 18)
		h = mergeRound(h, d.v1)
		h = mergeRound(h, d.v2)
		h = mergeRound(h, d.v3)
		h = mergeRound(h, d.v4)
	} else {
		h = d.seed + prime5
	}

	h += d.total

	b := d.mem[:d.n]
	for len(b) >= 8 {
		k := round(0, binary.LittleEndian.Uint64(b[:8]))
		h ^= k
		h = bits.RotateLeft64(h, 27)*prime1 + prime4
		b = b[8:]
	}
	if len(b) >= 4 {
		h ^= uint64(binary.LittleEndian.Uint32(b[:4])) * prime1
		h = bits.RotateLeft64(h, 23)*prime2 + prime3
		b = b[4:]
	}
	for _, c := range b {
		h ^= uint64(c) * prime5
		h = bits.RotateLeft64(h, 11) * prime1
	}

	return avalanche(h)
}

// Sum appends the big-endian digest to b, satisfying hash.Hash.
func (d *Digest) Sum(b []byte) []byte {
	s := d.Sum64()
	return append(b,
		byte(s>>56), byte(s>>48), byte(s>>40), byte(s>>32),
		byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}

// Sum64Bytes computes the seeded hash of b in one shot.
func Sum64Bytes(b []byte, seed uint64) uint64 {
	n := uint64(len(b))

	var h uint64
	if n >= stripeSize {
		v1 := seed + prime1 + prime2
		v2 := seed + prime2
		v3 := seed
		v4 := seed - prime1
		for len(b) >= stripeSize {
			v1 = round(v1, binary.LittleEndian.Uint64(b[0:8]))
			v2 = round(v2, binary.LittleEndian.Uint64(b[8:16]))
			v3 = round(v3, binary.LittleEndian.Uint64(b[16:24]))
			v4 = round(v4, binary.LittleEndian.Uint64(b[24:32]))
			b = b[stripeSize:]
		}
		h = bits.RotateLeft64(v1, 1) + bits.RotateLeft64(v2, 7) +
			bits.RotateLeft64(v3, 12) + bits.RotateLeft64(v4, 18)
		h = mergeRound(h, v1)
		h = mergeRound(h, v2)
		h = mergeRound(h, v3)
		h = mergeRound(h, v4)
	} else {
		h = seed + prime5
	}

	h += n

	for len(b) >= 8 {
		h ^= round(0, binary.LittleEndian.Uint64(b[:8]))
		h = bits.RotateLeft64(h, 27)*prime1 + prime4
		b = b[8:]
	}
	if len(b) >= 4 {
		h ^= uint64(binary.LittleEndian.Uint32(b[:4])) * prime1
		h = bits.RotateLeft64(h, 23)*prime2 + prime3
		b = b[4:]
	}
	for _, c := range b {
		h ^= uint64(c) * prime5
		h = bits.RotateLeft64(h, 11) * prime1
	}

	return avalanche(h)
}

func round(acc, input uint64) uint64 {
	acc += input * prime2
	acc = bits.RotateLeft64(acc, 31)
	return acc * prime1
}

func mergeRound(h, v uint64) uint64 {
	h ^= round(0, v)
	return h*prime1 + prime4
}

func avalanche(h uint64) uint64 {
	h ^= h >> 33
	h *= prime2
	h ^= h >> 29
	h *= prime3
	h ^= h >> 32
	return h
}
