// Package hashutil provides the hash primitives behind block fingerprints:
// FNV-1a token hashing, a polynomial rolling combiner and the splitmix64
// finalizer by Vigna (2014), which provides full-avalanche mixing across all
// 64 bits.
package hashutil

import "hash/fnv"

// Splitmix64 finalizer constants.
const (
	// MixShift1 is the first right-shift in the splitmix64 finalizer.
	MixShift1 = 30

	// MixMul1 is the first multiplier in the splitmix64 finalizer.
	MixMul1 = 0xbf58476d1ce4e5b9

	// MixShift2 is the second right-shift in the splitmix64 finalizer.
	MixShift2 = 27

	// MixMul2 is the second multiplier in the splitmix64 finalizer.
	MixMul2 = 0x94d049bb133111eb

	// MixShift3 is the third right-shift in the splitmix64 finalizer.
	MixShift3 = 31

	// RollingBase is the odd multiplier of the polynomial rolling hash.
	RollingBase = 0x100000001b3
)

// Mix64 applies the splitmix64 finalizer for full-avalanche mixing.
func Mix64(v uint64) uint64 {
	v ^= v >> MixShift1
	v *= MixMul1
	v ^= v >> MixShift2
	v *= MixMul2
	v ^= v >> MixShift3

	return v
}

// FNV64a computes a 64-bit FNV-1a hash of the given data.
func FNV64a(data []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(data)

	return h.Sum64()
}

// FNV64aString hashes the bytes of s.
func FNV64aString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))

	return h.Sum64()
}

// Rolling accumulates an order-sensitive polynomial hash over a sequence of
// element hashes. The zero value is ready to use.
type Rolling struct {
	sum uint64
	n   int
}

// Add appends one element hash to the sequence.
func (r *Rolling) Add(h uint64) {
	r.sum = r.sum*RollingBase + h + 1
	r.n++
}

// AddString appends the FNV-1a hash of s.
func (r *Rolling) AddString(s string) {
	r.Add(FNV64aString(s))
}

// Len returns the number of elements added.
func (r *Rolling) Len() int {
	return r.n
}

// Sum returns the finalized hash, mixed with the sequence length so that
// prefixes of a sequence do not collide with it.
func (r *Rolling) Sum() uint64 {
	return Mix64(r.sum ^ Mix64(uint64(r.n)))
}
