// Package morton maps 2-D positions to 64-bit Z-order keys and
// produces the permutation that sorts particles into Z-order, so that
// spatially close particles end up index-adjacent and a chunk of
// contiguous indices hits overlapping tree nodes during force
// evaluation.
//
// Two equivalent bit-interleaving strategies are implemented — a
// naive 64-iteration loop and Morton's magic-constant "split by 2"
// bit-spreading — verified by a property test to agree on random
// inputs.
package morton

import (
	"sort"

	"github.com/sylvia-ymlin/N-Body-Problem-Simulation/internal/particle"
)

// Quantize maps a position into [bounds] to a 32-bit unsigned grid
// coordinate pair. Both axes use the full uint32 range so encode has
// 32 bits of precision to interleave per axis.
func Quantize(x, y float64, b particle.Bounds) (ix, iy uint32) {
	scaleX := float64(^uint32(0)) / b.Width()
	scaleY := float64(^uint32(0)) / b.Height()
	ix = uint32((x - b.XMin) * scaleX)
	iy = uint32((y - b.YMin) * scaleY)
	return ix, iy
}

// EncodeNaive interleaves the bits of ix (even positions) and iy (odd
// positions) one bit at a time. Simple and obviously correct; used as
// the reference the magic-bits variant is tested against.
func EncodeNaive(ix, iy uint32) uint64 {
	var code uint64
	for bit := 0; bit < 32; bit++ {
		code |= uint64((ix>>bit)&1) << (2 * bit)
		code |= uint64((iy>>bit)&1) << (2*bit + 1)
	}
	return code
}

// splitBy2 spreads the low 32 bits of a into the even bit positions of
// a 64-bit word, leaving zeros in the odd positions: the standard
// "magic numbers" bit-spreading trick.
func splitBy2(a uint32) uint64 {
	x := uint64(a) & 0xffffffff
	x = (x | (x << 16)) & 0x0000ffff0000ffff
	x = (x | (x << 8)) & 0x00ff00ff00ff00ff
	x = (x | (x << 4)) & 0x0f0f0f0f0f0f0f0f
	x = (x | (x << 2)) & 0x3333333333333333
	x = (x | (x << 1)) & 0x5555555555555555
	return x
}

// EncodeMagicBits computes the same code as EncodeNaive using the
// split-by-2 bit trick, which is the faster of the two on the hot
// path.
func EncodeMagicBits(ix, iy uint32) uint64 {
	return splitBy2(ix) | (splitBy2(iy) << 1)
}

// Encode is the encoder used by Sort; it delegates to the magic-bits
// implementation.
func Encode(x, y float64, b particle.Bounds) uint64 {
	ix, iy := Quantize(x, y, b)
	return EncodeMagicBits(ix, iy)
}

type entry struct {
	index int
	code  uint64
}

// radixSortThreshold is the particle count above which Sort switches
// from a comparison sort to an LSD radix sort over the 64-bit key.
const radixSortThreshold = 100_000

// Sort computes each particle's Morton code against bounds and
// returns the permutation perm such that iterating perm in order
// visits particles in increasing Z-order. perm[i] is the source index
// that should land at destination i — the same convention
// particle.System.Permute expects. Ties (equal codes) break by
// original index, so re-sorting an already-sorted array is the
// identity permutation.
func Sort(s *particle.System, bounds particle.Bounds) []int {
	n := s.Len()
	entries := make([]entry, n)
	for i := 0; i < n; i++ {
		entries[i] = entry{index: i, code: Encode(s.PosX[i], s.PosY[i], bounds)}
	}

	if n > radixSortThreshold {
		radixSort(entries)
	} else {
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].code != entries[j].code {
				return entries[i].code < entries[j].code
			}
			return entries[i].index < entries[j].index
		})
	}

	perm := make([]int, n)
	for i, e := range entries {
		perm[i] = e.index
	}
	return perm
}

// radixSort performs an 8-bit-digit, 8-pass LSD radix sort over the
// 64-bit Morton code, stable so ties preserve original index order
// (matching Sort's comparison-sort tie-break).
func radixSort(entries []entry) {
	n := len(entries)
	buf := make([]entry, n)
	var count [256]int

	src, dst := entries, buf
	for shift := 0; shift < 64; shift += 8 {
		for i := range count {
			count[i] = 0
		}
		for _, e := range src {
			count[byte(e.code>>shift)]++
		}
		sum := 0
		for i := range count {
			c := count[i]
			count[i] = sum
			sum += c
		}
		for _, e := range src {
			b := byte(e.code >> shift)
			dst[count[b]] = e
			count[b]++
		}
		src, dst = dst, src
	}
	// After 8 passes (even number), src holds the result in the
	// original entries backing array's identity; copy back if it
	// ended up in buf.
	if &src[0] != &entries[0] {
		copy(entries, src)
	}
}
