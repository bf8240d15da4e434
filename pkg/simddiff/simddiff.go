// Package simddiff compares two equally-sized byte buffers and reports the
// coarse ranges that differ. It is pure and stateless: callers intersect
// the resulting ranges against variable metadata to decide which variables
// changed.
package simddiff

import (
	"encoding/binary"

	"github.com/ciresnave/commy-go/pkg/commyerr"
)

// Range is a half-open byte range [Start, End) within both buffers.
type Range struct {
	Start uint64
	End   uint64
}

// lane64 is the widest word-compare step: 8 consecutive uint64 loads,
// standing in for the AVX-512 64-byte lane in the reference implementation.
const lane64 = 64

// lane32 stands in for the AVX2 32-byte lane.
const lane32 = 32

// lane8 is a single uint64 word (8 bytes).
const lane8 = 8

// Diff compares current against shadow and returns the coarse ranges that
// differ, narrowing the lane width from 64 to 32 to 8 to single bytes as it
// runs out of room for a wider compare — the same cascade
// compare_ranges in the reference implementation uses, minus the actual
// SIMD intrinsics (Go has no portable stable equivalent without cgo/asm).
func Diff(current, shadow []byte) ([]Range, error) {
	if len(current) != len(shadow) {
		return nil, commyerr.NewDiffError("cannot compare buffers of different sizes")
	}

	var diffs []Range
	i := 0
	n := len(current)

	for i+lane64 <= n {
		if !bytesEqual(current[i:i+lane64], shadow[i:i+lane64]) {
			diffs = append(diffs, Range{uint64(i), uint64(i + lane64)})
		}
		i += lane64
	}

	for i+lane32 <= n {
		if !bytesEqual(current[i:i+lane32], shadow[i:i+lane32]) {
			diffs = append(diffs, Range{uint64(i), uint64(i + lane32)})
		}
		i += lane32
	}

	for i+lane8 <= n {
		a := binary.LittleEndian.Uint64(current[i : i+lane8])
		b := binary.LittleEndian.Uint64(shadow[i : i+lane8])
		if a != b {
			diffs = append(diffs, Range{uint64(i), uint64(i + lane8)})
		}
		i += lane8
	}

	for i < n {
		if current[i] != shadow[i] {
			diffs = append(diffs, Range{uint64(i), uint64(i + 1)})
		}
		i++
	}

	return diffs, nil
}

// bytesEqual compares two equal-length slices word-at-a-time, falling back
// to a byte compare on any trailing bytes (never called with non-multiples
// of 8 from Diff, but kept general for reuse).
func bytesEqual(a, b []byte) bool {
	n := len(a)
	i := 0
	for i+8 <= n {
		if binary.LittleEndian.Uint64(a[i:i+8]) != binary.LittleEndian.Uint64(b[i:i+8]) {
			return false
		}
		i += 8
	}
	for i < n {
		if a[i] != b[i] {
			return false
		}
		i++
	}
	return true
}

// Overlaps reports whether r intersects the half-open range [start, end).
func (r Range) Overlaps(start, end uint64) bool {
	return r.Start < end && r.End > start
}
