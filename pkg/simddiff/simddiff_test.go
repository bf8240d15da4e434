package simddiff

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffIdenticalBuffersYieldNoRanges(t *testing.T) {
	buf := bytes.Repeat([]byte{0xAB}, 200)
	ranges, err := Diff(buf, buf)
	require.NoError(t, err)
	assert.Empty(t, ranges)
}

func TestDiffSingleByteChangeIsDetected(t *testing.T) {
	current := make([]byte, 10)
	shadow := make([]byte, 10)
	current[3] = 99

	ranges, err := Diff(current, shadow)
	require.NoError(t, err)
	require.NotEmpty(t, ranges)

	found := false
	for _, r := range ranges {
		if r.Overlaps(3, 4) {
			found = true
		}
	}
	assert.True(t, found, "diff ranges must cover the changed byte")
}

func TestDiffMismatchedLengthsError(t *testing.T) {
	_, err := Diff(make([]byte, 4), make([]byte, 8))
	require.Error(t, err)
}

func TestDiffAcrossLaneBoundaries(t *testing.T) {
	// 64 + 32 + 8 + 3 = 107 bytes exercises every lane width in the cascade.
	current := make([]byte, 107)
	shadow := make([]byte, 107)

	changedOffsets := []int{10, 70, 96, 106}
	for _, off := range changedOffsets {
		current[off] = 0xFF
	}

	ranges, err := Diff(current, shadow)
	require.NoError(t, err)
	require.NotEmpty(t, ranges)

	for _, off := range changedOffsets {
		covered := false
		for _, r := range ranges {
			if r.Overlaps(uint64(off), uint64(off+1)) {
				covered = true
				break
			}
		}
		assert.Truef(t, covered, "offset %d should be covered by a diff range", off)
	}
}

func TestDiffEmptyBuffers(t *testing.T) {
	ranges, err := Diff(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, ranges)
}
