package accessor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteAccessorReadWrite(t *testing.T) {
	a := NewRemoteAccessor()
	a.UpdateBuffer([]byte{1, 2, 3, 4, 5, 6, 7, 8})

	data, err := a.ReadBytes(0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)

	assert.False(t, a.IsLocal())
}

func TestRemoteAccessorWriteBytesGrowsBuffer(t *testing.T) {
	a := NewRemoteAccessor()
	a.UpdateBuffer(make([]byte, 4))

	require.NoError(t, a.WriteBytes(2, []byte{99, 88, 77}))

	data, err := a.ReadBytes(0, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 99, 88, 77}, data)
}

func TestRemoteAccessorReadOutOfBoundsErrors(t *testing.T) {
	a := NewRemoteAccessor()
	a.UpdateBuffer([]byte{1, 2, 3})

	_, err := a.ReadBytes(0, 10)
	require.Error(t, err)
}

func TestRemoteAccessorResize(t *testing.T) {
	a := NewRemoteAccessor()
	a.UpdateBuffer([]byte{1, 2, 3})

	require.NoError(t, a.Resize(6))
	size, err := a.FileSize()
	require.NoError(t, err)
	assert.Equal(t, uint64(6), size)
}
