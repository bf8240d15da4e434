//go:build unix

package accessor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalAccessorReadsMappedBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service_1.mem")
	require.NoError(t, os.WriteFile(path, []byte("hello, commy!!!!"), 0o600))

	a, err := NewLocalAccessor(path)
	require.NoError(t, err)
	defer a.Close()

	data, err := a.ReadBytes(0, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	assert.True(t, a.IsLocal())
}

func TestLocalAccessorWriteBytesIsInvalidState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service_2.mem")
	require.NoError(t, os.WriteFile(path, make([]byte, 16), 0o600))

	a, err := NewLocalAccessor(path)
	require.NoError(t, err)
	defer a.Close()

	err = a.WriteBytes(0, []byte{1})
	require.Error(t, err)
}

func TestLocalAccessorResizeIsInvalidState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service_3.mem")
	require.NoError(t, os.WriteFile(path, make([]byte, 16), 0o600))

	a, err := NewLocalAccessor(path)
	require.NoError(t, err)
	defer a.Close()

	require.Error(t, a.Resize(32))
}

func TestLocalAccessorRemapPicksUpExternalGrowth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service_4.mem")
	require.NoError(t, os.WriteFile(path, []byte("abcd"), 0o600))

	a, err := NewLocalAccessor(path)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, os.WriteFile(path, []byte("abcdefgh"), 0o600))
	require.NoError(t, a.Remap())

	size, err := a.FileSize()
	require.NoError(t, err)
	assert.Equal(t, uint64(8), size)
}
