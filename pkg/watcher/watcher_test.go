package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ciresnave/commy-go/pkg/accessor"
	"github.com/ciresnave/commy-go/pkg/vfile"
)

func TestNewDefaultsToCacheDir(t *testing.T) {
	w, err := New("")
	require.NoError(t, err)
	assert.Contains(t, w.WatchDir(), cacheDirName)
	assert.Equal(t, PhaseIdle, w.Phase())
}

func TestServiceIDFromPath(t *testing.T) {
	id, ok := serviceIDFromPath("/tmp/commy_virtual_files/service_abc123.mem")
	require.True(t, ok)
	assert.Equal(t, "abc123", id)

	_, ok = serviceIDFromPath("/tmp/commy_virtual_files/other.txt")
	assert.False(t, ok)

	_, ok = serviceIDFromPath("/tmp/commy_virtual_files/service_.mem")
	assert.False(t, ok)
}

func TestServiceFilePathCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path, err := ServiceFilePath(dir, "svc1")
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, filepath.Join(dir, "service_svc1.mem"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWatcherDetectsExternalWrite(t *testing.T) {
	dir := t.TempDir()
	path, err := ServiceFilePath(dir, "svc1")
	require.NoError(t, err)

	vf := vfile.New("svc1", "test-service", "tenant-a")
	require.NoError(t, vf.RegisterVariable(vfile.VariableMetadata{
		Name: "counter", Offset: 0, Size: 8,
	}))

	acc, err := accessor.NewLocalAccessor(path)
	require.NoError(t, err)
	defer acc.Close()

	w, err := New(dir)
	require.NoError(t, err)
	w.RegisterVirtualFile("svc1", vf, acc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	newData := make([]byte, os.Getpagesize())
	copy(newData, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, os.WriteFile(path, newData, 0o600))

	select {
	case ev := <-w.Events():
		assert.Equal(t, "svc1", ev.ServiceID)
		assert.Contains(t, ev.ChangedVariables, "counter")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	require.NoError(t, err)

	w.Stop()
	assert.Equal(t, PhaseIdle, w.Phase())

	ctx := context.Background()
	require.NoError(t, w.Start(ctx))
	w.Stop()
	assert.Equal(t, PhaseIdle, w.Phase())
}
