//go:build !unix

package accessor

import (
	"os"

	"github.com/ciresnave/commy-go/pkg/commyerr"
)

// LocalAccessor on non-unix platforms reads the whole file into memory and
// re-reads it on Remap; there is no portable golang.org/x/sys/unix.Mmap
// equivalent wired into this build, so it trades zero-copy for portability.
type LocalAccessor struct {
	path string
	data []byte
}

// NewLocalAccessor opens path and loads it into memory, creating it if absent.
func NewLocalAccessor(path string) (*LocalAccessor, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return nil, commyerr.NewIOError(path, err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, commyerr.NewIOError(path, err)
	}
	return &LocalAccessor{path: path, data: data}, nil
}

func (a *LocalAccessor) Path() string  { return a.path }
func (a *LocalAccessor) Slice() []byte { return a.data }

func (a *LocalAccessor) ReadBytes(offset, size uint64) ([]byte, error) {
	if err := checkBounds(offset, size, uint64(len(a.data))); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, a.data[offset:offset+size])
	return out, nil
}

func (a *LocalAccessor) WriteBytes(offset uint64, data []byte) error {
	return commyerr.NewInvalidState("cannot write directly to local accessor; use file watcher")
}

func (a *LocalAccessor) FileSize() (uint64, error) { return uint64(len(a.data)), nil }
func (a *LocalAccessor) IsLocal() bool              { return true }

func (a *LocalAccessor) Resize(newSize uint64) error {
	return commyerr.NewInvalidState("cannot resize local mapped file")
}

// Remap re-reads the file from disk, picking up any external change.
func (a *LocalAccessor) Remap() error {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return commyerr.NewIOError(a.path, err)
	}
	a.data = data
	return nil
}

// Close is a no-op; there is no descriptor or mapping to release.
func (a *LocalAccessor) Close() error { return nil }
