//go:build unix

package accessor

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/ciresnave/commy-go/pkg/commyerr"
)

// LocalAccessor is a read-only accessor backed by a memory-mapped file.
// Writes happen externally (the server or another local process); the
// watcher detects the resulting mmap changes and feeds them back into the
// virtual file's diff engine rather than this accessor writing them.
type LocalAccessor struct {
	path string
	file *os.File
	data []byte
}

// NewLocalAccessor opens path and maps it read-only, creating it if absent.
func NewLocalAccessor(path string) (*LocalAccessor, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, commyerr.NewIOError(path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, commyerr.NewIOError(path, err)
	}

	size := info.Size()
	if size == 0 {
		// unix.Mmap rejects a zero-length mapping; pad a fresh file to one
		// page so a brand-new service file can still be mapped immediately.
		if err := f.Truncate(int64(os.Getpagesize())); err != nil {
			f.Close()
			return nil, commyerr.NewIOError(path, err)
		}
		size = int64(os.Getpagesize())
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, commyerr.NewMappingError(path, err)
	}

	return &LocalAccessor{path: path, file: f, data: data}, nil
}

// Path returns the mapped file's path.
func (a *LocalAccessor) Path() string { return a.path }

// Slice returns a zero-copy borrow of the mapped memory. Callers must not
// retain it past the next Remap/Close call.
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

func (a *LocalAccessor) FileSize() (uint64, error) {
	return uint64(len(a.data)), nil
}

func (a *LocalAccessor) IsLocal() bool { return true }

func (a *LocalAccessor) Resize(newSize uint64) error {
	return commyerr.NewInvalidState("cannot resize local mapped file")
}

// Remap re-maps the file, picking up any size change made by an external
// writer. Called by the watcher after it observes a write event.
func (a *LocalAccessor) Remap() error {
	if err := unix.Munmap(a.data); err != nil {
		return commyerr.NewMappingError(a.path, err)
	}

	info, err := a.file.Stat()
	if err != nil {
		return commyerr.NewIOError(a.path, err)
	}

	data, err := unix.Mmap(int(a.file.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return commyerr.NewMappingError(a.path, err)
	}

	a.data = data
	return nil
}

// Close unmaps the file and closes its descriptor.
func (a *LocalAccessor) Close() error {
	if a.data != nil {
		_ = unix.Munmap(a.data)
		a.data = nil
	}
	return a.file.Close()
}
