// Package accessor provides the Accessor interface and its two
// implementations: a read-only mmap-backed LocalAccessor for local clients
// and a guarded in-memory RemoteAccessor for websocket-synced clients.
package accessor

import "github.com/ciresnave/commy-go/pkg/commyerr"

// Accessor reads and writes a service's variable file, regardless of
// whether the backing storage is a local memory-mapped file or an
// in-memory buffer synced over the wire.
type Accessor interface {
	// ReadBytes returns a copy of [offset, offset+size).
	ReadBytes(offset, size uint64) ([]byte, error)

	// WriteBytes writes data starting at offset.
	WriteBytes(offset uint64, data []byte) error

	// FileSize returns the total size of the backing storage.
	FileSize() (uint64, error)

	// IsLocal reports whether this accessor is backed by a local mmap.
	IsLocal() bool

	// Resize grows or shrinks the backing storage to newSize.
	Resize(newSize uint64) error
}

func checkBounds(offset, size, length uint64) error {
	if offset+size > length {
		return commyerr.NewInvalidOffset("read extends beyond file bounds")
	}
	return nil
}
