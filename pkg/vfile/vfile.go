// Package vfile implements the virtual variable file: the in-memory
// abstraction over a service's variable data shared by both the mmap
// (local) and websocket-synced (remote) access paths.
package vfile

import (
	"sync"

	"github.com/ciresnave/commy-go/pkg/commyerr"
	"github.com/ciresnave/commy-go/pkg/simddiff"
)

// VariableMetadata describes one variable's placement within the file.
type VariableMetadata struct {
	Name       string
	Offset     uint64
	Size       uint64
	TypeID     uint32
	Persistent bool
}

// WithPersistent returns a copy of m with Persistent set.
func (m VariableMetadata) WithPersistent(persistent bool) VariableMetadata {
	m.Persistent = persistent
	return m
}

func (m VariableMetadata) end() uint64 { return m.Offset + m.Size }

// VirtualFile is the shared, reference-counted-by-pointer representation of
// a service's variable file. The façade and the watcher both hold a
// *VirtualFile for the same service; there is no separate refcount since
// Go's GC reclaims it once both drop their reference.
type VirtualFile struct {
	serviceID   string
	serviceName string
	tenantID    string

	mu               sync.RWMutex
	variables        map[string]VariableMetadata
	currentBytes     []byte
	shadowBytes      []byte
	changedVariables []string
}

// New creates an empty virtual file for the given service.
func New(serviceID, serviceName, tenantID string) *VirtualFile {
	return &VirtualFile{
		serviceID:   serviceID,
		serviceName: serviceName,
		tenantID:    tenantID,
		variables:   make(map[string]VariableMetadata),
	}
}

func (f *VirtualFile) ServiceID() string   { return f.serviceID }
func (f *VirtualFile) ServiceName() string { return f.serviceName }
func (f *VirtualFile) TenantID() string    { return f.tenantID }

// RegisterVariable adds metadata for a new variable, growing the backing
// buffers as needed.
//
// Unlike the reference implementation, this rejects a variable whose byte
// range overlaps one already registered: two variables sharing bytes would
// make diff-to-variable attribution ambiguous, so the check belongs here
// rather than being discovered later as data corruption.
func (f *VirtualFile) RegisterVariable(meta VariableMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.variables {
		if existing.Name == meta.Name {
			continue
		}
		if meta.Offset < existing.end() && meta.end() > existing.Offset {
			return commyerr.NewInvalidOffset(
				"variable " + meta.Name + " overlaps existing variable " + existing.Name,
			)
		}
	}

	end := int(meta.end())
	if len(f.currentBytes) < end {
		grown := make([]byte, end)
		copy(grown, f.currentBytes)
		f.currentBytes = grown
	}
	if len(f.shadowBytes) < end {
		grown := make([]byte, end)
		copy(grown, f.shadowBytes)
		f.shadowBytes = grown
	}

	f.variables[meta.Name] = meta
	return nil
}

// GetVariableMetadata returns the metadata registered for name.
func (f *VirtualFile) GetVariableMetadata(name string) (VariableMetadata, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	meta, ok := f.variables[name]
	if !ok {
		return VariableMetadata{}, commyerr.NewVariableNotFound(name)
	}
	return meta, nil
}

// ListVariables returns all registered variable metadata.
func (f *VirtualFile) ListVariables() []VariableMetadata {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]VariableMetadata, 0, len(f.variables))
	for _, meta := range f.variables {
		out = append(out, meta)
	}
	return out
}

// ReadVariable returns a copy of a variable's current bytes.
func (f *VirtualFile) ReadVariable(name string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	meta, ok := f.variables[name]
	if !ok {
		return nil, commyerr.NewVariableNotFound(name)
	}

	start, end := int(meta.Offset), int(meta.end())
	if end > len(f.currentBytes) {
		return nil, commyerr.NewInvalidOffset("variable " + name + " extends beyond file bounds")
	}

	out := make([]byte, end-start)
	copy(out, f.currentBytes[start:end])
	return out, nil
}

// WriteVariable overwrites a variable's bytes and marks it changed.
func (f *VirtualFile) WriteVariable(name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	meta, ok := f.variables[name]
	if !ok {
		return commyerr.NewVariableNotFound(name)
	}
	if uint64(len(data)) != meta.Size {
		return commyerr.NewInvalidMessage("data size does not match variable size")
	}

	start, end := int(meta.Offset), int(meta.Offset)+len(data)
	if end > len(f.currentBytes) {
		return commyerr.NewInvalidOffset("variable " + name + " offset out of bounds")
	}

	copy(f.currentBytes[start:end], data)
	f.markChangedLocked(name)
	return nil
}

func (f *VirtualFile) markChangedLocked(name string) {
	for _, existing := range f.changedVariables {
		if existing == name {
			return
		}
	}
	f.changedVariables = append(f.changedVariables, name)
}

// Bytes returns a copy of the whole current buffer.
func (f *VirtualFile) Bytes() []byte {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]byte, len(f.currentBytes))
	copy(out, f.currentBytes)
	return out
}

// UpdateBytes replaces the whole current buffer, e.g. after an mmap refresh.
func (f *VirtualFile) UpdateBytes(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentBytes = append([]byte(nil), data...)
}

// ShadowBytes returns a copy of the shadow buffer.
func (f *VirtualFile) ShadowBytes() []byte {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]byte, len(f.shadowBytes))
	copy(out, f.shadowBytes)
	return out
}

// UpdateShadowBytes replaces the shadow buffer.
func (f *VirtualFile) UpdateShadowBytes(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shadowBytes = append([]byte(nil), data...)
}

// ChangedVariables returns the names changed since the last SyncShadow/ClearChanges.
func (f *VirtualFile) ChangedVariables() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.changedVariables))
	copy(out, f.changedVariables)
	return out
}

// ClearChanges drops all pending change tracking without touching the shadow.
func (f *VirtualFile) ClearChanges() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changedVariables = nil
}

// MarkVariablesChanged records names as changed, e.g. after the watcher
// observes an external mmap write.
func (f *VirtualFile) MarkVariablesChanged(names []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, name := range names {
		f.markChangedLocked(name)
	}
}

// SyncShadow copies current into shadow and clears change tracking, the
// step taken after reporting local changes to the server.
func (f *VirtualFile) SyncShadow() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shadowBytes = append([]byte(nil), f.currentBytes...)
	f.changedVariables = nil
}

// DiffAgainstShadow runs the SIMD diff engine between current and shadow
// and resolves the resulting byte ranges back into variable names.
func (f *VirtualFile) DiffAgainstShadow() ([]string, error) {
	f.mu.RLock()
	current := append([]byte(nil), f.currentBytes...)
	shadow := append([]byte(nil), f.shadowBytes...)
	variables := make(map[string]VariableMetadata, len(f.variables))
	for name, meta := range f.variables {
		variables[name] = meta
	}
	f.mu.RUnlock()

	ranges, err := simddiff.Diff(current, shadow)
	if err != nil {
		return nil, err
	}

	var changed []string
	for name, meta := range variables {
		for _, r := range ranges {
			if r.Overlaps(meta.Offset, meta.end()) {
				changed = append(changed, name)
				break
			}
		}
	}
	return changed, nil
}
