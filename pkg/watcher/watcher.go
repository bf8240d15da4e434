// Package watcher monitors the local cache directory for mmap'd variable
// files changing underneath us (written by another local process or the
// server's local-sync helper) and feeds the resulting byte diffs back into
// the owning virtual file.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ciresnave/commy-go/internal/logger"
	"github.com/ciresnave/commy-go/pkg/accessor"
	"github.com/ciresnave/commy-go/pkg/commyerr"
	"github.com/ciresnave/commy-go/pkg/vfile"
)

// ============================================================================
// Constants
// ============================================================================

const (
	// cacheDirName is the subdirectory created under the user's cache
	// directory to hold one mmap'd file per locally-attached service.
	cacheDirName = "commy_virtual_files"

	// servicePrefix/serviceSuffix bound the service ID embedded in a
	// watched file's name: service_<id>.mem
	servicePrefix = "service_"
	serviceSuffix = ".mem"

	// maxConsecutiveErrors is how many fsnotify errors in a row the watch
	// loop tolerates before it logs and exits; the phase stays Watching
	// until Stop is called.
	maxConsecutiveErrors = 3
)

// ============================================================================
// Phase -- watcher lifecycle state
// ============================================================================

// Phase is the watcher's lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWatching
	PhaseStopping
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWatching:
		return "watching"
	case PhaseStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// ============================================================================
// ChangeEvent -- reported to callers after a local file changes
// ============================================================================

// ChangeEvent describes variables that changed in a service's local file.
type ChangeEvent struct {
	ServiceID        string
	ChangedVariables []string
}

// ============================================================================
// Watcher
// ============================================================================

// Watcher watches a directory of service_<id>.mem files for external
// writes and reconciles them against the registered *vfile.VirtualFile for
// that service, using the SIMD diff engine to attribute byte changes to
// variable names.
type Watcher struct {
	watchDir string

	mu    sync.RWMutex
	phase Phase

	filesMu   sync.RWMutex
	files     map[string]*vfile.VirtualFile
	accessors map[string]*accessor.LocalAccessor

	events chan ChangeEvent
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a watcher rooted at watchDir. If watchDir is empty, it
// defaults to <user cache dir>/commy_virtual_files, creating it if absent.
func New(watchDir string) (*Watcher, error) {
	if watchDir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return nil, commyerr.NewIOError("", err)
		}
		watchDir = filepath.Join(cacheDir, cacheDirName)
	}
	if err := os.MkdirAll(watchDir, 0o700); err != nil {
		return nil, commyerr.NewIOError(watchDir, err)
	}

	return &Watcher{
		watchDir:  watchDir,
		phase:     PhaseIdle,
		files:     make(map[string]*vfile.VirtualFile),
		accessors: make(map[string]*accessor.LocalAccessor),
		events:    make(chan ChangeEvent, 64),
	}, nil
}

// WatchDir returns the directory being watched.
func (w *Watcher) WatchDir() string { return w.watchDir }

// Phase returns the current lifecycle phase.
func (w *Watcher) Phase() Phase {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.phase
}

// Events returns the channel change events are delivered on.
func (w *Watcher) Events() <-chan ChangeEvent { return w.events }

// RegisterVirtualFile associates a service's virtual file and local mmap
// accessor with this watcher so its local changes get attributed.
func (w *Watcher) RegisterVirtualFile(serviceID string, vf *vfile.VirtualFile, acc *accessor.LocalAccessor) {
	w.filesMu.Lock()
	defer w.filesMu.Unlock()
	w.files[serviceID] = vf
	w.accessors[serviceID] = acc
}

// UnregisterVirtualFile drops a service from the watcher's bookkeeping.
func (w *Watcher) UnregisterVirtualFile(serviceID string) {
	w.filesMu.Lock()
	defer w.filesMu.Unlock()
	delete(w.files, serviceID)
	delete(w.accessors, serviceID)
}

// Start begins watching in the background. Calling Start while already
// watching is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.phase == PhaseWatching {
		w.mu.Unlock()
		return nil
	}
	w.phase = PhaseWatching
	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Lock()
		w.phase = PhaseIdle
		w.mu.Unlock()
		return commyerr.NewIOError(w.watchDir, err)
	}
	if err := fsWatcher.Add(w.watchDir); err != nil {
		fsWatcher.Close()
		w.mu.Lock()
		w.phase = PhaseIdle
		w.mu.Unlock()
		return commyerr.NewIOError(w.watchDir, err)
	}

	go w.watchLoop(loopCtx, fsWatcher)
	return nil
}

// Stop signals the watch loop to exit and waits for it to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.phase != PhaseWatching {
		w.mu.Unlock()
		return
	}
	w.phase = PhaseStopping
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	w.mu.Lock()
	w.phase = PhaseIdle
	w.mu.Unlock()
}

func (w *Watcher) watchLoop(ctx context.Context, fsWatcher *fsnotify.Watcher) {
	defer close(w.done)
	defer fsWatcher.Close()

	consecutiveErrors := 0

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := w.handleFileChange(event.Name); err != nil {
	logger.Error("variable file change handling failed",
					logger.KeyWatchPath, event.Name,
					logger.KeyError, err,
				)
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			consecutiveErrors++
			logger.Error("fsnotify error",
				logger.KeyError, err,
				"consecutive", consecutiveErrors,
			)
			if consecutiveErrors >= maxConsecutiveErrors {
				logger.Error("too many consecutive watch errors, stopping watch loop",
					"threshold", maxConsecutiveErrors,
				)
				return
			}
			continue
		}
		consecutiveErrors = 0
	}
}

// handleFileChange re-maps the changed file's accessor, diffs it against
// its virtual file's shadow buffer, and publishes a ChangeEvent for any
// variables whose bytes moved.
func (w *Watcher) handleFileChange(path string) error {
	serviceID, ok := serviceIDFromPath(path)
	if !ok {
		return nil
	}

	w.filesMu.RLock()
	vf, hasFile := w.files[serviceID]
	acc, hasAcc := w.accessors[serviceID]
	w.filesMu.RUnlock()
	if !hasFile || !hasAcc {
		return nil
	}

	if err := acc.Remap(); err != nil {
		return err
	}

	shadow := vf.ShadowBytes()
	newBytes := make([]byte, len(shadow))
	copy(newBytes, acc.Slice())
	if bytesEqual(newBytes, shadow) {
		return nil
	}

	vf.UpdateBytes(newBytes)
	changed, err := vf.DiffAgainstShadow()
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}
	vf.MarkVariablesChanged(changed)

	select {
	case w.events <- ChangeEvent{ServiceID: serviceID, ChangedVariables: changed}:
	default:
		logger.Warn("watcher event channel full, dropping change event",
			logger.KeyServiceID, serviceID,
		)
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// serviceIDFromPath extracts the service ID from a service_<id>.mem path.
func serviceIDFromPath(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, serviceSuffix) {
		return "", false
	}
	trimmed := strings.TrimSuffix(name, serviceSuffix)
	if !strings.HasPrefix(trimmed, servicePrefix) {
		return "", false
	}
	id := strings.TrimPrefix(trimmed, servicePrefix)
	if id == "" {
		return "", false
	}
	return id, true
}

// ServiceFilePath returns the conventional path for a service's local mmap
// file under dir (the watcher's directory), creating it with 0600
// permissions if it does not already exist.
func ServiceFilePath(dir, serviceID string) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("%s%s%s", servicePrefix, serviceID, serviceSuffix))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return "", commyerr.NewIOError(path, err)
		}
	}
	return path, nil
}
