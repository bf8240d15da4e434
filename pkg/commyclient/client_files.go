package commyclient

import (
	"context"

	"github.com/google/uuid"

	"github.com/ciresnave/commy-go/internal/logger"
	"github.com/ciresnave/commy-go/pkg/accessor"
	"github.com/ciresnave/commy-go/pkg/commyerr"
	"github.com/ciresnave/commy-go/pkg/vfile"
	"github.com/ciresnave/commy-go/pkg/watcher"
	"github.com/ciresnave/commy-go/pkg/wire"
)

// StartFileMonitoring initializes the file watcher (if not already
// running) and starts its background watch loop. Idempotent.
func (c *Client) StartFileMonitoring(ctx context.Context) error {
	c.filesMu.Lock()
	if c.watcher != nil {
		c.filesMu.Unlock()
		return nil
	}
	w, err := watcher.New(c.watchDir)
	if err != nil {
		c.filesMu.Unlock()
		return err
	}
	c.watcher = w
	c.filesMu.Unlock()

	return w.Start(ctx)
}

// StopFileMonitoring stops the watcher's background loop. Idempotent.
func (c *Client) StopFileMonitoring() error {
	c.filesMu.Lock()
	w := c.watcher
	c.filesMu.Unlock()

	if w != nil {
		w.Stop()
	}
	return nil
}

// cacheServiceFile registers svc's virtual file and accessor, selecting
// local (mmap) or remote (websocket-synced buffer) mode off the presence
// of svc.FilePath, per spec §3 ("the presence of filePath distinguishes
// local... from remote services"). Idempotent per ServiceID.
func (c *Client) cacheServiceFile(svc wire.Service) (*vfile.VirtualFile, error) {
	c.filesMu.Lock()
	defer c.filesMu.Unlock()

	if vf, ok := c.files[svc.ServiceID]; ok {
		return vf, nil
	}

	vf := vfile.New(svc.ServiceID, svc.ServiceName, svc.TenantID)
	for _, vm := range svc.Variables {
		if err := vf.RegisterVariable(vfile.VariableMetadata{
			Name:   vm.Name,
			Offset: vm.Offset,
			Size:   vm.Size,
		}); err != nil {
			logger.Warn("skipping variable metadata from server",
				logger.KeyServiceID, svc.ServiceID,
				"variable", vm.Name,
				logger.KeyError, err,
			)
		}
	}

	var acc accessor.Accessor
	if svc.FilePath != "" {
		local, err := accessor.NewLocalAccessor(svc.FilePath)
		if err != nil {
			logger.Warn("failed to mmap local service file, falling back to remote access",
				logger.KeyServiceID, svc.ServiceID,
				logger.KeyError, err,
			)
		} else {
			acc = local
			if c.watcher != nil {
				c.watcher.RegisterVirtualFile(svc.ServiceID, vf, local)
			}
		}
	}
	if acc == nil {
		acc = accessor.NewRemoteAccessor()
	}

	if c.accessors == nil {
		c.accessors = make(map[string]accessor.Accessor)
	}
	c.accessors[svc.ServiceID] = acc
	c.files[svc.ServiceID] = vf
	return vf, nil
}

// GetVirtualServiceFile returns the cached virtual file for a service,
// fetching the service (and, per spec §3, deciding local vs. remote mode
// off the server's filePath) if it has not been opened yet.
func (c *Client) GetVirtualServiceFile(ctx context.Context, tenantID, serviceName string) (*vfile.VirtualFile, error) {
	c.filesMu.Lock()
	for _, vf := range c.files {
		if vf.TenantID() == tenantID && vf.ServiceName() == serviceName {
			c.filesMu.Unlock()
			return vf, nil
		}
	}
	c.filesMu.Unlock()

	svc, err := c.GetService(ctx, tenantID, serviceName)
	if err != nil {
		return nil, err
	}
	return c.cacheServiceFile(svc)
}

// reportLocalChanges sends variables changed locally since the last sync
// to the server, then syncs the shadow buffer on acknowledgement,
// completing the local-mode flow documented in spec §4.5/§6: detect via
// the watcher, report, sync shadow.
func (c *Client) reportLocalChanges(ctx context.Context, serviceID string) error {
	c.filesMu.Lock()
	vf, ok := c.files[serviceID]
	c.filesMu.Unlock()
	if !ok {
		return nil
	}

	changed := vf.ChangedVariables()
	if len(changed) == 0 {
		return nil
	}

	newValues := make(map[string][]byte, len(changed))
	for _, name := range changed {
		data, err := vf.ReadVariable(name)
		if err != nil {
			return err
		}
		newValues[name] = data
	}

	reqID := uuid.NewString()
	reply, err := c.sendAndWait(ctx, wire.ReportVariableChanges{
		RequestID:        reqID,
		ServiceID:        serviceID,
		ChangedVariables: changed,
		NewValues:        newValues,
	}, reqID)
	if err != nil {
		return err
	}

	if _, ok := reply.(wire.VariableChangesAcknowledged); !ok {
		return commyerr.NewInvalidMessage("expected VariableChangesAcknowledged")
	}

	vf.SyncShadow()
	return nil
}

// WaitForFileChange blocks until the watcher reports a change, or ctx is
// cancelled. Returns InvalidState if file monitoring was never started.
// The detected change is reported back to the server and the shadow
// buffer synced before the event is returned to the caller; a failure to
// report is logged but does not suppress the already-observed local
// change.
func (c *Client) WaitForFileChange(ctx context.Context) (watcher.ChangeEvent, error) {
	c.filesMu.Lock()
	w := c.watcher
	c.filesMu.Unlock()

	if w == nil {
		return watcher.ChangeEvent{}, commyerr.NewInvalidState(
			"file watcher not initialized; call StartFileMonitoring first",
		)
	}

	select {
	case ev := <-w.Events():
		c.metrics.observeDiffRanges(len(ev.ChangedVariables))
		if err := c.reportLocalChanges(ctx, ev.ServiceID); err != nil {
			logger.Warn("failed to report local changes to server",
				logger.KeyServiceID, ev.ServiceID,
				logger.KeyError, err,
			)
		}
		return ev, nil
	case <-ctx.Done():
		return watcher.ChangeEvent{}, ctx.Err()
	}
}

// TryGetFileChange returns the next pending change event without blocking.
func (c *Client) TryGetFileChange() (watcher.ChangeEvent, bool) {
	c.filesMu.Lock()
	w := c.watcher
	c.filesMu.Unlock()

	if w == nil {
		return watcher.ChangeEvent{}, false
	}

	select {
	case ev := <-w.Events():
		c.metrics.observeDiffRanges(len(ev.ChangedVariables))
		if err := c.reportLocalChanges(context.Background(), ev.ServiceID); err != nil {
			logger.Warn("failed to report local changes to server",
				logger.KeyServiceID, ev.ServiceID,
				logger.KeyError, err,
			)
		}
		return ev, true
	default:
		return watcher.ChangeEvent{}, false
	}
}
