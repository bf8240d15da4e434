package wire

import "time"

// ServiceMetadata describes a service within a tenant.
type ServiceMetadata struct {
	ServiceID   string    `json:"service_id"`
	ServiceName string    `json:"service_name"`
	TenantID    string    `json:"tenant_id"`
	CreatedAt   time.Time `json:"created_at"`
	FilePath    string    `json:"file_path,omitempty"`
}

// VariableMetadata describes a single variable's placement within a
// service's virtual file.
type VariableMetadata struct {
	Name      string    `json:"name"`
	ServiceID string    `json:"service_id"`
	Offset    uint64    `json:"offset"`
	Size      uint64    `json:"size"`
	Version   uint64    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// Permission enumerates the tenant-scoped capabilities a session may hold.
type Permission string

const (
	PermissionRead    Permission = "Read"
	PermissionWrite   Permission = "Write"
	PermissionAdmin   Permission = "Admin"
	PermissionExecute Permission = "Execute"
)
