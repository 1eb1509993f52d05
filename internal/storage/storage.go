// Package storage contains the tenant-scoped object storage abstraction.
// Every tenant's objects live under an isolated key prefix inside one
// shared bucket, mirroring the schema-per-tenant model at the storage
// tier. Implementations rely on streaming I/O only; no local disk.
package storage

import (
	"context"
	"io"
	"time"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1
// and the implementation will buffer/chunk as supported by the backend.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// TenantObjectStore is an S3-compatible object store partitioned by tenant.
// Keys passed in are tenant-relative; implementations prepend the tenant
// prefix and must never let one tenant's key reach another's prefix.
type TenantObjectStore interface {
	// Put uploads an object under the tenant's prefix.
	Put(ctx context.Context, tenantID, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, tenantID, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes one object by tenant-relative key.
	Delete(ctx context.Context, tenantID, key string) error
	// PurgeTenant removes every object under the tenant's prefix. Called by
	// the privileged tenant drop path so storage cannot outlive the schema.
	PurgeTenant(ctx context.Context, tenantID string) error
}
