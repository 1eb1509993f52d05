package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/config"
)

// minioStore implements TenantObjectStore using an S3-compatible backend
// (MinIO, AWS S3, etc.). It is safe for concurrent use by multiple goroutines.
type minioStore struct {
	client *minio.Client
	bucket string
}

// NewMinIO creates a tenant object store backed by MinIO.
// It validates connectivity and ensures the bucket exists (creates it if missing).
func NewMinIO(cfg config.MinIOConfig) (TenantObjectStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ms := &minioStore{client: cli, bucket: cfg.Bucket}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ensure bucket exists.
	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return ms, nil
}

// tenantPrefix is the isolation boundary at the storage tier. Keys are
// cleaned of traversal before being joined under it.
func tenantPrefix(tenantID string) string {
	return "tenants/" + tenantID + "/"
}

func (m *minioStore) objectKey(tenantID, key string) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("tenant id is required")
	}
	clean := strings.TrimLeft(key, "/")
	if clean == "" || strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return tenantPrefix(tenantID) + clean, nil
}

// Put uploads an object under the tenant prefix using streaming I/O only.
func (m *minioStore) Put(ctx context.Context, tenantID, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	full, err := m.objectKey(tenantID, key)
	if err != nil {
		return ObjectInfo{}, err
	}

	putOpts := minio.PutObjectOptions{
		ContentType:  opt.ContentType,
		UserMetadata: opt.Metadata,
	}
	info, err := m.client.PutObject(ctx, m.bucket, full, r, opt.Size, putOpts)
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		Key:          full,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  opt.ContentType,
		LastModified: time.Now(), // MinIO PutObjectInfo doesn't return LastModified
		Metadata:     opt.Metadata,
	}, nil
}

// Get downloads an object's content as a ReadCloser along with basic info.
func (m *minioStore) Get(ctx context.Context, tenantID, key string) (io.ReadCloser, ObjectInfo, error) {
	full, err := m.objectKey(tenantID, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	obj, err := m.client.GetObject(ctx, m.bucket, full, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	// Fetch stat to populate info; avoid reading content into memory.
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, ObjectInfo{}, err
	}
	info := ObjectInfo{
		Key:          full,
		Size:         st.Size,
		ETag:         st.ETag,
		ContentType:  st.ContentType,
		LastModified: st.LastModified,
		Metadata:     st.UserMetadata,
	}
	return obj, info, nil
}

// Delete removes one object by tenant-relative key.
func (m *minioStore) Delete(ctx context.Context, tenantID, key string) error {
	full, err := m.objectKey(tenantID, key)
	if err != nil {
		return err
	}
	return m.client.RemoveObject(ctx, m.bucket, full, minio.RemoveObjectOptions{})
}

// PurgeTenant lists and removes everything under the tenant prefix.
func (m *minioStore) PurgeTenant(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id is required")
	}

	objects := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    tenantPrefix(tenantID),
		Recursive: true,
	})

	for errRes := range m.client.RemoveObjects(ctx, m.bucket, objects, minio.RemoveObjectsOptions{}) {
		if errRes.Err != nil {
			return fmt.Errorf("purge object %s: %w", errRes.ObjectName, errRes.Err)
		}
	}
	return nil
}
