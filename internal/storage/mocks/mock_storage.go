package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/storage"
)

type MockTenantObjectStore struct {
	mock.Mock
}

func (m *MockTenantObjectStore) Put(ctx context.Context, tenantID, key string, r io.Reader, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	args := m.Called(ctx, tenantID, key, r, opt)
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

func (m *MockTenantObjectStore) Get(ctx context.Context, tenantID, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, tenantID, key)
	var rc io.ReadCloser
	if args.Get(0) != nil {
		rc = args.Get(0).(io.ReadCloser)
	}
	return rc, args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockTenantObjectStore) Delete(ctx context.Context, tenantID, key string) error {
	args := m.Called(ctx, tenantID, key)
	return args.Error(0)
}

func (m *MockTenantObjectStore) PurgeTenant(ctx context.Context, tenantID string) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}
