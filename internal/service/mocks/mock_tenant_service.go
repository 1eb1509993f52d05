package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/model"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/service"
)

type MockTenantService struct {
	mock.Mock
}

func (m *MockTenantService) CreateTenant(ctx context.Context, in service.CreateTenantInput) (*model.Tenant, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tenant), args.Error(1)
}

func (m *MockTenantService) GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tenant), args.Error(1)
}

func (m *MockTenantService) AddUserToTenant(ctx context.Context, accountID, tenantID string, role model.Role) (*model.Membership, error) {
	args := m.Called(ctx, accountID, tenantID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Membership), args.Error(1)
}

func (m *MockTenantService) RemoveUserFromTenant(ctx context.Context, accountID, tenantID string) error {
	args := m.Called(ctx, accountID, tenantID)
	return args.Error(0)
}

func (m *MockTenantService) ValidateTenantAccess(ctx context.Context, accountID, tenantID string) (*service.AccessDecision, error) {
	args := m.Called(ctx, accountID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AccessDecision), args.Error(1)
}

func (m *MockTenantService) GetUserTenants(ctx context.Context, accountID string) ([]model.UserTenant, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserTenant), args.Error(1)
}

func (m *MockTenantService) DeactivateTenant(ctx context.Context, tenantID string) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockTenantService) DropTenant(ctx context.Context, tenantID string) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockTenantService) RepairTenant(ctx context.Context, tenantID string) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}
