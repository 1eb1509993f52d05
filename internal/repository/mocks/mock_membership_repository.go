package mocks

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/model"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/repository"
)

type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) Upsert(ctx context.Context, mem *model.Membership) (*model.Membership, error) {
	args := m.Called(ctx, mem)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Membership), args.Error(1)
}

func (m *MockMembershipRepository) Find(ctx context.Context, accountID, tenantID string) (*model.Membership, error) {
	args := m.Called(ctx, accountID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Membership), args.Error(1)
}

func (m *MockMembershipRepository) Deactivate(ctx context.Context, accountID, tenantID string) error {
	args := m.Called(ctx, accountID, tenantID)
	return args.Error(0)
}

func (m *MockMembershipRepository) ListForAccount(ctx context.Context, accountID string) ([]model.UserTenant, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserTenant), args.Error(1)
}

func (m *MockMembershipRepository) DeleteForTenant(ctx context.Context, tenantID string) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockMembershipRepository) WithTx(tx *sql.Tx) repository.MembershipRepository {
	return m
}
