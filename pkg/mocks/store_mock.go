package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/stratovia/cpi/pkg/models"
	"github.com/stratovia/cpi/pkg/store"
)

// MockStore is a mock implementation of store.Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) SaveInvocation(ctx context.Context, record *models.InvocationRecord) error {
	args := m.Called(ctx, record)

	return args.Error(0)
}

func (m *MockStore) InvocationByID(ctx context.Context, id string) (*models.InvocationRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.InvocationRecord), args.Error(1)
}

func (m *MockStore) Invocations(ctx context.Context, filter store.Filter) ([]*models.InvocationRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.InvocationRecord), args.Error(1)
}

func (m *MockStore) SaveProviderHealth(ctx context.Context, health *models.ProviderHealth) error {
	args := m.Called(ctx, health)

	return args.Error(0)
}

func (m *MockStore) LatestProviderHealth(ctx context.Context, provider string) (*models.ProviderHealth, error) {
	args := m.Called(ctx, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ProviderHealth), args.Error(1)
}

func (m *MockStore) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockStore) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
