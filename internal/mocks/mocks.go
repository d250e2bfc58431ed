package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, event events.Event) error {
	args := m.Called(ctx, topic, key, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) Index(ctx context.Context, p *models.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockIndex) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockIndex) Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	args := m.Called(ctx, query, from, size)
	if args.Get(1) == nil {
		return args.Get(0).(int64), nil, args.Error(2)
	}
	return args.Get(0).(int64), args.Get(1).([]models.Product), args.Error(2)
}
