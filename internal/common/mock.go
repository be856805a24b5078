package common

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockMessageProducer records published messages for tests that do not need a running broker.
type MockMessageProducer struct {
	mock.Mock
}

func (m *MockMessageProducer) Publish(ctx context.Context, msg []byte, key BindingKey, exchange Exchange) error {
	args := m.Called(ctx, msg, key, exchange)
	return args.Error(0)
}
