package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"cdicheck/internal/port"
)

// MockLLMGateway is a mock implementation of port.LLMGateway.
type MockLLMGateway struct {
	mock.Mock
}

func (m *MockLLMGateway) Invoke(ctx context.Context, req port.LLMRequest) (*port.LLMResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.LLMResponse), args.Error(1)
}
