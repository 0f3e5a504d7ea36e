package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockBackend is a testify mock for Backend.
type MockBackend struct {
	mock.Mock
	BackendName string
}

func (m *MockBackend) RawInvoke(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Name() string {
	if m.BackendName == "" {
		return "mock"
	}
	return m.BackendName
}

// MockInvoker is a testify mock for Invoker.
type MockInvoker struct {
	mock.Mock
}

func (m *MockInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}
