package source

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSource is a testify mock for Source.
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Playlist(ctx context.Context) (*Playlist, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Playlist), args.Error(1)
}

func (m *MockSource) Transcript(ctx context.Context, item Item) (string, error) {
	args := m.Called(ctx, item)
	return args.String(0), args.Error(1)
}
