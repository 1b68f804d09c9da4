package datatable

import (
	"context"
	"net/url"

	"github.com/stretchr/testify/mock"
)

// MockTransport is a Transport driven by testify expectations.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	args := m.Called(ctx, endpoint, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
