package bitbang

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Open(ctx context.Context, sda, scl uint8, baud uint32) error {
	args := m.Called(ctx, sda, scl, baud)
	return args.Error(0)
}

func (m *MockTransport) Zip(ctx context.Context, sda uint8, program []byte) (int, []byte) {
	args := m.Called(ctx, sda, program)
	data, _ := args.Get(1).([]byte)
	return args.Int(0), data
}

func (m *MockTransport) Close(ctx context.Context, sda uint8) error {
	args := m.Called(ctx, sda)
	return args.Error(0)
}

type MockI2CBus struct {
	mock.Mock
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, len(buffer))
	if data, ok := args.Get(0).([]byte); ok {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockTxBus additionally supports combined transactions.
type MockTxBus struct {
	MockI2CBus
}

func (m *MockTxBus) Tx(ctx context.Context, address byte, w, r []byte) error {
	args := m.Called(ctx, address, w, len(r))
	if data, ok := args.Get(0).([]byte); ok {
		copy(r, data)
	}
	return args.Error(1)
}
