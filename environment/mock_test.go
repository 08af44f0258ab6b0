package environment

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTransport is a mock implementation of weatherstation.Transport using testify/mock
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

func newMockTransport() *MockTransport {
	tr := &MockTransport{}
	tr.On("Open", mock.Anything, uint8(6), uint8(13), uint32(100_000)).Return(nil).Maybe()
	tr.On("Close", mock.Anything, uint8(6)).Return(nil).Maybe()
	return tr
}

// program helpers mirroring the bytes the drivers must emit
func writeProgram(addr, reg byte, payload ...byte) []byte {
	p := []byte{4, addr, 2, 7, byte(len(payload) + 1), reg}
	p = append(p, payload...)
	return append(p, 3, 0)
}

func readProgram(addr, reg byte, length int) []byte {
	return []byte{4, addr, 2, 7, 1, reg, 2, 6, byte(length + 1), 3, 0}
}

func setPointerProgram(addr, reg byte) []byte {
	return []byte{4, addr, 2, 7, 1, reg, 3, 0}
}

func readAfterPointerProgram(addr byte, length int) []byte {
	return []byte{4, addr, 2, 6, byte(length), 3, 0}
}
