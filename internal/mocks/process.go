package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/Krakenied/MiniMessenger/internal/socket"
)

var _ socket.ProcessChecker = (*MockProcessChecker)(nil)

// MockProcessChecker is a testify mock of socket.ProcessChecker.
type MockProcessChecker struct {
	mock.Mock
}

// Running mocks the Running method.
func (m *MockProcessChecker) Running(name string) bool {
	args := m.Called(name)
	return args.Bool(0)
}
