package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/Krakenied/MiniMessenger/internal/audience"
	"github.com/Krakenied/MiniMessenger/internal/markup"
)

var (
	_ audience.Audience    = (*MockAudience)(nil)
	_ audience.Broadcaster = (*MockBroadcaster)(nil)
)

// MockAudience is a testify mock of audience.Audience.
type MockAudience struct {
	mock.Mock
}

// SendMessage mocks the SendMessage method.
func (m *MockAudience) SendMessage(c markup.Component) {
	m.Called(c)
}

// SendActionBar mocks the SendActionBar method.
func (m *MockAudience) SendActionBar(c markup.Component) {
	m.Called(c)
}

// MockBroadcaster is a testify mock of audience.Broadcaster.
type MockBroadcaster struct {
	mock.Mock
}

// Broadcast mocks the Broadcast method.
func (m *MockBroadcaster) Broadcast(c markup.Component) int {
	args := m.Called(c)
	return args.Int(0)
}

// BroadcastPermission mocks the BroadcastPermission method.
func (m *MockBroadcaster) BroadcastPermission(c markup.Component, permission string) int {
	args := m.Called(c, permission)
	return args.Int(0)
}
