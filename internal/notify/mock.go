package notify

import "github.com/stretchr/testify/mock"

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyNewMessage(n MessageNotification) error {
	args := m.Called(n)
	return args.Error(0)
}
