package database

import (
	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockChatRepository) GetRoomById(roomId int) (Room, error) {
	args := m.Called(roomId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockChatRepository) ListRoomsForUser(userId int) ([]Room, error) {
	args := m.Called(userId)
	return args.Get(0).([]Room), args.Error(1)
}
func (m *MockChatRepository) FindPrivateRoom(userA, userB int) (Room, error) {
	args := m.Called(userA, userB)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockChatRepository) AddParticipant(roomId, userId int) error {
	args := m.Called(roomId, userId)
	return args.Error(0)
}
func (m *MockChatRepository) RemoveParticipant(roomId, userId int) error {
	args := m.Called(roomId, userId)
	return args.Error(0)
}
func (m *MockChatRepository) ArchiveRoom(roomId int) error {
	args := m.Called(roomId)
	return args.Error(0)
}
func (m *MockChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) GetMessageById(messageId int) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) ListMessages(roomId, beforeId, limit int) ([]Message, error) {
	args := m.Called(roomId, beforeId, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockChatRepository) ListUnreadMessages(roomId, userId int) ([]Message, error) {
	args := m.Called(roomId, userId)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockChatRepository) CountUnreadMessages(roomId, userId int) (int, error) {
	args := m.Called(roomId, userId)
	return args.Int(0), args.Error(1)
}
func (m *MockChatRepository) UpdateMessageContent(messageId int, content string) (Message, error) {
	args := m.Called(messageId, content)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) SetMessageFullyRead(messageId int) error {
	args := m.Called(messageId)
	return args.Error(0)
}
func (m *MockChatRepository) CreateReadReceipt(messageId, userId int) (bool, error) {
	args := m.Called(messageId, userId)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatRepository) CountReadReceipts(messageId int) (int, error) {
	args := m.Called(messageId)
	return args.Int(0), args.Error(1)
}
func (m *MockChatRepository) GetOrCreateChatSettings(userId int) (ChatSettings, error) {
	args := m.Called(userId)
	return args.Get(0).(ChatSettings), args.Error(1)
}
func (m *MockChatRepository) UpdateChatSettings(params UpdateChatSettingsParams) (ChatSettings, error) {
	args := m.Called(params)
	return args.Get(0).(ChatSettings), args.Error(1)
}
