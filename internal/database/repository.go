package database

// ChatRepository is the persistence contract for the chat subsystem. All
// writes are atomic per row; the read-receipt reconciliation tolerates being
// re-derived from the receipt table at any time, so no cross-row transaction
// is required.
type ChatRepository interface {
	Ping() error

	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)

	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomById(roomId int) (Room, error)
	ListRoomsForUser(userId int) ([]Room, error)
	FindPrivateRoom(userA, userB int) (Room, error)
	AddParticipant(roomId, userId int) error
	RemoveParticipant(roomId, userId int) error
	ArchiveRoom(roomId int) error

	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessageById(messageId int) (Message, error)
	ListMessages(roomId, beforeId, limit int) ([]Message, error)
	ListUnreadMessages(roomId, userId int) ([]Message, error)
	CountUnreadMessages(roomId, userId int) (int, error)
	UpdateMessageContent(messageId int, content string) (Message, error)
	SetMessageFullyRead(messageId int) error

	CreateReadReceipt(messageId, userId int) (bool, error)
	CountReadReceipts(messageId int) (int, error)

	GetOrCreateChatSettings(userId int) (ChatSettings, error)
	UpdateChatSettings(params UpdateChatSettingsParams) (ChatSettings, error)
}
