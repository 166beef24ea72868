package chat

import (
	"testing"

	"github.com/edulane/school-chat/internal/broker"
	"github.com/edulane/school-chat/internal/database"
	"github.com/edulane/school-chat/internal/directory"
	"github.com/edulane/school-chat/internal/stats"
	"github.com/edulane/school-chat/internal/testutil"
	"github.com/edulane/school-chat/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestReconciler(t *testing.T, repo *database.MockChatRepository) (*Reconciler, *broker.Broker) {
	mockStats := &stats.MockStatsUpdater{}
	mockStats.On("RegisterMetric", mock.Anything).Return()
	mockStats.On("Incr", mock.Anything).Return()
	mockStats.On("Decr", mock.Anything).Return()

	logger := testutil.TestLogger(t)
	b := broker.NewBroker(logger, mockStats)
	dir := directory.NewDirectory(repo, logger)
	return NewReconciler(repo, dir, b, mockStats, logger), b
}

func TestRecordReadTwoParticipantRoom(t *testing.T) {
	// room {A=1, B=2}: one receipt from B makes A's message fully read
	mockRepo := &database.MockChatRepository{}
	mockRepo.On("GetRoomById", 1).Return(database.Room{
		Id:             1,
		Active:         true,
		ParticipantIds: []int{1, 2},
	}, nil)
	mockRepo.On("CreateReadReceipt", 10, 2).Return(true, nil)
	mockRepo.On("CountReadReceipts", 10).Return(1, nil)
	mockRepo.On("SetMessageFullyRead", 10).Return(nil)

	r, b := newTestReconciler(t, mockRepo)

	sub := newCaptureSubscriber()
	b.Subscribe(broker.RoomGroup(1), sub)

	msg := database.Message{Id: 10, RoomId: 1, SenderId: 1}
	created, fullyRead, err := r.RecordRead(msg, 2)
	assert.NoError(t, err)
	assert.True(t, created)
	assert.True(t, fullyRead, "expected one receipt to cover the only other participant")

	ev := sub.next(t)
	assert.Equal(t, types.EventRead, ev.Type)
	payload := ev.Data.(types.ReadPayload)
	assert.Equal(t, 10, payload.MessageId)
	assert.Equal(t, 2, payload.UserId)
	assert.True(t, payload.FullyRead)
	mockRepo.AssertExpectations(t)
}

func TestRecordReadThreeParticipantRoom(t *testing.T) {
	// room {A=1, B=2, C=3}: B's receipt alone does not flip the flag,
	// C's second receipt does
	mockRepo := &database.MockChatRepository{}
	mockRepo.On("GetRoomById", 1).Return(database.Room{
		Id:             1,
		Active:         true,
		ParticipantIds: []int{1, 2, 3},
	}, nil)
	mockRepo.On("CreateReadReceipt", 10, 2).Return(true, nil)
	mockRepo.On("CountReadReceipts", 10).Return(1, nil).Once()
	mockRepo.On("CreateReadReceipt", 10, 3).Return(true, nil)
	mockRepo.On("CountReadReceipts", 10).Return(2, nil).Once()
	mockRepo.On("SetMessageFullyRead", 10).Return(nil)

	r, b := newTestReconciler(t, mockRepo)

	sub := newCaptureSubscriber()
	b.Subscribe(broker.RoomGroup(1), sub)

	msg := database.Message{Id: 10, RoomId: 1, SenderId: 1}

	created, fullyRead, err := r.RecordRead(msg, 2)
	assert.NoError(t, err)
	assert.True(t, created)
	assert.False(t, fullyRead, "expected flag to stay down with a reader outstanding")

	ev := sub.next(t)
	assert.False(t, ev.Data.(types.ReadPayload).FullyRead)

	created, fullyRead, err = r.RecordRead(msg, 3)
	assert.NoError(t, err)
	assert.True(t, created)
	assert.True(t, fullyRead)

	ev = sub.next(t)
	assert.True(t, ev.Data.(types.ReadPayload).FullyRead)
	mockRepo.AssertExpectations(t)
}

func TestRecordReadIdempotent(t *testing.T) {
	mockRepo := &database.MockChatRepository{}
	mockRepo.On("CreateReadReceipt", 10, 2).Return(false, nil)

	r, b := newTestReconciler(t, mockRepo)

	sub := newCaptureSubscriber()
	b.Subscribe(broker.RoomGroup(1), sub)

	msg := database.Message{Id: 10, RoomId: 1, SenderId: 1, FullyRead: true}
	created, fullyRead, err := r.RecordRead(msg, 2)
	assert.NoError(t, err)
	assert.False(t, created, "expected second receipt for the same pair to be a no-op")
	assert.True(t, fullyRead)

	sub.assertNoEvent(t)
	mockRepo.AssertNotCalled(t, "CountReadReceipts", mock.Anything)
}

func TestRecordReadIgnoresSender(t *testing.T) {
	mockRepo := &database.MockChatRepository{}
	r, _ := newTestReconciler(t, mockRepo)

	msg := database.Message{Id: 10, RoomId: 1, SenderId: 1}
	created, fullyRead, err := r.RecordRead(msg, 1)
	assert.NoError(t, err)
	assert.False(t, created)
	assert.False(t, fullyRead)
	mockRepo.AssertNotCalled(t, "CreateReadReceipt", mock.Anything, mock.Anything)
}

func TestRecordReadDepartedParticipantStopsCounting(t *testing.T) {
	// room had {A=1, B=2, C=3} but C left; B's receipt now covers everyone
	mockRepo := &database.MockChatRepository{}
	mockRepo.On("GetRoomById", 1).Return(database.Room{
		Id:             1,
		Active:         true,
		ParticipantIds: []int{1, 2},
	}, nil)
	mockRepo.On("CreateReadReceipt", 10, 2).Return(true, nil)
	mockRepo.On("CountReadReceipts", 10).Return(1, nil)
	mockRepo.On("SetMessageFullyRead", 10).Return(nil)

	r, _ := newTestReconciler(t, mockRepo)

	msg := database.Message{Id: 10, RoomId: 1, SenderId: 1}
	created, fullyRead, err := r.RecordRead(msg, 2)
	assert.NoError(t, err)
	assert.True(t, created)
	assert.True(t, fullyRead)
	mockRepo.AssertExpectations(t)
}
