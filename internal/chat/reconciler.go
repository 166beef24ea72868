package chat

import (
	"fmt"
	"log"

	"github.com/edulane/school-chat/internal/broker"
	"github.com/edulane/school-chat/internal/database"
	"github.com/edulane/school-chat/internal/directory"
	"github.com/edulane/school-chat/internal/stats"
	"github.com/edulane/school-chat/internal/types"
)

// Reconciler records read receipts and decides when a message flips to fully
// read. It keeps no counter state of its own: on every receipt that actually
// lands it re-counts the receipt table against the room's current
// participants, so the flag can always be re-derived.
type Reconciler struct {
	repo   database.ChatRepository
	dir    *directory.Directory
	broker *broker.Broker
	stats  stats.StatsProvider
	logger *log.Logger
}

func NewReconciler(repo database.ChatRepository, dir *directory.Directory, b *broker.Broker, statsProvider stats.StatsProvider, logger *log.Logger) *Reconciler {
	statsProvider.RegisterMetric(stats.ReadReceiptsRecorded)

	return &Reconciler{
		repo:   repo,
		dir:    dir,
		broker: b,
		stats:  statsProvider,
		logger: logger,
	}
}

// RecordRead records a read receipt for msg by readerId. It returns whether a
// new receipt row was created and whether the message is now fully read.
// Receipts are never recorded for the message's own sender, and recording the
// same (message, reader) pair twice creates exactly one row.
func (r *Reconciler) RecordRead(msg database.Message, readerId int) (created, fullyRead bool, err error) {
	if msg.SenderId == readerId {
		return false, msg.FullyRead, nil
	}

	created, err = r.repo.CreateReadReceipt(msg.Id, readerId)
	if err != nil {
		return false, false, fmt.Errorf("record read receipt: %w", err)
	}

	if !created {
		return false, msg.FullyRead, nil
	}

	r.stats.Incr(stats.ReadReceiptsRecorded)

	fullyRead = msg.FullyRead
	if !fullyRead {
		fullyRead, err = r.reconcile(msg)
		if err != nil {
			return true, false, err
		}
	}

	r.broker.Publish(broker.RoomGroup(msg.RoomId), types.NewReadEvent(msg.Id, readerId, msg.RoomId, fullyRead), nil)

	return created, fullyRead, nil
}

// reconcile re-counts receipts for msg against everyone in the room except
// the sender, flipping fully_read when the count covers them all.
func (r *Reconciler) reconcile(msg database.Message) (bool, error) {
	count, err := r.repo.CountReadReceipts(msg.Id)
	if err != nil {
		return false, fmt.Errorf("count read receipts: %w", err)
	}

	others, err := r.dir.ParticipantsExcept(msg.RoomId, msg.SenderId)
	if err != nil {
		return false, err
	}

	if count < len(others) {
		return false, nil
	}

	if err := r.repo.SetMessageFullyRead(msg.Id); err != nil {
		return false, fmt.Errorf("mark message fully read: %w", err)
	}

	r.logger.Printf("message %d in room %d fully read (%d receipts)", msg.Id, msg.RoomId, count)
	return true, nil
}
