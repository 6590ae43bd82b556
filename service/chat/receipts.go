package chat

import (
	"context"
	"time"

	"TChat/logger"
	"TChat/module/chat/store"
	"TChat/tools/errs"
)

// ReadReceiptTracker marks messages read, keeps room-level unread counters
// in sync, and routes receipts back to the original senders.
type ReadReceiptTracker struct {
	rooms store.RoomStore
	msgs  store.MessageStore
	guard *RoomAccessGuard
	emit  Emitter
	clock func() time.Time
}

func NewReadReceiptTracker(rooms store.RoomStore, msgs store.MessageStore, guard *RoomAccessGuard, emit Emitter) *ReadReceiptTracker {
	return &ReadReceiptTracker{
		rooms: rooms,
		msgs:  msgs,
		guard: guard,
		emit:  emit,
		clock: time.Now,
	}
}

// MarkRoomRead deletes the caller's unread counter entry for the room.
// Absence of the entry means "caught up", so a repeat call is a no-op.
func (t *ReadReceiptTracker) MarkRoomRead(ctx context.Context, c *Client, roomID string) error {
	if !c.Limiter.Check(rateMarkRead) {
		return errs.ErrRateLimited.WithMsg("Too many read updates, please slow down")
	}
	if roomID == "" {
		return errs.ErrValidation.WithMsg("Invalid room ID format")
	}

	room, err := t.rooms.FindByID(ctx, roomID)
	if err != nil {
		return err
	}
	if err := t.guard.Verify(room, c.UserID, c.Role); err != nil {
		return err
	}

	return t.rooms.ClearUnread(ctx, roomID, c.UserID)
}

// MarkMessagesRead appends read receipts for an explicit id set and emits
// one messages_read batch per original sender, not per message.
func (t *ReadReceiptTracker) MarkMessagesRead(ctx context.Context, c *Client, p MarkMessagesReadPayload) error {
	if !c.Limiter.Check(rateMarkRead) {
		return errs.ErrRateLimited.WithMsg("Too many read updates, please slow down")
	}
	if p.RoomID == "" || len(p.MessageIDs) == 0 {
		return errs.ErrValidation.WithMsg("Room ID and message IDs required")
	}

	room, err := t.rooms.FindByID(ctx, p.RoomID)
	if err != nil {
		return err
	}
	if err := t.guard.Verify(room, c.UserID, c.Role); err != nil {
		return err
	}

	modified, err := t.msgs.AppendReadReceipts(ctx, p.MessageIDs, c.UserID, t.clock())
	if err != nil {
		return err
	}
	if len(modified) == 0 {
		return nil
	}

	t.emitReceiptsPerSender(ctx, p.RoomID, modified, c.UserID)
	logger.Infof("[MARK_READ] user %s marked %d messages as read in room %s", c.UserID, len(modified), p.RoomID)
	return nil
}

// MarkDelivered runs on room join: everything unread by the joining user
// gets a receipt, because join implies the client is viewing the room.
// Delivery and first read are deliberately conflated here.
func (t *ReadReceiptTracker) MarkDelivered(ctx context.Context, c *Client, roomID string) error {
	unread, err := t.msgs.FindUnreadInRoom(ctx, roomID, c.UserID)
	if err != nil {
		return err
	}
	if len(unread) == 0 {
		return nil
	}

	ids := make([]string, 0, len(unread))
	for _, m := range unread {
		ids = append(ids, m.ID)
	}
	modified, err := t.msgs.AppendReadReceipts(ctx, ids, c.UserID, t.clock())
	if err != nil {
		return err
	}
	if len(modified) == 0 {
		return nil
	}

	t.emitReceiptsPerSender(ctx, roomID, modified, c.UserID)
	logger.Infof("[READ] marked %d messages as read for user %s on join", len(modified), c.UserID)
	return nil
}

// emitReceiptsPerSender groups the affected message ids by their sender
// and emits one batch per sender on that sender's private channel.
func (t *ReadReceiptTracker) emitReceiptsPerSender(ctx context.Context, roomID string, messageIDs []string, readerID string) {
	senders, err := t.msgs.SenderOf(ctx, messageIDs)
	if err != nil {
		logger.Errorf("[MARK_READ] resolve senders room=%s err=%v", roomID, err)
		return
	}

	bySender := make(map[string][]string)
	for _, id := range messageIDs {
		sid := senders[id]
		if sid == "" || sid == readerID {
			continue
		}
		bySender[sid] = append(bySender[sid], id)
	}

	now := t.clock()
	for sid, ids := range bySender {
		t.emit.ToUser(sid, EvtMessagesRead, MessagesReadPayload{
			RoomID:     roomID,
			MessageIDs: ids,
			ReadBy:     []string{readerID},
			Timestamp:  now,
		})
	}
}
