package chat

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"TChat/logger"
	"TChat/module/chat/model"
	"TChat/module/chat/store"
	"TChat/tools/errs"
	"TChat/tools/ids"
)

// MessageOps serializes send/edit/delete/react against persisted messages.
// Shared counters (unread, readBy, reactions) are only ever touched through
// the stores' atomic primitives; nothing here does read-modify-write on a
// fetched copy.
type MessageOps struct {
	rooms    store.RoomStore
	msgs     store.MessageStore
	presence *PresenceRegistry
	guard    *RoomAccessGuard
	emit     Emitter
	push     PushNotifier

	autoReadDelay time.Duration
	clock         func() time.Time
}

func NewMessageOps(rooms store.RoomStore, msgs store.MessageStore, presence *PresenceRegistry,
	guard *RoomAccessGuard, emit Emitter, push PushNotifier, autoReadDelay time.Duration) *MessageOps {
	if push == nil {
		push = NopPushNotifier{}
	}
	if autoReadDelay <= 0 {
		autoReadDelay = time.Second
	}
	return &MessageOps{
		rooms:         rooms,
		msgs:          msgs,
		presence:      presence,
		guard:         guard,
		emit:          emit,
		push:          push,
		autoReadDelay: autoReadDelay,
		clock:         time.Now,
	}
}

// Send persists a new message and fans out every side effect: room
// broadcast, unread counters, typing reset, admin-chat push, room_updated,
// and the delayed auto-read for users who already have the room open.
func (o *MessageOps) Send(ctx context.Context, c *Client, p SendMessagePayload) error {
	if !c.Limiter.Check(EvtSendMessage) {
		logger.Warnf("[RATE_LIMIT] send message exceeded user=%s", c.UserID)
		return errs.ErrRateLimited.WithMsg("Too many messages, please slow down")
	}

	content := strings.TrimSpace(p.Content)
	if p.RoomID == "" || (content == "" && len(p.Media) == 0) {
		return errs.ErrValidation.WithMsg("Room ID and content required")
	}
	if utf8.RuneCountInString(content) > model.MaxContentLen {
		return errs.ErrValidation.WithMsg("Message is too long (max 5000 characters)")
	}

	room, err := o.rooms.FindByID(ctx, p.RoomID)
	if err != nil {
		return err
	}
	if err := o.guard.Verify(room, c.UserID, c.Role); err != nil {
		logger.Warnf("[MSG] %s (%s) denied send in %s: %v", c.UserID, c.Role, p.RoomID, err)
		return err
	}
	if room.IsArchived {
		return errs.ErrValidation.WithMsg("Room is archived")
	}

	now := o.clock()
	msgType := p.Type
	if msgType == "" {
		msgType = model.MsgText
	}
	msg := &model.Message{
		ID:        ids.GenerateString(),
		RoomID:    room.ID,
		SenderID:  model.PlainUser(c.UserID),
		Content:   content,
		Media:     p.Media,
		Type:      msgType,
		Status:    model.StatusSent,
		SentAt:    now,
		ReplyTo:   p.ReplyTo,
		ReadBy:    []model.ReadReceipt{},
		Reactions: []model.Reaction{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.msgs.Create(ctx, msg); err != nil {
		return err
	}

	if err := o.rooms.SetLastMessage(ctx, room.ID, msg.ID, now); err != nil {
		return err
	}
	recipients := room.ParticipantIDs(c.UserID)
	if err := o.rooms.IncrementUnread(ctx, room.ID, recipients, 1); err != nil {
		return err
	}

	payload := buildMessagePayload(msg, o.senderInfo(room, c))

	// Everyone subscribed to the room gets the authoritative copy,
	// including the sender's other devices.
	o.emit.ToRoom(room.ID, EvtMessageReceived, payload)

	// Sending implies the sender stopped typing.
	o.presence.SetTyping(room.ID, c.UserID, false)
	o.emit.ToRoom(room.ID, EvtUserTyping, TypingPayload{
		UserID: c.UserID, RoomID: room.ID, IsTyping: false, Timestamp: now,
	})

	// Participants without the room open learn the new unread count on
	// their private channel, plus a best-effort push.
	for _, uid := range recipients {
		if o.presence.IsActiveInRoom(room.ID, uid) {
			continue
		}
		unread := room.UnreadCount[uid] + 1
		o.emit.ToUser(uid, EvtUnreadCount, UnreadCountPayload{RoomID: room.ID, UnreadCount: unread})
		o.push.NotifyUnread(uid, room.ID, unread)
	}

	if room.Type == model.RoomAdminChat {
		if other, ok := room.CounterpartOf(c.UserID); ok {
			adminPayload := &NewAdminMessagePayload{RoomID: room.ID, Message: payload}
			o.emit.ToUser(other.UserID.ID, EvtNewAdminMessage, adminPayload)
			o.push.NotifyAdminMessage(other.UserID.ID, adminPayload)
		}
	}

	o.emit.ToRoom(room.ID, EvtRoomUpdated, RoomUpdatedPayload{
		RoomID: room.ID, LastMessage: payload, LastMessageTime: now,
	})

	o.scheduleAutoRead(room.ID, msg.ID, c.UserID)

	logger.Infof("[MSG] message %s sent in room %s by %s (%s)", msg.ID, room.ID, c.UserID, c.Role)
	return nil
}

// scheduleAutoRead models "recipient already has the room open, so the
// message is read the instant it arrives". The delay lets the sender's
// client render first; membership is re-checked at fire time because the
// room may have emptied meanwhile.
func (o *MessageOps) scheduleAutoRead(roomID, messageID, senderID string) {
	time.AfterFunc(o.autoReadDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var readBy []string
		for _, uid := range o.presence.ActiveUsers(roomID) {
			if uid == senderID {
				continue
			}
			modified, err := o.msgs.AppendReadReceipts(ctx, []string{messageID}, uid, o.clock())
			if err != nil {
				logger.Errorf("[AUTO_READ] append receipt msg=%s reader=%s err=%v", messageID, uid, err)
				continue
			}
			if len(modified) > 0 {
				readBy = append(readBy, uid)
			}
		}
		if len(readBy) == 0 {
			return
		}

		o.emit.ToUser(senderID, EvtMessagesRead, MessagesReadPayload{
			RoomID:     roomID,
			MessageIDs: []string{messageID},
			ReadBy:     readBy,
			Timestamp:  o.clock(),
		})
		logger.Infof("[AUTO_READ] message %s marked read by %d active users", messageID, len(readBy))
	})
}

// Edit replaces content on the caller's own, non-deleted message.
func (o *MessageOps) Edit(ctx context.Context, c *Client, p EditMessagePayload) error {
	if !c.Limiter.Check(EvtEditMessage) {
		return errs.ErrRateLimited.WithMsg("Edit rate limit exceeded")
	}

	content := strings.TrimSpace(p.Content)
	if p.MessageID == "" || content == "" {
		return errs.ErrValidation.WithMsg("Edited message cannot be empty")
	}
	if utf8.RuneCountInString(content) > model.MaxContentLen {
		return errs.ErrValidation.WithMsg("Message is too long")
	}

	msg, err := o.msgs.FindByID(ctx, p.MessageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return errs.ErrMessageNotFound
	}
	if err := o.guard.VerifyMessageOwnership(msg, c.UserID); err != nil {
		logger.Warnf("[EDIT] %s tried to edit %s owned by %s", c.UserID, p.MessageID, msg.SenderID.ID)
		return errs.ErrNotAuthorized.WithMsg("Only sender can edit message")
	}
	if msg.IsDeleted {
		return errs.ErrValidation.WithMsg("Cannot edit a deleted message")
	}

	room, err := o.rooms.FindByID(ctx, msg.RoomID)
	if err != nil {
		return err
	}
	if err := o.guard.Verify(room, c.UserID, c.Role); err != nil {
		return err
	}

	now := o.clock()
	ok, err := o.msgs.UpdateContent(ctx, msg.ID, content, now)
	if err != nil {
		return err
	}
	if !ok {
		// Lost a race with a concurrent delete.
		return errs.ErrValidation.WithMsg("Cannot edit a deleted message")
	}

	o.emit.ToRoom(msg.RoomID, EvtMessageEdited, MessageEditedPayload{
		MessageID: msg.ID, Content: content, EditedAt: now,
	})
	logger.Infof("[EDIT] user %s edited message %s", c.UserID, msg.ID)
	return nil
}

// Delete soft-deletes: the sender may always delete their own message,
// elevated roles may delete anyone's. The record stays for audit.
func (o *MessageOps) Delete(ctx context.Context, c *Client, p DeleteMessagePayload) error {
	if !c.Limiter.Check(EvtDeleteMessage) {
		return errs.ErrRateLimited.WithMsg("Delete rate limit exceeded")
	}
	if p.MessageID == "" {
		return errs.ErrValidation.WithMsg("Message ID required")
	}

	msg, err := o.msgs.FindByID(ctx, p.MessageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return errs.ErrMessageNotFound
	}
	if err := o.guard.VerifyMessageOwnership(msg, c.UserID); err != nil && !IsElevated(c.Role) {
		logger.Warnf("[DELETE] %s (%s) tried to delete %s owned by %s", c.UserID, c.Role, p.MessageID, msg.SenderID.ID)
		return err
	}

	room, err := o.rooms.FindByID(ctx, msg.RoomID)
	if err != nil {
		return err
	}
	if err := o.guard.Verify(room, c.UserID, c.Role); err != nil {
		return err
	}

	now := o.clock()
	ok, err := o.msgs.SoftDelete(ctx, msg.ID, c.UserID, now)
	if err != nil {
		return err
	}
	if !ok {
		// Already deleted; the marker is immutable.
		return errs.ErrValidation.WithMsg("Message already deleted")
	}

	o.emit.ToRoom(msg.RoomID, EvtMessageDeleted, MessageDeletedPayload{
		MessageID: msg.ID, DeletedAt: now,
	})
	logger.Infof("[DELETE] user %s deleted message %s", c.UserID, msg.ID)
	return nil
}

// React adds one (emoji, user) pair; repeats are silent no-ops.
func (o *MessageOps) React(ctx context.Context, c *Client, p ReactionPayload) error {
	if !c.Limiter.Check(EvtAddReaction) {
		return errs.ErrRateLimited.WithMsg("Reaction rate limit exceeded")
	}
	if err := validateReaction(p); err != nil {
		return err
	}

	msg, err := o.loadMessageChecked(ctx, c, p.MessageID)
	if err != nil {
		return err
	}

	added, err := o.msgs.AddReaction(ctx, msg.ID, model.Reaction{Emoji: p.Emoji, UserID: c.UserID})
	if err != nil {
		return err
	}
	if !added {
		return nil
	}

	o.emit.ToRoom(msg.RoomID, EvtReactionAdded, ReactionAddedPayload{
		MessageID:     msg.ID,
		Emoji:         p.Emoji,
		UserID:        c.UserID,
		ReactionCount: msg.ReactionCount(p.Emoji) + 1,
	})
	return nil
}

// Unreact removes the pair if present; absence is a silent no-op.
func (o *MessageOps) Unreact(ctx context.Context, c *Client, p ReactionPayload) error {
	if err := validateReaction(p); err != nil {
		return err
	}

	msg, err := o.loadMessageChecked(ctx, c, p.MessageID)
	if err != nil {
		return err
	}

	removed, err := o.msgs.RemoveReaction(ctx, msg.ID, model.Reaction{Emoji: p.Emoji, UserID: c.UserID})
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	o.emit.ToRoom(msg.RoomID, EvtReactionRemoved, ReactionRemovedPayload{
		MessageID: msg.ID, Emoji: p.Emoji, UserID: c.UserID,
	})
	return nil
}

func validateReaction(p ReactionPayload) error {
	if p.MessageID == "" || p.Emoji == "" {
		return errs.ErrValidation.WithMsg("Invalid reaction data")
	}
	// Grapheme clusters, not runes: ZWJ sequences and skin-tone modifiers
	// are one emoji even when they span several runes.
	if uniseg.GraphemeClusterCount(p.Emoji) != 1 {
		return errs.ErrValidation.WithMsg("Emoji must be single character")
	}
	return nil
}

// loadMessageChecked fetches the message and verifies room access for the
// caller before any mutation.
func (o *MessageOps) loadMessageChecked(ctx context.Context, c *Client, messageID string) (*model.Message, error) {
	msg, err := o.msgs.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, errs.ErrMessageNotFound
	}
	room, err := o.rooms.FindByID(ctx, msg.RoomID)
	if err != nil {
		return nil, err
	}
	if err := o.guard.Verify(room, c.UserID, c.Role); err != nil {
		return nil, err
	}
	return msg, nil
}

// senderInfo prefers the populated participant snapshot when the room
// carries one; otherwise the connection's identity fills in.
func (o *MessageOps) senderInfo(room *model.Room, c *Client) SenderInfo {
	for _, p := range room.Participants {
		if p.UserID.ID == c.UserID && p.UserID.Name != "" {
			return SenderInfo{
				ID:     p.UserID.ID,
				Name:   p.UserID.Name,
				Email:  p.UserID.Email,
				Avatar: p.UserID.Avatar,
				Role:   p.UserID.Role,
			}
		}
	}
	return SenderInfo{ID: c.UserID, Role: c.Role}
}
