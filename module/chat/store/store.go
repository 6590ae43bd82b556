package store

import (
	"context"
	"time"

	"TChat/module/chat/model"
)

// RoomStore is the persistence surface the gateway needs for rooms.
// Implementations must make each mutating call atomic at the document
// level; the gateway never does read-modify-write on shared counters.
type RoomStore interface {
	// FindByID returns (nil, nil) when the room does not exist.
	FindByID(ctx context.Context, id string) (*model.Room, error)

	// SetLastMessage updates the room's last-message reference and timestamp.
	SetLastMessage(ctx context.Context, roomID, messageID string, at time.Time) error

	// IncrementUnread bumps the per-user unread counters by delta, one
	// field-level increment per user.
	IncrementUnread(ctx context.Context, roomID string, userIDs []string, delta int64) error

	// ClearUnread deletes the user's unread counter entry. No-op if absent.
	ClearUnread(ctx context.Context, roomID, userID string) error
}

// MessageStore is the persistence surface for messages. Guarded updates
// ($push-if-absent, filtered updateMany) carry the idempotency the
// protocol promises for reactions and read receipts.
type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error

	// FindByID returns (nil, nil) when the message does not exist.
	FindByID(ctx context.Context, id string) (*model.Message, error)

	// UpdateContent replaces content and sets the edit marker. Fails the
	// match when the message is soft-deleted; returns false in that case.
	UpdateContent(ctx context.Context, id, content string, editedAt time.Time) (bool, error)

	// SoftDelete sets the delete marker. Returns false when already deleted.
	SoftDelete(ctx context.Context, id, byUserID string, at time.Time) (bool, error)

	// AddReaction appends (emoji, user) if not already present.
	// Returns false when the pair already existed.
	AddReaction(ctx context.Context, id string, r model.Reaction) (bool, error)

	// RemoveReaction pulls (emoji, user). Returns false when absent.
	RemoveReaction(ctx context.Context, id string, r model.Reaction) (bool, error)

	// AppendReadReceipts appends a read entry for reader to every listed
	// message where reader is not the sender, has no prior entry, and the
	// message is not soft-deleted; delivery status advances to read.
	// Returns the ids actually modified.
	AppendReadReceipts(ctx context.Context, ids []string, readerID string, at time.Time) ([]string, error)

	// FindUnreadInRoom lists messages in roomID not sent by userID, not
	// soft-deleted, and without a read entry for userID.
	FindUnreadInRoom(ctx context.Context, roomID, userID string) ([]*model.Message, error)

	// SenderOf maps each listed message id to its sender id.
	SenderOf(ctx context.Context, ids []string) (map[string]string, error)
}
