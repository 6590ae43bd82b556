package chat

import (
	"encoding/json"
	"time"

	"TChat/module/chat/model"
)

// Inbound event names (client -> server).
const (
	EvtJoinRoom         = "join_room"
	EvtLeaveRoom        = "leave_room"
	EvtSendMessage      = "send_message"
	EvtStartTyping      = "start_typing"
	EvtStopTyping       = "stop_typing"
	EvtMarkRoomRead     = "mark_room_read"
	EvtMarkMessagesRead = "mark_messages_read"
	EvtAddReaction      = "add_reaction"
	EvtRemoveReaction   = "remove_reaction"
	EvtEditMessage      = "edit_message"
	EvtDeleteMessage    = "delete_message"
)

// Outbound event names (server -> client).
const (
	EvtAuthError       = "auth_error"
	EvtError           = "error"
	EvtOnlineUsers     = "online_users"
	EvtRoomUsersOnline = "room_users_online"
	EvtUserJoined      = "user_joined"
	EvtUserLeft        = "user_left"
	EvtMessageReceived = "message_received"
	EvtMessagesRead    = "messages_read"
	EvtUserTyping      = "user_typing"
	EvtReactionAdded   = "reaction_added"
	EvtReactionRemoved = "reaction_removed"
	EvtMessageEdited   = "message_edited"
	EvtMessageDeleted  = "message_deleted"
	EvtUnreadCount     = "unread_count_updated"
	EvtRoomUpdated     = "room_updated"
	EvtNewAdminMessage = "new_admin_message"
)

// Frame is the wire envelope in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func ParseFrameJSON(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Event marshals an outbound frame. Payloads are typed structs below;
// marshaling them cannot fail, so errors are swallowed into an empty body.
func Event(name string, payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	out, _ := json.Marshal(Frame{Event: name, Data: data})
	return out
}

// ---- inbound payloads ----

type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type SendMessagePayload struct {
	RoomID  string        `json:"roomId"`
	Content string        `json:"content"`
	Type    string        `json:"type,omitempty"`
	Media   []model.Media `json:"media,omitempty"`
	ReplyTo string        `json:"replyTo,omitempty"`
}

type MarkMessagesReadPayload struct {
	RoomID     string   `json:"roomId"`
	MessageIDs []string `json:"messageIds"`
}

type ReactionPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

type EditMessagePayload struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

type DeleteMessagePayload struct {
	MessageID string `json:"messageId"`
}

// ---- outbound payloads ----

type ErrorPayload struct {
	Message string `json:"message"`
}

type OnlineUsersPayload struct {
	Users     []string  `json:"users"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

type UserEventPayload struct {
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// SenderInfo is the populated sender snapshot on message payloads.
type SenderInfo struct {
	ID     string `json:"_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role,omitempty"`
}

// MessagePayload is the full message body fanned out on message_received.
// All devices converge on this authoritative copy; it supersedes any
// client-side optimistic echo.
type MessagePayload struct {
	ID         string              `json:"_id"`
	RoomID     string              `json:"roomId"`
	Content    string              `json:"content"`
	Media      []model.Media       `json:"media,omitempty"`
	Type       string              `json:"type"`
	SenderID   string              `json:"senderId"`
	Sender     SenderInfo          `json:"sender"`
	ReplyTo    string              `json:"replyTo,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	Status     model.Status        `json:"status"`
	ReadBy     []model.ReadReceipt `json:"readBy"`
	Reactions  []model.Reaction    `json:"reactions"`
	IsEdited   bool                `json:"isEdited"`
	DeletedAt  *time.Time          `json:"deletedAt"`
	Optimistic bool                `json:"optimistic"`
}

type MessagesReadPayload struct {
	RoomID     string    `json:"roomId"`
	MessageIDs []string  `json:"messageIds"`
	ReadBy     []string  `json:"readBy"`
	Timestamp  time.Time `json:"timestamp"`
}

type TypingPayload struct {
	UserID    string    `json:"userId"`
	RoomID    string    `json:"roomId"`
	IsTyping  bool      `json:"isTyping"`
	Timestamp time.Time `json:"timestamp"`
}

type ReactionAddedPayload struct {
	MessageID     string `json:"messageId"`
	Emoji         string `json:"emoji"`
	UserID        string `json:"userId"`
	ReactionCount int    `json:"reactionCount"`
}

type ReactionRemovedPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	UserID    string `json:"userId"`
}

type MessageEditedPayload struct {
	MessageID string    `json:"messageId"`
	Content   string    `json:"content"`
	EditedAt  time.Time `json:"editedAt"`
}

type MessageDeletedPayload struct {
	MessageID string    `json:"messageId"`
	DeletedAt time.Time `json:"deletedAt"`
}

type UnreadCountPayload struct {
	RoomID      string `json:"roomId"`
	UnreadCount int64  `json:"unreadCount"`
}

type RoomUpdatedPayload struct {
	RoomID          string          `json:"roomId"`
	LastMessage     *MessagePayload `json:"lastMessage"`
	LastMessageTime time.Time       `json:"lastMessageTime"`
}

type NewAdminMessagePayload struct {
	RoomID  string          `json:"roomId"`
	Message *MessagePayload `json:"message"`
}

// buildMessagePayload shapes a persisted message for the wire, attaching
// the populated sender snapshot.
func buildMessagePayload(m *model.Message, sender SenderInfo) *MessagePayload {
	readBy := m.ReadBy
	if readBy == nil {
		readBy = []model.ReadReceipt{}
	}
	reactions := m.Reactions
	if reactions == nil {
		reactions = []model.Reaction{}
	}
	return &MessagePayload{
		ID:        m.ID,
		RoomID:    m.RoomID,
		Content:   m.Content,
		Media:     m.Media,
		Type:      m.Type,
		SenderID:  m.SenderID.ID,
		Sender:    sender,
		ReplyTo:   m.ReplyTo,
		CreatedAt: m.CreatedAt,
		Status:    m.Status,
		ReadBy:    readBy,
		Reactions: reactions,
		IsEdited:  m.IsEdited,
		DeletedAt: m.DeletedAt,
	}
}
