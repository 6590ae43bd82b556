package model

import (
	"time"
)

const MsgTableName = "messages"

// Message content kinds.
const (
	MsgText   = "text"
	MsgImage  = "image"
	MsgVideo  = "video"
	MsgAudio  = "audio"
	MsgFile   = "file"
	MsgSystem = "system"
)

// MaxContentLen caps message and edit payloads, in characters.
const MaxContentLen = 5000

// Media is an attachment snapshot stored on the message.
type Media struct {
	Type      string  `bson:"type" json:"type"` // image/video/audio/file
	URL       string  `bson:"url" json:"url"`
	MimeType  string  `bson:"mimeType,omitempty" json:"mimeType,omitempty"`
	Size      int64   `bson:"size,omitempty" json:"size,omitempty"`
	Duration  float64 `bson:"duration,omitempty" json:"duration,omitempty"` // seconds, audio/video
	Thumbnail string  `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
}

// ReadReceipt records that a user read the message. At most one entry per
// user; appends are guarded at the store layer.
type ReadReceipt struct {
	UserID string    `bson:"userId" json:"userId"`
	ReadAt time.Time `bson:"readAt" json:"readAt"`
}

// Reaction is one (emoji, user) pair; duplicates are never stored.
type Reaction struct {
	Emoji  string `bson:"emoji" json:"emoji"`
	UserID string `bson:"userId" json:"userId"`
}

type Message struct {
	ID        string  `bson:"_id" json:"_id"`
	RoomID    string  `bson:"roomId" json:"roomId"`
	SenderID  UserRef `bson:"senderId" json:"senderId"`
	Content   string  `bson:"content" json:"content"`
	Media     []Media `bson:"media,omitempty" json:"media,omitempty"`
	Type      string  `bson:"type" json:"type"`
	Status    Status  `bson:"status" json:"status"`

	SentAt      time.Time  `bson:"sentAt" json:"sentAt"`
	DeliveredAt *time.Time `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`

	ReadBy []ReadReceipt `bson:"readBy" json:"readBy"`

	IsEdited bool       `bson:"isEdited" json:"isEdited"`
	EditedAt *time.Time `bson:"editedAt,omitempty" json:"editedAt,omitempty"`

	IsDeleted bool       `bson:"isDeleted" json:"isDeleted"`
	DeletedAt *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	DeletedBy string     `bson:"deletedBy,omitempty" json:"deletedBy,omitempty"`

	ReplyTo string `bson:"replyTo,omitempty" json:"replyTo,omitempty"`

	Reactions []Reaction `bson:"reactions" json:"reactions"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ReadByUser reports whether userID already has a read entry.
func (m *Message) ReadByUser(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// HasReaction reports whether (emoji, userID) is already present.
func (m *Message) HasReaction(emoji, userID string) bool {
	for _, r := range m.Reactions {
		if r.Emoji == emoji && r.UserID == userID {
			return true
		}
	}
	return false
}

// ReactionCount counts entries for one emoji.
func (m *Message) ReactionCount(emoji string) int {
	n := 0
	for _, r := range m.Reactions {
		if r.Emoji == emoji {
			n++
		}
	}
	return n
}
