package model

import (
	"time"
)

const RoomTableName = "rooms"

// Room conversation types.
const (
	RoomAdminUser = "ADMIN_USER" // tenant staff <-> end user
	RoomGroup     = "GROUP"
	RoomDirect    = "DIRECT"
	RoomAdminChat = "ADMIN_CHAT" // platform admin <-> tenant admin
)

// Participant roles inside a room, distinct from platform roles.
const (
	ParticipantOwner  = "OWNER"
	ParticipantAdmin  = "ADMIN"
	ParticipantMember = "MEMBER"
)

// Participant is a room-scoped membership record.
type Participant struct {
	UserID   UserRef   `bson:"userId" json:"userId"`
	JoinedAt time.Time `bson:"joinedAt" json:"joinedAt"`
	Role     string    `bson:"role" json:"role"` // OWNER/ADMIN/MEMBER
}

type Room struct {
	ID              string           `bson:"_id" json:"_id"`
	Name            string           `bson:"name" json:"name"`
	Type            string           `bson:"type" json:"type"`
	TenantID        string           `bson:"tenantId,omitempty" json:"tenantId,omitempty"`
	Participants    []Participant    `bson:"participants" json:"participants"`
	LastMessage     string           `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	LastMessageTime *time.Time       `bson:"lastMessageTime,omitempty" json:"lastMessageTime,omitempty"`
	UnreadCount     map[string]int64 `bson:"unreadCount,omitempty" json:"unreadCount,omitempty"`
	Avatar          string           `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Description     string           `bson:"description,omitempty" json:"description,omitempty"`
	IsArchived      bool             `bson:"isArchived" json:"isArchived"`
	CreatedAt       time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time        `bson:"updatedAt" json:"updatedAt"`
}

// TenantRequired reports whether this room type must carry a tenant.
// ADMIN_CHAT and DIRECT rooms are tenant-free.
func TenantRequired(roomType string) bool {
	return roomType != RoomAdminChat && roomType != RoomDirect
}

// HasParticipant reports whether userID appears in the participant list.
// Participant userIds may be stored plain or populated; UserRef absorbs both.
func (r *Room) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p.UserID.ID != "" && p.UserID.ID == userID {
			return true
		}
	}
	return false
}

// ParticipantIDs returns the normalized ids of all participants,
// optionally excluding one user.
func (r *Room) ParticipantIDs(exclude string) []string {
	out := make([]string, 0, len(r.Participants))
	for _, p := range r.Participants {
		id := p.UserID.ID
		if id == "" || id == exclude {
			continue
		}
		out = append(out, id)
	}
	return out
}

// CounterpartOf returns the other participant of a two-party room.
func (r *Room) CounterpartOf(userID string) (Participant, bool) {
	for _, p := range r.Participants {
		if p.UserID.ID != "" && p.UserID.ID != userID {
			return p, true
		}
	}
	return Participant{}, false
}
