package chat

import (
	"TChat/logger"
	"TChat/module/chat/model"
	"TChat/tools/errs"
)

// Platform roles with universal room access. These bypass membership
// checks so platform operators can reach any room for moderation/support.
const (
	RoleSuperAdmin  = "SUPER_ADMIN"
	RoleAdmin       = "ADMIN"
	RoleTenantAdmin = "TENANT_ADMIN"
	RoleUser        = "USER"
)

var elevatedRoles = map[string]struct{}{
	RoleSuperAdmin:  {},
	RoleAdmin:       {},
	RoleTenantAdmin: {},
}

func IsElevated(role string) bool {
	_, ok := elevatedRoles[role]
	return ok
}

// RoomAccessGuard answers "may this user act on this room / message".
type RoomAccessGuard struct{}

func NewRoomAccessGuard() *RoomAccessGuard { return &RoomAccessGuard{} }

// Verify fails with RoomNotFound when room is nil, passes elevated roles
// unconditionally, and otherwise requires a participant entry. The
// participant comparison goes through UserRef.ID so it is agnostic to
// plain vs populated storage.
func (g *RoomAccessGuard) Verify(room *model.Room, userID, role string) error {
	if room == nil {
		logger.Warnf("[ACCESS] room not found user=%s role=%s", userID, role)
		return errs.ErrRoomNotFound
	}
	if IsElevated(role) {
		return nil
	}
	if !room.HasParticipant(userID) {
		logger.Warnf("[ACCESS] user %s (%s) is not a member of room %s", userID, role, room.ID)
		return errs.ErrNotAuthorized
	}
	return nil
}

// VerifyMessageOwnership allows only the original sender. Elevated roles
// get a separate allowance for deletion, never for editing; that check
// lives at the delete call site.
func (g *RoomAccessGuard) VerifyMessageOwnership(message *model.Message, userID string) error {
	if message == nil {
		return errs.ErrMessageNotFound
	}
	if message.SenderID.ID != userID {
		return errs.ErrNotAuthorized.WithMsg("Not authorized to modify this message")
	}
	return nil
}
