package chat

import (
	"errors"
	"testing"

	"TChat/module/chat/model"
	"TChat/tools/errs"
)

func TestVerifyNilRoom(t *testing.T) {
	g := NewRoomAccessGuard()
	if err := g.Verify(nil, "u1", RoleUser); !errors.Is(err, errs.ErrRoomNotFound) {
		t.Fatalf("want RoomNotFound, got %v", err)
	}
}

func TestVerifyMember(t *testing.T) {
	g := NewRoomAccessGuard()
	room := groupRoom("r1", "u1", "u2")
	if err := g.Verify(room, "u1", RoleUser); err != nil {
		t.Fatalf("member should pass: %v", err)
	}
}

func TestVerifyNonMember(t *testing.T) {
	g := NewRoomAccessGuard()
	room := groupRoom("r1", "u1", "u2")
	if err := g.Verify(room, "intruder", RoleUser); !errors.Is(err, errs.ErrNotAuthorized) {
		t.Fatalf("want NotAuthorized, got %v", err)
	}
}

func TestVerifyElevatedBypassesMembership(t *testing.T) {
	g := NewRoomAccessGuard()
	room := groupRoom("r1", "u1", "u2")
	for _, role := range []string{RoleSuperAdmin, RoleAdmin, RoleTenantAdmin} {
		if err := g.Verify(room, "support-agent", role); err != nil {
			t.Fatalf("role %s should bypass membership: %v", role, err)
		}
	}
}

func TestVerifyPopulatedParticipant(t *testing.T) {
	g := NewRoomAccessGuard()
	room := groupRoom("r1")
	room.Participants = append(room.Participants, model.Participant{
		UserID: model.UserRef{ID: "u9", Name: "Ada", Email: "ada@example.com"},
		Role:   model.ParticipantMember,
	})
	if err := g.Verify(room, "u9", RoleUser); err != nil {
		t.Fatalf("populated participant entries must match by id: %v", err)
	}
}

func TestVerifyMessageOwnership(t *testing.T) {
	g := NewRoomAccessGuard()

	if err := g.VerifyMessageOwnership(nil, "u1"); !errors.Is(err, errs.ErrMessageNotFound) {
		t.Fatalf("want MessageNotFound, got %v", err)
	}

	msg := &model.Message{ID: "m1", SenderID: model.PlainUser("u1")}
	if err := g.VerifyMessageOwnership(msg, "u1"); err != nil {
		t.Fatalf("owner should pass: %v", err)
	}
	if err := g.VerifyMessageOwnership(msg, "u2"); !errors.Is(err, errs.ErrNotAuthorized) {
		t.Fatalf("want NotAuthorized, got %v", err)
	}
}
