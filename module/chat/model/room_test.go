package model

import (
	"reflect"
	"testing"
)

func testRoom() *Room {
	return &Room{
		ID:   "r1",
		Type: RoomGroup,
		Participants: []Participant{
			{UserID: PlainUser("alice"), Role: ParticipantOwner},
			{UserID: UserRef{ID: "bob", Name: "Bob"}, Role: ParticipantMember},
		},
	}
}

func TestHasParticipant(t *testing.T) {
	r := testRoom()
	if !r.HasParticipant("alice") || !r.HasParticipant("bob") {
		t.Fatal("both members should match, plain or populated")
	}
	if r.HasParticipant("carol") {
		t.Fatal("carol is not a member")
	}
	if r.HasParticipant("") {
		t.Fatal("empty id never matches")
	}
}

func TestParticipantIDs(t *testing.T) {
	r := testRoom()
	if got := r.ParticipantIDs(""); !reflect.DeepEqual(got, []string{"alice", "bob"}) {
		t.Fatalf("ids = %v", got)
	}
	if got := r.ParticipantIDs("alice"); !reflect.DeepEqual(got, []string{"bob"}) {
		t.Fatalf("ids excluding alice = %v", got)
	}
}

func TestCounterpartOf(t *testing.T) {
	r := testRoom()
	p, ok := r.CounterpartOf("alice")
	if !ok || p.UserID.ID != "bob" {
		t.Fatalf("counterpart = %+v ok=%v", p, ok)
	}
	if _, ok := r.CounterpartOf("bob"); !ok {
		t.Fatal("counterpart lookup should work from either side")
	}

	solo := &Room{Participants: []Participant{{UserID: PlainUser("alice")}}}
	if _, ok := solo.CounterpartOf("alice"); ok {
		t.Fatal("a one-party room has no counterpart")
	}
}

func TestTenantRequired(t *testing.T) {
	if !TenantRequired(RoomGroup) || !TenantRequired(RoomAdminUser) {
		t.Fatal("group and admin-user rooms are tenant scoped")
	}
	if TenantRequired(RoomDirect) || TenantRequired(RoomAdminChat) {
		t.Fatal("direct and admin-chat rooms are tenant free")
	}
}
