package chat

import (
	"reflect"
	"testing"
)

func TestRegistryOnlineUsersMultiDevice(t *testing.T) {
	r := NewPresenceRegistry()
	phone := testClient("c1", "alice", RoleUser)
	laptop := testClient("c2", "alice", RoleUser)
	other := testClient("c3", "bob", RoleUser)

	r.AddClient(phone)
	r.AddClient(laptop)
	r.AddClient(other)

	if got := r.OnlineUsers(); !reflect.DeepEqual(got, []string{"alice", "bob"}) {
		t.Fatalf("online users = %v", got)
	}

	// Dropping one device keeps the user online.
	r.RemoveClient("c1")
	if got := r.OnlineUsers(); !reflect.DeepEqual(got, []string{"alice", "bob"}) {
		t.Fatalf("after one device drop, online users = %v", got)
	}

	r.RemoveClient("c2")
	if got := r.OnlineUsers(); !reflect.DeepEqual(got, []string{"bob"}) {
		t.Fatalf("after last device drop, online users = %v", got)
	}
}

func TestRegistryJoinLeaveRoom(t *testing.T) {
	r := NewPresenceRegistry()
	alice := testClient("c1", "alice", RoleUser)
	bob := testClient("c2", "bob", RoleUser)
	r.AddClient(alice)
	r.AddClient(bob)

	r.JoinRoom(alice, "room-1")
	r.JoinRoom(bob, "room-1")

	if got := r.ActiveUsers("room-1"); !reflect.DeepEqual(got, []string{"alice", "bob"}) {
		t.Fatalf("active users = %v", got)
	}
	if !r.IsActiveInRoom("room-1", "alice") {
		t.Fatal("alice should be active in room-1")
	}

	r.LeaveRoom(alice, "room-1")
	if r.IsActiveInRoom("room-1", "alice") {
		t.Fatal("alice left; must not be active")
	}
	if got := r.ActiveUsers("room-1"); !reflect.DeepEqual(got, []string{"bob"}) {
		t.Fatalf("active users after leave = %v", got)
	}
}

func TestRegistryRoomActiveSurvivesOtherDevice(t *testing.T) {
	r := NewPresenceRegistry()
	phone := testClient("c1", "alice", RoleUser)
	laptop := testClient("c2", "alice", RoleUser)
	r.AddClient(phone)
	r.AddClient(laptop)
	r.JoinRoom(phone, "room-1")
	r.JoinRoom(laptop, "room-1")

	// One device disconnects; the other still has the room open.
	_, activeLeft, _ := r.RemoveClient("c1")
	if len(activeLeft) != 0 {
		t.Fatalf("user still present via laptop, activeLeft = %v", activeLeft)
	}
	if !r.IsActiveInRoom("room-1", "alice") {
		t.Fatal("alice must stay active through her second device")
	}

	_, activeLeft, _ = r.RemoveClient("c2")
	if !reflect.DeepEqual(activeLeft, []string{"room-1"}) {
		t.Fatalf("last device drop should report the vacated room, got %v", activeLeft)
	}
}

func TestRegistryRemoveClientReportsTyping(t *testing.T) {
	r := NewPresenceRegistry()
	alice := testClient("c1", "alice", RoleUser)
	r.AddClient(alice)
	r.JoinRoom(alice, "room-1")
	r.SetTyping("room-1", "alice", true)

	_, _, typingLeft := r.RemoveClient("c1")
	if !reflect.DeepEqual(typingLeft, []string{"room-1"}) {
		t.Fatalf("typingLeft = %v", typingLeft)
	}
}

func TestRegistryRemoveUnknownConn(t *testing.T) {
	r := NewPresenceRegistry()
	c, activeLeft, typingLeft := r.RemoveClient("nope")
	if c != nil || activeLeft != nil || typingLeft != nil {
		t.Fatalf("unknown conn should be a no-op, got %v %v %v", c, activeLeft, typingLeft)
	}
}

func TestRegistryUserClients(t *testing.T) {
	r := NewPresenceRegistry()
	phone := testClient("c1", "alice", RoleUser)
	laptop := testClient("c2", "alice", RoleUser)
	r.AddClient(phone)
	r.AddClient(laptop)

	if got := len(r.UserClients("alice")); got != 2 {
		t.Fatalf("want both devices, got %d", got)
	}
	if got := len(r.UserClients("nobody")); got != 0 {
		t.Fatalf("unknown user should have no clients, got %d", got)
	}
}
