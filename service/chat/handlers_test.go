package chat

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"TChat/global"
	"TChat/tools/errs"
)

func newTestServer(t *testing.T, env *opsEnv, cfg *global.AppConfig) *Server {
	t.Helper()
	if cfg == nil {
		cfg = &global.AppConfig{PingInterval: 25 * time.Second, PongTimeout: 75 * time.Second}
	}
	session := NewSessionLifecycle(env.registry, env.emit, nil, testJWTOpts(), time.Minute)
	return NewServer(cfg, env.registry, env.emit, session, env.ops, env.receipts, env.guard, env.rooms)
}

func TestHandleJoinRoom(t *testing.T) {
	env := newOpsEnv()
	env.ops.autoReadDelay = time.Hour // keep the auto-read timer out of this test
	env.rooms.Put(groupRoom("r1", "alice", "bob"))
	alice := testClient("c1", "alice", RoleUser)
	bob := testClient("c2", "bob", RoleUser)
	env.registry.AddClient(alice)
	env.registry.AddClient(bob)
	srv := newTestServer(t, env, nil)

	// Bob has two unread messages from alice before he opens the room.
	mustSend(t, env, alice, SendMessagePayload{RoomID: "r1", Content: "one"})
	mustSend(t, env, alice, SendMessagePayload{RoomID: "r1", Content: "two"})
	env.emit.reset()

	if err := srv.handleJoinRoom(context.Background(), bob, RoomPayload{RoomID: "r1"}); err != nil {
		t.Fatalf("join: %v", err)
	}

	if !env.registry.IsActiveInRoom("r1", "bob") {
		t.Fatal("join must mark bob active")
	}

	// Join implies viewing: counter cleared, receipts sent to alice.
	room, _ := env.rooms.FindByID(context.Background(), "r1")
	if _, ok := room.UnreadCount["bob"]; ok {
		t.Fatal("unread counter should be cleared on join")
	}
	receipts := env.emit.byEvent(EvtMessagesRead)
	if len(receipts) != 1 || receipts[0].Target != "alice" {
		t.Fatalf("receipts = %+v", receipts)
	}

	if users := env.emit.byEvent(EvtRoomUsersOnline); len(users) != 1 {
		t.Fatalf("room_users_online = %+v", users)
	}
	joined := env.emit.byEvent(EvtUserJoined)
	if len(joined) != 1 || joined[0].Payload.(UserEventPayload).UserID != "bob" {
		t.Fatalf("user_joined = %+v", joined)
	}
}

func TestHandleJoinRoomDenied(t *testing.T) {
	env := newOpsEnv()
	env.rooms.Put(groupRoom("r1", "alice"))
	mallory := testClient("c1", "mallory", RoleUser)
	env.registry.AddClient(mallory)
	srv := newTestServer(t, env, nil)

	err := srv.handleJoinRoom(context.Background(), mallory, RoomPayload{RoomID: "r1"})
	if !errors.Is(err, errs.ErrNotAuthorized) {
		t.Fatalf("want NotAuthorized, got %v", err)
	}
	if env.registry.IsActiveInRoom("r1", "mallory") {
		t.Fatal("denied join must not register presence")
	}
}

func TestHandleJoinRoomMissing(t *testing.T) {
	env := newOpsEnv()
	alice := testClient("c1", "alice", RoleUser)
	srv := newTestServer(t, env, nil)

	if err := srv.handleJoinRoom(context.Background(), alice, RoomPayload{}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("blank room id, got %v", err)
	}
	if err := srv.handleJoinRoom(context.Background(), alice, RoomPayload{RoomID: "nope"}); !errors.Is(err, errs.ErrRoomNotFound) {
		t.Fatalf("unknown room, got %v", err)
	}
}

func TestHandleLeaveRoom(t *testing.T) {
	env := newOpsEnv()
	env.rooms.Put(groupRoom("r1", "alice"))
	alice := testClient("c1", "alice", RoleUser)
	env.registry.AddClient(alice)
	srv := newTestServer(t, env, nil)

	if err := srv.handleJoinRoom(context.Background(), alice, RoomPayload{RoomID: "r1"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	env.emit.reset()

	if err := srv.handleLeaveRoom(context.Background(), alice, RoomPayload{RoomID: "r1"}); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if env.registry.IsActiveInRoom("r1", "alice") {
		t.Fatal("leave must clear presence")
	}
	left := env.emit.byEvent(EvtUserLeft)
	if len(left) != 1 || left[0].Payload.(UserEventPayload).UserID != "alice" {
		t.Fatalf("user_left = %+v", left)
	}
}

func TestHandleTyping(t *testing.T) {
	env := newOpsEnv()
	env.rooms.Put(groupRoom("r1", "alice", "bob"))
	alice := testClient("c1", "alice", RoleUser)
	env.registry.AddClient(alice)
	srv := newTestServer(t, env, nil)

	if err := srv.handleStartTyping(context.Background(), alice, RoomPayload{RoomID: "r1"}); err != nil {
		t.Fatalf("start typing: %v", err)
	}
	typing := env.emit.byEvent(EvtUserTyping)
	if len(typing) != 1 || !typing[0].Payload.(TypingPayload).IsTyping {
		t.Fatalf("typing = %+v", typing)
	}

	if err := srv.handleStopTyping(context.Background(), alice, RoomPayload{RoomID: "r1"}); err != nil {
		t.Fatalf("stop typing: %v", err)
	}
	typing = env.emit.byEvent(EvtUserTyping)
	if len(typing) != 2 || typing[1].Payload.(TypingPayload).IsTyping {
		t.Fatalf("typing after stop = %+v", typing)
	}
}

func TestHandleTypingRateLimited(t *testing.T) {
	env := newOpsEnv()
	env.rooms.Put(groupRoom("r1", "alice"))
	alice := testClient("c1", "alice", RoleUser)
	srv := newTestServer(t, env, nil)

	for i := 0; i < 10; i++ {
		if err := srv.handleStartTyping(context.Background(), alice, RoomPayload{RoomID: "r1"}); err != nil {
			t.Fatalf("start typing %d: %v", i+1, err)
		}
	}
	err := srv.handleStartTyping(context.Background(), alice, RoomPayload{RoomID: "r1"})
	if !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("11th typing update should be limited, got %v", err)
	}

	// stop_typing carries no limiter; clearing state must always work.
	if err := srv.handleStopTyping(context.Background(), alice, RoomPayload{RoomID: "r1"}); err != nil {
		t.Fatalf("stop typing: %v", err)
	}
}

func TestCheckOrigin(t *testing.T) {
	env := newOpsEnv()
	srv := newTestServer(t, env, &global.AppConfig{
		CORSOrigins: []string{"https://app.example.com"},
	})

	req := func(origin string) *http.Request {
		r := &http.Request{Header: http.Header{}}
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	if !srv.checkOrigin(req("")) {
		t.Fatal("non-browser clients (no Origin) are allowed")
	}
	if !srv.checkOrigin(req("https://app.example.com")) {
		t.Fatal("allow-listed origin rejected")
	}
	if srv.checkOrigin(req("https://evil.example.com")) {
		t.Fatal("unlisted origin must be rejected")
	}

	open := newTestServer(t, env, &global.AppConfig{})
	if !open.checkOrigin(req("https://anything.example.com")) {
		t.Fatal("empty allow list means allow any origin")
	}
}

func TestHandshakeToken(t *testing.T) {
	r := &http.Request{URL: &url.URL{RawQuery: "token=abc"}, Header: http.Header{}}
	if got := handshakeToken(r); got != "abc" {
		t.Fatalf("query token = %q", got)
	}

	r = &http.Request{URL: &url.URL{}, Header: http.Header{}}
	r.Header.Set("Authorization", "Bearer xyz")
	if got := handshakeToken(r); got != "xyz" {
		t.Fatalf("bearer token = %q", got)
	}

	r = &http.Request{URL: &url.URL{}, Header: http.Header{}}
	if got := handshakeToken(r); got != "" {
		t.Fatalf("no credential should yield empty, got %q", got)
	}
}
