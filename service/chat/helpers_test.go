package chat

import (
	"sync"
	"time"

	"TChat/module/chat/model"
	"TChat/module/chat/store"
)

// recordEmitter captures emissions synchronously for assertions.
type recordedEvent struct {
	Scope   string // "room", "user", "all"
	Target  string
	Event   string
	Payload interface{}
}

type recordEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (e *recordEmitter) ToRoom(roomID, event string, payload interface{}) {
	e.record(recordedEvent{Scope: "room", Target: roomID, Event: event, Payload: payload})
}

func (e *recordEmitter) ToUser(userID, event string, payload interface{}) {
	e.record(recordedEvent{Scope: "user", Target: userID, Event: event, Payload: payload})
}

func (e *recordEmitter) ToAll(event string, payload interface{}) {
	e.record(recordedEvent{Scope: "all", Event: event, Payload: payload})
}

func (e *recordEmitter) record(ev recordedEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *recordEmitter) all() []recordedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]recordedEvent(nil), e.events...)
}

func (e *recordEmitter) byEvent(event string) []recordedEvent {
	var out []recordedEvent
	for _, ev := range e.all() {
		if ev.Event == event {
			out = append(out, ev)
		}
	}
	return out
}

func (e *recordEmitter) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = nil
}

func testClient(connID, userID, role string) *Client {
	return NewClient(connID, userID, role, "tenant-1", nil)
}

func groupRoom(id string, memberIDs ...string) *model.Room {
	r := &model.Room{
		ID:          id,
		Type:        model.RoomGroup,
		TenantID:    "tenant-1",
		UnreadCount: map[string]int64{},
	}
	for _, uid := range memberIDs {
		r.Participants = append(r.Participants, model.Participant{
			UserID:   model.PlainUser(uid),
			JoinedAt: time.Now(),
			Role:     model.ParticipantMember,
		})
	}
	return r
}

type opsEnv struct {
	rooms    *store.MemoryRoomStore
	msgs     *store.MemoryMessageStore
	registry *PresenceRegistry
	guard    *RoomAccessGuard
	emit     *recordEmitter
	ops      *MessageOps
	receipts *ReadReceiptTracker
}

func newOpsEnv() *opsEnv {
	env := &opsEnv{
		rooms:    store.NewMemoryRoomStore(),
		msgs:     store.NewMemoryMessageStore(),
		registry: NewPresenceRegistry(),
		guard:    NewRoomAccessGuard(),
		emit:     &recordEmitter{},
	}
	env.ops = NewMessageOps(env.rooms, env.msgs, env.registry, env.guard, env.emit, nil, 10*time.Millisecond)
	env.receipts = NewReadReceiptTracker(env.rooms, env.msgs, env.guard, env.emit)
	return env
}
