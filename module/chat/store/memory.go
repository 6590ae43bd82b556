package store

import (
	"context"
	"sync"
	"time"

	"TChat/module/chat/model"
)

// In-memory implementations with the same guarded-update semantics as the
// Mongo stores. They back unit tests and local runs without a database.

type MemoryRoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*model.Room
}

func NewMemoryRoomStore() *MemoryRoomStore {
	return &MemoryRoomStore{rooms: make(map[string]*model.Room)}
}

// Put seeds a room. Test helper.
func (s *MemoryRoomStore) Put(r *model.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	if cp.UnreadCount == nil {
		cp.UnreadCount = make(map[string]int64)
	}
	s.rooms[r.ID] = &cp
}

func (s *MemoryRoomStore) FindByID(_ context.Context, id string) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	cp.Participants = append([]model.Participant(nil), r.Participants...)
	cp.UnreadCount = make(map[string]int64, len(r.UnreadCount))
	for k, v := range r.UnreadCount {
		cp.UnreadCount[k] = v
	}
	return &cp, nil
}

func (s *MemoryRoomStore) SetLastMessage(_ context.Context, roomID, messageID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[roomID]; ok {
		r.LastMessage = messageID
		t := at
		r.LastMessageTime = &t
		r.UpdatedAt = at
	}
	return nil
}

func (s *MemoryRoomStore) IncrementUnread(_ context.Context, roomID string, userIDs []string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	if r.UnreadCount == nil {
		r.UnreadCount = make(map[string]int64)
	}
	for _, uid := range userIDs {
		r.UnreadCount[uid] += delta
	}
	return nil
}

func (s *MemoryRoomStore) ClearUnread(_ context.Context, roomID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[roomID]; ok {
		delete(r.UnreadCount, userID)
	}
	return nil
}

type MemoryMessageStore struct {
	mu       sync.RWMutex
	messages map[string]*model.Message
	order    []string // insertion order for room scans
}

func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{messages: make(map[string]*model.Message)}
}

func (s *MemoryMessageStore) Create(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.messages[m.ID] = &cp
	s.order = append(s.order, m.ID)
	return nil
}

func (s *MemoryMessageStore) FindByID(_ context.Context, id string) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	cp.ReadBy = append([]model.ReadReceipt(nil), m.ReadBy...)
	cp.Reactions = append([]model.Reaction(nil), m.Reactions...)
	return &cp, nil
}

func (s *MemoryMessageStore) UpdateContent(_ context.Context, id, content string, editedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok || m.IsDeleted {
		return false, nil
	}
	m.Content = content
	m.IsEdited = true
	t := editedAt
	m.EditedAt = &t
	m.UpdatedAt = editedAt
	return true, nil
}

func (s *MemoryMessageStore) SoftDelete(_ context.Context, id, byUserID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok || m.IsDeleted {
		return false, nil
	}
	m.IsDeleted = true
	t := at
	m.DeletedAt = &t
	m.DeletedBy = byUserID
	m.UpdatedAt = at
	return true, nil
}

func (s *MemoryMessageStore) AddReaction(_ context.Context, id string, r model.Reaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok || m.HasReaction(r.Emoji, r.UserID) {
		return false, nil
	}
	m.Reactions = append(m.Reactions, r)
	return true, nil
}

func (s *MemoryMessageStore) RemoveReaction(_ context.Context, id string, r model.Reaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return false, nil
	}
	kept := m.Reactions[:0]
	removed := false
	for _, x := range m.Reactions {
		if x.Emoji == r.Emoji && x.UserID == r.UserID {
			removed = true
			continue
		}
		kept = append(kept, x)
	}
	m.Reactions = kept
	return removed, nil
}

func (s *MemoryMessageStore) AppendReadReceipts(_ context.Context, ids []string, readerID string, at time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var modified []string
	for _, id := range ids {
		m, ok := s.messages[id]
		if !ok || m.IsDeleted || m.SenderID.ID == readerID || m.ReadByUser(readerID) {
			continue
		}
		m.ReadBy = append(m.ReadBy, model.ReadReceipt{UserID: readerID, ReadAt: at})
		m.Status = m.Status.Advance(model.StatusRead)
		m.UpdatedAt = at
		modified = append(modified, id)
	}
	return modified, nil
}

func (s *MemoryMessageStore) FindUnreadInRoom(_ context.Context, roomID, userID string) ([]*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Message
	for _, id := range s.order {
		m := s.messages[id]
		if m.RoomID != roomID || m.IsDeleted || m.SenderID.ID == userID || m.ReadByUser(userID) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryMessageStore) SenderOf(_ context.Context, ids []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if m, ok := s.messages[id]; ok {
			out[id] = m.SenderID.ID
		}
	}
	return out, nil
}
