package chat

import (
	"sort"
	"sync"
)

// PresenceRegistry is the process-wide map of who is connected, which
// rooms they have open, and who is typing. It is authoritative for this
// node and fully reconstructable from connection events; nothing here is
// persisted. All mutations are synchronous map operations under one lock,
// with no I/O inside the critical section.
type PresenceRegistry struct {
	mu sync.RWMutex

	byConn map[string]*Client            // conn_id -> client
	byUser map[string]map[string]*Client // user -> conn_id -> client

	roomConns map[string]map[string]*Client // room -> conn_id -> client (channel subscriptions)
	connRooms map[string]map[string]struct{} // conn_id -> joined rooms

	activeRoomUsers map[string]map[string]struct{} // room -> users with the room open
	typingUsers     map[string]map[string]struct{} // room -> users typing
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		byConn:          make(map[string]*Client),
		byUser:          make(map[string]map[string]*Client),
		roomConns:       make(map[string]map[string]*Client),
		connRooms:       make(map[string]map[string]struct{}),
		activeRoomUsers: make(map[string]map[string]struct{}),
		typingUsers:     make(map[string]map[string]struct{}),
	}
}

func (r *PresenceRegistry) AddClient(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byConn[c.ConnID] = c
	m := r.byUser[c.UserID]
	if m == nil {
		m = make(map[string]*Client)
		r.byUser[c.UserID] = m
	}
	m[c.ConnID] = c
}

// RemoveClient drops the connection from every index. It returns the
// rooms whose active set lost the user and the rooms whose typing set
// lost the user, so the caller can re-broadcast membership for each.
func (r *PresenceRegistry) RemoveClient(connID string) (client *Client, activeLeft, typingLeft []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byConn[connID]
	if !ok {
		return nil, nil, nil
	}
	delete(r.byConn, connID)

	if m := r.byUser[c.UserID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.byUser, c.UserID)
		}
	}

	for roomID := range r.connRooms[connID] {
		if conns := r.roomConns[roomID]; conns != nil {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(r.roomConns, roomID)
			}
		}
		// Active/typing membership is per user: drop it only when no
		// other connection of the same user still has the room joined.
		if !r.userInRoomLocked(roomID, c.UserID) {
			if users := r.activeRoomUsers[roomID]; users != nil {
				if _, had := users[c.UserID]; had {
					delete(users, c.UserID)
					activeLeft = append(activeLeft, roomID)
					if len(users) == 0 {
						delete(r.activeRoomUsers, roomID)
					}
				}
			}
			if users := r.typingUsers[roomID]; users != nil {
				if _, had := users[c.UserID]; had {
					delete(users, c.UserID)
					typingLeft = append(typingLeft, roomID)
					if len(users) == 0 {
						delete(r.typingUsers, roomID)
					}
				}
			}
		}
	}
	delete(r.connRooms, connID)

	return c, activeLeft, typingLeft
}

func (r *PresenceRegistry) userInRoomLocked(roomID, userID string) bool {
	for cid := range r.roomConns[roomID] {
		if c := r.byConn[cid]; c != nil && c.UserID == userID {
			return true
		}
	}
	return false
}

// JoinRoom subscribes the connection to the room channel and marks the
// user active in the room.
func (r *PresenceRegistry) JoinRoom(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.roomConns[roomID]
	if conns == nil {
		conns = make(map[string]*Client)
		r.roomConns[roomID] = conns
	}
	conns[c.ConnID] = c

	rooms := r.connRooms[c.ConnID]
	if rooms == nil {
		rooms = make(map[string]struct{})
		r.connRooms[c.ConnID] = rooms
	}
	rooms[roomID] = struct{}{}

	users := r.activeRoomUsers[roomID]
	if users == nil {
		users = make(map[string]struct{})
		r.activeRoomUsers[roomID] = users
	}
	users[c.UserID] = struct{}{}
}

// LeaveRoom unsubscribes the connection; the user stays active if another
// of their connections still has the room open. Typing state follows the
// same rule.
func (r *PresenceRegistry) LeaveRoom(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conns := r.roomConns[roomID]; conns != nil {
		delete(conns, c.ConnID)
		if len(conns) == 0 {
			delete(r.roomConns, roomID)
		}
	}
	if rooms := r.connRooms[c.ConnID]; rooms != nil {
		delete(rooms, roomID)
	}

	if !r.userInRoomLocked(roomID, c.UserID) {
		if users := r.activeRoomUsers[roomID]; users != nil {
			delete(users, c.UserID)
			if len(users) == 0 {
				delete(r.activeRoomUsers, roomID)
			}
		}
		if users := r.typingUsers[roomID]; users != nil {
			delete(users, c.UserID)
			if len(users) == 0 {
				delete(r.typingUsers, roomID)
			}
		}
	}
}

func (r *PresenceRegistry) SetTyping(roomID, userID string, typing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.typingUsers[roomID]
	if typing {
		if users == nil {
			users = make(map[string]struct{})
			r.typingUsers[roomID] = users
		}
		users[userID] = struct{}{}
		return
	}
	if users != nil {
		delete(users, userID)
		if len(users) == 0 {
			delete(r.typingUsers, roomID)
		}
	}
}

// ActiveUsers returns the sorted user ids with the room open.
func (r *PresenceRegistry) ActiveUsers(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.activeRoomUsers[roomID])
}

func (r *PresenceRegistry) IsActiveInRoom(roomID, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.activeRoomUsers[roomID][userID]
	return ok
}

// OnlineUsers returns the sorted ids of all users with at least one live
// connection on this node.
func (r *PresenceRegistry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byUser))
	for uid := range r.byUser {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out
}

// RoomClients snapshots the connections subscribed to the room channel.
func (r *PresenceRegistry) RoomClients(roomID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := r.roomConns[roomID]
	out := make([]*Client, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// UserClients snapshots all live connections of one user.
func (r *PresenceRegistry) UserClients(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[userID]
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

// AllClients snapshots every live connection.
func (r *PresenceRegistry) AllClients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.byConn))
	for _, c := range r.byConn {
		out = append(out, c)
	}
	return out
}

// ConnIDs lists all registered connection ids. Used by the stale sweep.
func (r *PresenceRegistry) ConnIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byConn))
	for cid := range r.byConn {
		out = append(out, cid)
	}
	return out
}

func (r *PresenceRegistry) GetClient(connID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byConn[connID]
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
