package chat

import (
	"context"
	"sync"
	"time"

	"TChat/logger"
	"TChat/service/storage"
	"TChat/tools/errs"
	"TChat/tools/security"
)

// SessionLifecycle owns connection authentication, registration, and the
// teardown that keeps the presence registry honest: explicit disconnects,
// forced closes, and the periodic stale sweep all funnel into Cleanup.
type SessionLifecycle struct {
	registry *PresenceRegistry
	emit     Emitter
	online   *storage.OnlineStore // optional session mirror
	jwtOpts  security.Options

	sweepInterval time.Duration
	stopOnce      sync.Once
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

func NewSessionLifecycle(registry *PresenceRegistry, emit Emitter, online *storage.OnlineStore,
	jwtOpts security.Options, sweepInterval time.Duration) *SessionLifecycle {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	return &SessionLifecycle{
		registry:      registry,
		emit:          emit,
		online:        online,
		jwtOpts:       jwtOpts,
		sweepInterval: sweepInterval,
		stopCh:        make(chan struct{}),
	}
}

// Authenticate validates the handshake credential. Failure here is
// connection-fatal: the caller emits auth_error and closes.
func (s *SessionLifecycle) Authenticate(token string) (*security.Claims, error) {
	if token == "" {
		return nil, errs.ErrAuthentication.WithMsg("Authentication token required")
	}
	claims, err := security.Decode(s.jwtOpts, token)
	if err != nil || claims.UserID == "" {
		logger.Warnf("[AUTH] invalid token: %v", err)
		return nil, errs.ErrAuthentication.WithMsg("Invalid authentication token")
	}
	return claims, nil
}

// Register indexes the authenticated connection, mirrors the session into
// Redis, and broadcasts the updated online-user list to everyone.
func (s *SessionLifecycle) Register(c *Client) {
	s.registry.AddClient(c)

	if s.online != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := s.online.Online(ctx, c.UserID, c.ConnID); err != nil {
			logger.Warnf("[AUTH] online mirror user=%s err=%v", c.UserID, err)
		}
		cancel()
	}

	logger.Infof("[AUTH] user %s authenticated (role: %s) conn=%s total=%d",
		c.UserID, c.Role, c.ConnID, len(s.registry.ConnIDs()))
	s.broadcastOnlineUsers()
}

// Heartbeat refreshes the session mirror on pong.
func (s *SessionLifecycle) Heartbeat(c *Client) {
	if s.online == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.online.Refresh(ctx, c.UserID, c.ConnID); err != nil {
		logger.Warnf("[HEARTBEAT] refresh user=%s err=%v", c.UserID, err)
	}
}

// Cleanup purges one connection from every presence structure,
// re-broadcasting membership for each affected room, and announces the
// updated online-user list. Registry mutation is synchronous; the event
// emission and the Redis delete happen after.
func (s *SessionLifecycle) Cleanup(connID string) {
	c, activeLeft, typingLeft := s.registry.RemoveClient(connID)
	if c == nil {
		return
	}
	c.Close()

	now := time.Now()
	for _, roomID := range activeLeft {
		users := s.registry.ActiveUsers(roomID)
		s.emit.ToRoom(roomID, EvtRoomUsersOnline, OnlineUsersPayload{
			Users: users, Count: len(users), Timestamp: now,
		})
	}
	for _, roomID := range typingLeft {
		s.emit.ToRoom(roomID, EvtUserTyping, TypingPayload{
			UserID: c.UserID, RoomID: roomID, IsTyping: false, Timestamp: now,
		})
	}

	if s.online != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := s.online.Offline(ctx, c.UserID, c.ConnID); err != nil {
			logger.Warnf("[CLEANUP] offline mirror user=%s err=%v", c.UserID, err)
		}
		cancel()
	}

	s.broadcastOnlineUsers()
	logger.Infof("[DISCONNECT] user %s (%s) disconnected conn=%s total=%d",
		c.UserID, c.Role, connID, len(s.registry.ConnIDs()))
}

func (s *SessionLifecycle) broadcastOnlineUsers() {
	users := s.registry.OnlineUsers()
	s.emit.ToAll(EvtOnlineUsers, OnlineUsersPayload{
		Users: users, Count: len(users), Timestamp: time.Now(),
	})
}

// StartSweeper launches the periodic pass that reconciles registered
// connections against actually-live ones, catching missed disconnects.
func (s *SessionLifecycle) StartSweeper() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(s.sweepInterval)
		defer t.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case now := <-t.C:
				s.sweepOnce(now)
			}
		}
	}()
}

func (s *SessionLifecycle) sweepOnce(now time.Time) {
	stale := 0
	for _, connID := range s.registry.ConnIDs() {
		c := s.registry.GetClient(connID)
		if c != nil && !c.Alive() {
			s.Cleanup(connID)
			stale++
		}
	}
	if stale > 0 {
		logger.Infof("[CLEANUP] removed %d stale connections", stale)
	}

	if s.online != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		expired, err := s.online.SweepExpired(ctx, now)
		if err != nil {
			logger.Warnf("[CLEANUP] mirror sweep err=%v", err)
			return
		}
		for _, pair := range expired {
			s.Cleanup(pair[1])
		}
	}
}

func (s *SessionLifecycle) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}
