package chat

import (
	"context"
	"encoding/json"
	"time"

	"TChat/logger"
	"TChat/tools/errs"
)

func (s *Server) registerHandlers() {
	s.disp.Register(EvtJoinRoom, payloadHandler(s.handleJoinRoom))
	s.disp.Register(EvtLeaveRoom, payloadHandler(s.handleLeaveRoom))
	s.disp.Register(EvtStartTyping, payloadHandler(s.handleStartTyping))
	s.disp.Register(EvtStopTyping, payloadHandler(s.handleStopTyping))
	s.disp.Register(EvtMarkRoomRead, payloadHandler(s.handleMarkRoomRead))
	s.disp.Register(EvtMarkMessagesRead, payloadHandler(s.handleMarkMessagesRead))
	s.disp.Register(EvtSendMessage, payloadHandler(s.ops.Send))
	s.disp.Register(EvtEditMessage, payloadHandler(s.ops.Edit))
	s.disp.Register(EvtDeleteMessage, payloadHandler(s.ops.Delete))
	s.disp.Register(EvtAddReaction, payloadHandler(s.ops.React))
	s.disp.Register(EvtRemoveReaction, payloadHandler(s.ops.Unreact))
}

// payloadHandler decodes the frame body into the handler's payload type.
// A body that does not parse is a validation failure, same as any other
// malformed input.
func payloadHandler[P any](h func(ctx context.Context, c *Client, p P) error) HandlerFunc {
	return func(ctx context.Context, c *Client, data json.RawMessage) error {
		var p P
		if len(data) > 0 {
			if err := json.Unmarshal(data, &p); err != nil {
				return errs.ErrValidation.WithMsg("Malformed payload")
			}
		}
		return h(ctx, c, p)
	}
}

// handleJoinRoom subscribes the connection to the room channel, marks
// everything unread as read (join implies viewing), clears the unread
// counter, and re-broadcasts room presence.
func (s *Server) handleJoinRoom(ctx context.Context, c *Client, p RoomPayload) error {
	if p.RoomID == "" {
		return errs.ErrValidation.WithMsg("Invalid room ID format")
	}

	room, err := s.rooms.FindByID(ctx, p.RoomID)
	if err != nil {
		return err
	}
	if err := s.guard.Verify(room, c.UserID, c.Role); err != nil {
		logger.Warnf("[JOIN_ROOM] %s (%s) denied access to %s: %v", c.UserID, c.Role, p.RoomID, err)
		return err
	}

	s.registry.JoinRoom(c, p.RoomID)
	logger.Infof("[ROOM] user %s (%s) joined room %s", c.UserID, c.Role, p.RoomID)

	if err := s.receipts.MarkDelivered(ctx, c, p.RoomID); err != nil {
		logger.Errorf("[JOIN_ROOM] mark delivered room=%s user=%s err=%v", p.RoomID, c.UserID, err)
	}
	if err := s.rooms.ClearUnread(ctx, p.RoomID, c.UserID); err != nil {
		logger.Errorf("[JOIN_ROOM] clear unread room=%s user=%s err=%v", p.RoomID, c.UserID, err)
	}

	s.broadcastRoomUsers(p.RoomID)
	s.emit.ToRoom(p.RoomID, EvtUserJoined, UserEventPayload{UserID: c.UserID, Timestamp: time.Now()})
	return nil
}

func (s *Server) handleLeaveRoom(ctx context.Context, c *Client, p RoomPayload) error {
	if p.RoomID == "" {
		return errs.ErrValidation.WithMsg("Invalid room ID format")
	}

	room, err := s.rooms.FindByID(ctx, p.RoomID)
	if err != nil {
		return err
	}
	if err := s.guard.Verify(room, c.UserID, c.Role); err != nil {
		return err
	}

	s.registry.LeaveRoom(c, p.RoomID)
	logger.Infof("[ROOM] user %s (%s) left room %s", c.UserID, c.Role, p.RoomID)

	s.broadcastRoomUsers(p.RoomID)
	s.emit.ToRoom(p.RoomID, EvtUserLeft, UserEventPayload{UserID: c.UserID, Timestamp: time.Now()})
	return nil
}

func (s *Server) handleStartTyping(ctx context.Context, c *Client, p RoomPayload) error {
	if p.RoomID == "" {
		return errs.ErrValidation.WithMsg("Invalid room ID format")
	}
	if !c.Limiter.Check(EvtStartTyping) {
		return errs.ErrRateLimited.WithMsg("Too many typing updates, please slow down")
	}

	room, err := s.rooms.FindByID(ctx, p.RoomID)
	if err != nil {
		return err
	}
	if err := s.guard.Verify(room, c.UserID, c.Role); err != nil {
		return err
	}

	s.registry.SetTyping(p.RoomID, c.UserID, true)
	s.emit.ToRoom(p.RoomID, EvtUserTyping, TypingPayload{
		UserID: c.UserID, RoomID: p.RoomID, IsTyping: true, Timestamp: time.Now(),
	})
	return nil
}

func (s *Server) handleStopTyping(ctx context.Context, c *Client, p RoomPayload) error {
	if p.RoomID == "" {
		return errs.ErrValidation.WithMsg("Invalid room ID format")
	}

	room, err := s.rooms.FindByID(ctx, p.RoomID)
	if err != nil {
		return err
	}
	if err := s.guard.Verify(room, c.UserID, c.Role); err != nil {
		return err
	}

	s.registry.SetTyping(p.RoomID, c.UserID, false)
	s.emit.ToRoom(p.RoomID, EvtUserTyping, TypingPayload{
		UserID: c.UserID, RoomID: p.RoomID, IsTyping: false, Timestamp: time.Now(),
	})
	return nil
}

func (s *Server) handleMarkRoomRead(ctx context.Context, c *Client, p RoomPayload) error {
	return s.receipts.MarkRoomRead(ctx, c, p.RoomID)
}

func (s *Server) handleMarkMessagesRead(ctx context.Context, c *Client, p MarkMessagesReadPayload) error {
	return s.receipts.MarkMessagesRead(ctx, c, p)
}

func (s *Server) broadcastRoomUsers(roomID string) {
	users := s.registry.ActiveUsers(roomID)
	s.emit.ToRoom(roomID, EvtRoomUsersOnline, OnlineUsersPayload{
		Users: users, Count: len(users), Timestamp: time.Now(),
	})
}
