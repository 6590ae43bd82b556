package chat

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"TChat/global"
	"TChat/logger"
	"TChat/module/chat/store"
	"TChat/tools/errs"
)

const (
	writeTimeout    = 10 * time.Second
	dispatchTimeout = 10 * time.Second
)

// Server wires the WebSocket endpoint to the chat services. All handler
// state lives in the injected collaborators; Server itself only owns the
// upgrade handshake and the per-connection read loop.
type Server struct {
	cfg      *global.AppConfig
	registry *PresenceRegistry
	emit     Emitter
	session  *SessionLifecycle
	ops      *MessageOps
	receipts *ReadReceiptTracker
	guard    *RoomAccessGuard
	rooms    store.RoomStore
	disp     *Dispatcher
	upgrader websocket.Upgrader
}

func NewServer(cfg *global.AppConfig, registry *PresenceRegistry, emit Emitter,
	session *SessionLifecycle, ops *MessageOps, receipts *ReadReceiptTracker,
	guard *RoomAccessGuard, rooms store.RoomStore) *Server {

	s := &Server{
		cfg:      cfg,
		registry: registry,
		emit:     emit,
		session:  session,
		ops:      ops,
		receipts: receipts,
		guard:    guard,
		rooms:    rooms,
		disp:     NewDispatcher(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.registerHandlers()
	return s
}

// checkOrigin allows non-browser clients (no Origin header) and any
// origin on the configured allow list. An empty list allows everything.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.CORSOrigins) == 0 {
		return true
	}
	for _, allowed := range s.cfg.CORSOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

// HandleWS upgrades the request, authenticates the handshake token, and
// runs the read loop. One goroutine reads, one writes; business handlers
// run sequentially on the read loop so per-connection event order holds.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[HandleWS] upgrade websocket error: %v", err)
		return
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			logger.Infof("[HandleWS] close websocket error: %v", cerr)
		}
	}()

	claims, err := s.session.Authenticate(handshakeToken(c.Request))
	if err != nil {
		msg := "Authentication failed"
		if codeErr := errs.CodeOf(err); codeErr != nil {
			msg = codeErr.Msg
		}
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = ws.WriteMessage(websocket.TextMessage, Event(EvtAuthError, ErrorPayload{Message: msg}))
		return
	}

	client := NewClient(uuid.NewString(), claims.UserID, claims.Role, claims.TenantID, ws)
	s.session.Register(client)
	defer s.session.Cleanup(client.ConnID)

	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
		s.session.Heartbeat(client)
		return nil
	})

	go client.writePump(s.cfg.PingInterval, writeTimeout)

	for {
		_ = ws.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed user=%s conn=%s err=%v", client.UserID, client.ConnID, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout user=%s conn=%s err=%v", client.UserID, client.ConnID, rerr)
			} else {
				logger.Infof("[WS] read err user=%s conn=%s err=%v", client.UserID, client.ConnID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrameJSON(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[WS] bad frame user=%s conn=%s err=%v sample=%q", client.UserID, client.ConnID, perr, sample)
			client.Emit(EvtError, ErrorPayload{Message: "Malformed frame"})
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		s.disp.Dispatch(ctx, client, frame)
		cancel()
	}
}

// handshakeToken accepts the credential either as a query parameter or a
// bearer Authorization header.
func handshakeToken(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
