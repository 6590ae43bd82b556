package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"TChat/logger"
)

const sendQueueSize = 256

// Client is one authenticated WebSocket session. A user may hold several
// clients at once (multi-device); to-user pushes reach all of them.
type Client struct {
	ConnID   string
	UserID   string
	Role     string
	TenantID string
	AuthedAt time.Time

	WS      *websocket.Conn
	Send    chan []byte // consumed by the single writer goroutine
	Limiter *RateLimiter

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(connID, userID, role, tenantID string, ws *websocket.Conn) *Client {
	return &Client{
		ConnID:   connID,
		UserID:   userID,
		Role:     role,
		TenantID: tenantID,
		AuthedAt: time.Now(),
		WS:       ws,
		Send:     make(chan []byte, sendQueueSize),
		Limiter:  NewRateLimiter(),
		done:     make(chan struct{}),
	}
}

// Enqueue hands a frame to the writer. Slow clients drop frames rather
// than block the caller; presence events are all re-broadcast on change.
func (c *Client) Enqueue(payload []byte) {
	select {
	case c.Send <- payload:
	case <-c.done:
	default:
		logger.Warnf("[WS] send queue full, drop frame user=%s conn=%s", c.UserID, c.ConnID)
	}
}

// Emit marshals and enqueues one event for this client only.
func (c *Client) Emit(event string, payload interface{}) {
	c.Enqueue(Event(event, payload))
}

// writePump is the single writer for this connection: drains the send
// queue and keeps the gorilla ping cadence. Exits when Close is called or
// a write fails.
func (c *Client) writePump(pingInterval time.Duration, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.Send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[WS] write err user=%s conn=%s err=%v", c.UserID, c.ConnID, err)
				return
			}
		case <-ticker.C:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			// flush nothing; connection is going away
			return
		}
	}
}

// Alive reports whether the connection has not been closed yet.
func (c *Client) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Close is idempotent and safe from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.WS != nil {
			_ = c.WS.Close()
		}
	})
}
