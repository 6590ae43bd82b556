package chat

import (
	"context"
	"encoding/json"

	"TChat/logger"
	"TChat/tools/errs"
)

type HandlerFunc func(ctx context.Context, c *Client, data json.RawMessage) error

// Dispatcher routes inbound frames to their handler. Handler errors stay
// on the initiating connection as an error event; they never propagate to
// other connections and never take the process down.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

func (d *Dispatcher) Register(event string, h HandlerFunc) {
	d.handlers[event] = h
}

func (d *Dispatcher) Dispatch(ctx context.Context, c *Client, f *Frame) {
	h, ok := d.handlers[f.Event]
	if !ok {
		logger.Infof("[WS] no handler for event=%s user=%s", f.Event, c.UserID)
		return
	}

	if err := h(ctx, c, f.Data); err != nil {
		codeErr := errs.CodeOf(err)
		if codeErr == nil {
			// Persistence and other internal failures look like any other
			// per-operation failure to the client: reported, not retried.
			logger.Errorf("[%s] user=%s role=%s err=%v", f.Event, c.UserID, c.Role, err)
			c.Emit(EvtError, ErrorPayload{Message: "Failed to " + f.Event})
			return
		}
		logger.Warnf("[%s] user=%s role=%s rejected: %v", f.Event, c.UserID, c.Role, codeErr)
		c.Emit(EvtError, ErrorPayload{Message: codeErr.Msg})
	}
}
