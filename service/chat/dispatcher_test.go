package chat

import (
	"context"
	"encoding/json"
	"testing"

	"TChat/tools/errs"
)

func drainFrames(c *Client) []*Frame {
	var out []*Frame
	for {
		select {
		case raw := <-c.Send:
			f, _ := ParseFrameJSON(raw)
			out = append(out, f)
		default:
			return out
		}
	}
}

func TestDispatchRoutesToHandler(t *testing.T) {
	d := NewDispatcher()
	var got string
	d.Register("ping", func(_ context.Context, _ *Client, data json.RawMessage) error {
		got = string(data)
		return nil
	})

	c := testClient("c1", "alice", RoleUser)
	d.Dispatch(context.Background(), c, &Frame{Event: "ping", Data: json.RawMessage(`{"n":1}`)})

	if got != `{"n":1}` {
		t.Fatalf("handler payload = %q", got)
	}
	if frames := drainFrames(c); len(frames) != 0 {
		t.Fatalf("successful dispatch must not emit, got %+v", frames)
	}
}

func TestDispatchUnknownEventIgnored(t *testing.T) {
	d := NewDispatcher()
	c := testClient("c1", "alice", RoleUser)
	d.Dispatch(context.Background(), c, &Frame{Event: "no_such_event"})
	if frames := drainFrames(c); len(frames) != 0 {
		t.Fatalf("unknown events are dropped silently, got %+v", frames)
	}
}

func TestDispatchCodedErrorReachesClient(t *testing.T) {
	d := NewDispatcher()
	d.Register("boom", func(context.Context, *Client, json.RawMessage) error {
		return errs.ErrRateLimited.WithMsg("Too many messages, please slow down")
	})

	c := testClient("c1", "alice", RoleUser)
	d.Dispatch(context.Background(), c, &Frame{Event: "boom"})

	frames := drainFrames(c)
	if len(frames) != 1 || frames[0].Event != EvtError {
		t.Fatalf("frames = %+v", frames)
	}
	var p ErrorPayload
	if err := json.Unmarshal(frames[0].Data, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Message != "Too many messages, please slow down" {
		t.Fatalf("error message = %q", p.Message)
	}
}

func TestDispatchInternalErrorIsGeneric(t *testing.T) {
	d := NewDispatcher()
	d.Register("send_message", func(context.Context, *Client, json.RawMessage) error {
		return context.DeadlineExceeded
	})

	c := testClient("c1", "alice", RoleUser)
	d.Dispatch(context.Background(), c, &Frame{Event: "send_message"})

	frames := drainFrames(c)
	if len(frames) != 1 {
		t.Fatalf("frames = %+v", frames)
	}
	var p ErrorPayload
	_ = json.Unmarshal(frames[0].Data, &p)
	if p.Message != "Failed to send_message" {
		t.Fatalf("internal failures must not leak detail, got %q", p.Message)
	}
}

func TestPayloadHandlerMalformed(t *testing.T) {
	h := payloadHandler(func(_ context.Context, _ *Client, p RoomPayload) error {
		t.Fatal("handler must not run on malformed payload")
		return nil
	})
	err := h(context.Background(), testClient("c1", "alice", RoleUser), json.RawMessage(`{"roomId":42}`))
	if ce := errs.CodeOf(err); ce == nil || ce.Code != errs.CodeValidation {
		t.Fatalf("want validation error, got %v", err)
	}
}
