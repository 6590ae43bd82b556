package chat

import (
	"encoding/json"
	"time"

	"TChat/logger"
	"TChat/service/natsx"
)

// PushNotifier is the external push-delivery collaborator. The gateway
// only hands events over; delivery, batching, and device routing belong
// to whatever consumes the subject.
type PushNotifier interface {
	NotifyAdminMessage(userID string, payload *NewAdminMessagePayload)
	NotifyUnread(userID, roomID string, unread int64)
}

// NatsPushNotifier publishes push events to a NATS subject. Failures are
// logged and dropped; push is best-effort by contract.
type NatsPushNotifier struct {
	client  *natsx.NatsxClient
	subject string
}

func NewNatsPushNotifier(client *natsx.NatsxClient, subject string) *NatsPushNotifier {
	return &NatsPushNotifier{client: client, subject: subject}
}

type pushEnvelope struct {
	Kind      string      `json:"kind"`
	UserID    string      `json:"userId"`
	Timestamp time.Time   `json:"timestamp"`
	Body      interface{} `json:"body,omitempty"`
}

func (n *NatsPushNotifier) publish(kind, userID string, body interface{}) {
	data, err := json.Marshal(pushEnvelope{
		Kind:      kind,
		UserID:    userID,
		Timestamp: time.Now(),
		Body:      body,
	})
	if err != nil {
		return
	}
	if err := n.client.Publish(n.subject, data, map[string]string{"kind": kind}); err != nil {
		logger.Warnf("[PUSH] publish kind=%s user=%s err=%v", kind, userID, err)
	}
}

func (n *NatsPushNotifier) NotifyAdminMessage(userID string, payload *NewAdminMessagePayload) {
	n.publish("admin_message", userID, payload)
}

func (n *NatsPushNotifier) NotifyUnread(userID, roomID string, unread int64) {
	n.publish("unread", userID, UnreadCountPayload{RoomID: roomID, UnreadCount: unread})
}

// NopPushNotifier discards everything. Used in tests and when NATS is not
// configured.
type NopPushNotifier struct{}

func (NopPushNotifier) NotifyAdminMessage(string, *NewAdminMessagePayload) {}
func (NopPushNotifier) NotifyUnread(string, string, int64)                {}
