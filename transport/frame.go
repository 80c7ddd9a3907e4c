package transport

import "support-chat/domain"

const (
	EventSendMessage = "sendMessage"
	EventNewMessage  = "newMessage"
)

// Frame is the JSON envelope exchanged over the WebSocket connection.
// Outbound frames carry Send; inbound frames carry Message.
type Frame struct {
	Event   string          `json:"event"`
	Send    *SendPayload    `json:"send,omitempty"`
	Message *domain.Message `json:"message,omitempty"`
}

// SendPayload is the body of an outbound sendMessage frame. ClientKey is
// echoed back by servers that support idempotency keys.
type SendPayload struct {
	Content   string        `json:"content"`
	RoomID    domain.RoomID `json:"roomId,omitempty"`
	AsAdmin   bool          `json:"asAdmin"`
	ClientKey string        `json:"clientKey,omitempty"`
	Sender    domain.Sender `json:"sender"`
}
