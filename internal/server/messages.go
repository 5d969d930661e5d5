package server

import (
	"encoding/json"

	"messagehub/internal/types"
)

// Frame types exchanged over the socket. Clients send a single auth frame;
// everything else flows server to client.
const (
	FrameAuth        = "auth"
	FrameAuthSuccess = "auth_success"
	FrameNewMessage  = "new_message"
)

// ClientFrame is the envelope for inbound frames. Only auth frames carry the
// identity fields; anything else is ignored.
type ClientFrame struct {
	Type     string `json:"type"`
	UserId   string `json:"userId,omitempty"`
	UserName string `json:"userName,omitempty"`
}

type AuthSuccessFrame struct {
	Type   string `json:"type"`
	UserId string `json:"userId"`
}

type NewMessageFrame struct {
	Type    string        `json:"type"`
	Message types.Message `json:"message"`
}

// EncodeNewMessage builds the push payload published on the fanout bus for
// both participants of a conversation.
func EncodeNewMessage(msg types.Message) ([]byte, error) {
	return json.Marshal(NewMessageFrame{
		Type:    FrameNewMessage,
		Message: msg,
	})
}

func encodeAuthSuccess(userId string) []byte {
	payload, _ := json.Marshal(AuthSuccessFrame{
		Type:   FrameAuthSuccess,
		UserId: userId,
	})
	return payload
}
