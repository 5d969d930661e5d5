package types

import (
	"time"
)

type ParticipantInfo struct {
	Name string `json:"name"`
}

type Conversation struct {
	Id               string                     `json:"_id"`
	Participants     []string                   `json:"participants"`
	ParticipantsInfo map[string]ParticipantInfo `json:"participantsInfo"`
	LastMessage      *string                    `json:"lastMessage"`
	CreatedAt        time.Time                  `json:"createdAt"`
	LastMessageAt    time.Time                  `json:"lastMessageAt"`
	UnreadCount      int                        `json:"unreadCount"`
}

// Other returns the participant id that is not userId. For a conversation a
// user has with themselves it returns userId.
func (c Conversation) Other(userId string) string {
	for _, p := range c.Participants {
		if p != userId {
			return p
		}
	}
	return userId
}

type Message struct {
	Id             string    `json:"_id"`
	ConversationId string    `json:"conversationId"`
	SenderId       string    `json:"senderId"`
	SenderName     string    `json:"senderName"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"createdAt"`
}
