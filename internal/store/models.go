package store

import (
	"database/sql"
	"time"
)

type Conversation struct {
	Id            string
	UserA         string
	UserB         string
	NameA         string
	NameB         string
	LastMessage   sql.NullString
	CreatedAt     time.Time
	LastMessageAt time.Time
	UnreadCount   int
}

// OtherParticipant returns the participant that is not userId.
func (c Conversation) OtherParticipant(userId string) string {
	if c.UserA != userId {
		return c.UserA
	}
	return c.UserB
}

type Message struct {
	Id             string
	ConversationId string
	SenderId       string
	SenderName     string
	Content        string
	Read           bool
	CreatedAt      time.Time
}

type CreateConversationParams struct {
	UserId1   string
	UserId2   string
	User1Name string
	User2Name string
}

type AppendMessageParams struct {
	ConversationId string
	SenderId       string
	SenderName     string
	Content        string
}
