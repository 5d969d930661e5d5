package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	defaultMessageLimit = 50

	conversationColumns = "id, user_a, user_b, name_a, name_b, last_message, created_at, last_message_at"
	messageColumns      = "id, conversation_id, sender_id, sender_name, content, read, created_at"
)

func scanConversation(row *sql.Row) (Conversation, error) {
	var c Conversation
	err := row.Scan(
		&c.Id,
		&c.UserA,
		&c.UserB,
		&c.NameA,
		&c.NameB,
		&c.LastMessage,
		&c.CreatedAt,
		&c.LastMessageAt,
	)

	return c, err
}

// orderPair returns the participant pair in lexicographic order with the
// display names following their users. Conversations are stored with the
// ordered pair so the (user_a, user_b) uniqueness constraint holds for the
// unordered pair.
func orderPair(p CreateConversationParams) CreateConversationParams {
	if p.UserId1 > p.UserId2 {
		p.UserId1, p.UserId2 = p.UserId2, p.UserId1
		p.User1Name, p.User2Name = p.User2Name, p.User1Name
	}
	return p
}

func (db *PgRepository) FindOrCreateConversation(ctx context.Context, params CreateConversationParams) (Conversation, error) {
	params = orderPair(params)

	id, err := db.newConversationId()
	if err != nil {
		return Conversation{}, fmt.Errorf("generate conversation id: %w", err)
	}

	// Insert-or-ignore followed by a select keeps creation idempotent and safe
	// under concurrent calls for the same pair.
	now := time.Now().UTC()
	_, err = db.conn.ExecContext(ctx,
		"INSERT INTO conversations (id, user_a, user_b, name_a, name_b, created_at, last_message_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $6) ON CONFLICT (user_a, user_b) DO NOTHING",
		id,
		params.UserId1,
		params.UserId2,
		params.User1Name,
		params.User2Name,
		now,
	)
	if err != nil {
		return Conversation{}, err
	}

	row := db.conn.QueryRowContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations "+
			"WHERE user_a = $1 AND user_b = $2 LIMIT 1",
		params.UserId1,
		params.UserId2,
	)

	return scanConversation(row)
}

func (db *PgRepository) GetConversation(ctx context.Context, conversationId string) (Conversation, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE id = $1 LIMIT 1",
		conversationId,
	)

	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, ErrConversationNotFound
	}

	return c, err
}

func (db *PgRepository) ListConversations(ctx context.Context, userId string) ([]Conversation, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT c.id, c.user_a, c.user_b, c.name_a, c.name_b, c.last_message, c.created_at, c.last_message_at, "+
			"(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id AND m.sender_id <> $1 AND m.read = FALSE) AS unread_count "+
			"FROM conversations c WHERE c.user_a = $1 OR c.user_b = $1 "+
			"ORDER BY c.last_message_at DESC",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations = make([]Conversation, 0)
	for rows.Next() {
		var c Conversation
		if err = rows.Scan(
			&c.Id,
			&c.UserA,
			&c.UserB,
			&c.NameA,
			&c.NameB,
			&c.LastMessage,
			&c.CreatedAt,
			&c.LastMessageAt,
			&c.UnreadCount,
		); err != nil {
			return nil, err
		}

		conversations = append(conversations, c)
	}

	return conversations, rows.Err()
}

func (db *PgRepository) AppendMessage(ctx context.Context, params AppendMessageParams) (Message, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	msg := Message{
		Id:             db.newMessageId(),
		ConversationId: params.ConversationId,
		SenderId:       params.SenderId,
		SenderName:     params.SenderName,
		Content:        params.Content,
		CreatedAt:      time.Now().UTC(),
	}

	// The conversation update doubles as the existence check.
	res, err := tx.ExecContext(ctx,
		"UPDATE conversations SET last_message = $2, last_message_at = $3 WHERE id = $1",
		msg.ConversationId,
		msg.Content,
		msg.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return Message{}, err
	}
	if affected == 0 {
		err = ErrConversationNotFound
		return Message{}, err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO messages (id, conversation_id, sender_id, sender_name, content, read, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, FALSE, $6)",
		msg.Id,
		msg.ConversationId,
		msg.SenderId,
		msg.SenderName,
		msg.Content,
		msg.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return Message{}, err
	}

	return msg, nil
}

func (db *PgRepository) ListMessages(ctx context.Context, conversationId string, limit, offset int) ([]Message, error) {
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM messages "+
			"WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		conversationId,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(
			&msg.Id,
			&msg.ConversationId,
			&msg.SenderId,
			&msg.SenderName,
			&msg.Content,
			&msg.Read,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Fetched most-recent-first, delivered in chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (db *PgRepository) MarkRead(ctx context.Context, conversationId, readerId string) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE messages SET read = TRUE "+
			"WHERE conversation_id = $1 AND sender_id <> $2 AND read = FALSE",
		conversationId,
		readerId,
	)

	return err
}

func (db *PgRepository) DeleteConversation(ctx context.Context, conversationId string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = $1", conversationId)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM conversations WHERE id = $1", conversationId)
	if err != nil {
		return err
	}

	return tx.Commit()
}
