package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pawpal/internal/domain/messaging"
)

type MessagingRepo struct {
	db *sql.DB
}

func NewMessagingRepo(db *sql.DB) *MessagingRepo {
	return &MessagingRepo{db: db}
}

const conversationColumns = `id, user_a, user_b, created_at, last_message_at`

func (r *MessagingRepo) CreateConversation(ctx context.Context, c messaging.Conversation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES ($1,$2,$3,$4,$5)
	`, c.ID, c.UserA, c.UserB, c.CreatedAt, c.LastMessageAt)
	return err
}

func (r *MessagingRepo) GetConversation(ctx context.Context, id string) (messaging.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	return scanConversation(row)
}

func (r *MessagingRepo) GetByPair(ctx context.Context, userA, userB string) (messaging.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+conversationColumns+` FROM conversations WHERE user_a = $1 AND user_b = $2
	`, userA, userB)
	return scanConversation(row)
}

func (r *MessagingRepo) ListConversations(ctx context.Context, userID string) ([]messaging.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE user_a = $1 OR user_b = $1
		ORDER BY last_message_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]messaging.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *MessagingRepo) TouchConversation(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversations SET last_message_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return messaging.ErrNotFound
	}
	return nil
}

func scanConversation(s scanner) (messaging.Conversation, error) {
	var c messaging.Conversation
	err := s.Scan(&c.ID, &c.UserA, &c.UserB, &c.CreatedAt, &c.LastMessageAt)
	if errors.Is(err, sql.ErrNoRows) {
		return messaging.Conversation{}, messaging.ErrNotFound
	}
	return c, err
}

func (r *MessagingRepo) CreateMessage(ctx context.Context, m messaging.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, recipient_id, body, read_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, m.ID, m.ConversationID, m.SenderID, m.RecipientID, m.Body, nullTime(m.ReadAt), m.CreatedAt)
	return err
}

// ListMessages toma los últimos limit y los devuelve en orden cronológico.
func (r *MessagingRepo) ListMessages(ctx context.Context, conversationID string, limit int) ([]messaging.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, recipient_id, body, read_at, created_at
		FROM (
			SELECT * FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) last
		ORDER BY created_at ASC
	`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]messaging.Message, 0)
	for rows.Next() {
		var m messaging.Message
		var readAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.RecipientID, &m.Body, &readAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ReadAt = timePtr(readAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MessagingRepo) CountUnread(ctx context.Context, conversationID, recipientID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM messages
		WHERE conversation_id = $1 AND recipient_id = $2 AND read_at IS NULL
	`, conversationID, recipientID).Scan(&n)
	return n, err
}

func (r *MessagingRepo) MarkRead(ctx context.Context, conversationID, recipientID string, at time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET read_at = $3
		WHERE conversation_id = $1 AND recipient_id = $2 AND read_at IS NULL
	`, conversationID, recipientID, at)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
