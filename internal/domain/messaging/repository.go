package messaging

import (
	"context"
	"time"
)

type Repository interface {
	CreateConversation(ctx context.Context, c Conversation) error
	GetConversation(ctx context.Context, id string) (Conversation, error)
	// GetByPair recibe el par ya ordenado.
	GetByPair(ctx context.Context, userA, userB string) (Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
	TouchConversation(ctx context.Context, id string, at time.Time) error

	CreateMessage(ctx context.Context, m Message) error
	// ListMessages devuelve los últimos limit mensajes en orden cronológico.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)
	CountUnread(ctx context.Context, conversationID, recipientID string) (int, error)
	MarkRead(ctx context.Context, conversationID, recipientID string, at time.Time) (int, error)
}
