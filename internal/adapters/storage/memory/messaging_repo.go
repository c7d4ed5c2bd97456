package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pawpal/internal/domain/messaging"
)

type messagingRepo struct {
	mu    sync.RWMutex
	convs map[string]messaging.Conversation
	msgs  []messaging.Message
}

func NewMessagingRepo() messaging.Repository {
	return &messagingRepo{convs: make(map[string]messaging.Conversation)}
}

func (r *messagingRepo) CreateConversation(ctx context.Context, c messaging.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convs[c.ID] = c
	return nil
}

func (r *messagingRepo) GetConversation(ctx context.Context, id string) (messaging.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.convs[id]
	if !ok {
		return messaging.Conversation{}, messaging.ErrNotFound
	}
	return c, nil
}

func (r *messagingRepo) GetByPair(ctx context.Context, userA, userB string) (messaging.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.convs {
		if c.UserA == userA && c.UserB == userB {
			return c, nil
		}
	}
	return messaging.Conversation{}, messaging.ErrNotFound
}

func (r *messagingRepo) ListConversations(ctx context.Context, userID string) ([]messaging.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]messaging.Conversation, 0)
	for _, c := range r.convs {
		if c.Has(userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, nil
}

func (r *messagingRepo) TouchConversation(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return messaging.ErrNotFound
	}
	c.LastMessageAt = at
	r.convs[id] = c
	return nil
}

func (r *messagingRepo) CreateMessage(ctx context.Context, m messaging.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *messagingRepo) ListMessages(ctx context.Context, conversationID string, limit int) ([]messaging.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]messaging.Message, 0)
	for _, m := range r.msgs {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *messagingRepo) CountUnread(ctx context.Context, conversationID, recipientID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, m := range r.msgs {
		if m.ConversationID == conversationID && m.RecipientID == recipientID && m.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func (r *messagingRepo) MarkRead(ctx context.Context, conversationID, recipientID string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for i := range r.msgs {
		m := &r.msgs[i]
		if m.ConversationID == conversationID && m.RecipientID == recipientID && m.ReadAt == nil {
			t := at
			m.ReadAt = &t
			n++
		}
	}
	return n, nil
}
