package messaging

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pawpal/internal/domain/notifications"
	"pawpal/internal/platform/cache"
	"pawpal/internal/realtime"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("conversation not found")
)

const (
	Table = "messages"

	maxBodyLen       = 4000
	defaultPageLimit = 100
)

type Profiles interface {
	DisplayName(ctx context.Context, userID string) string
}

type Notifier interface {
	Notify(ctx context.Context, userID string, kind notifications.Kind, title, body string, data map[string]string) error
}

type Service struct {
	repo     Repository
	cache    *cache.Cache
	profiles Profiles
	notifier Notifier
	pub      realtime.Publisher
	now      func() time.Time
}

func NewService(repo Repository, c *cache.Cache, profiles Profiles, notifier Notifier, pub realtime.Publisher) *Service {
	return &Service{
		repo:     repo,
		cache:    c,
		profiles: profiles,
		notifier: notifier,
		pub:      pub,
		now:      time.Now,
	}
}

func conversationsKey(userID string) cache.Key { return cache.Key{"conversations", userID} }
func messagesKey(conversationID string) cache.Key { return cache.Key{"messages", conversationID} }

// StartConversation devuelve la conversación del par, creándola si no existe.
func (s *Service) StartConversation(ctx context.Context, userID, otherID string) (Conversation, bool, error) {
	userID = strings.TrimSpace(userID)
	otherID = strings.TrimSpace(otherID)
	if userID == "" || otherID == "" || userID == otherID {
		return Conversation{}, false, ErrInvalidInput
	}

	a, b := orderedPair(userID, otherID)
	c, err := s.repo.GetByPair(ctx, a, b)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Conversation{}, false, err
	}

	now := s.now()
	c = Conversation{ID: uuid.NewString(), UserA: a, UserB: b, CreatedAt: now, LastMessageAt: now}
	if err := s.repo.CreateConversation(ctx, c); err != nil {
		return Conversation{}, false, err
	}
	s.cache.Invalidate(conversationsKey(a), conversationsKey(b))
	return c, true, nil
}

func (s *Service) conversation(ctx context.Context, conversationID, userID string) (Conversation, error) {
	c, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return Conversation{}, err
	}
	// para quien no participa, la conversación no existe
	if !c.Has(userID) {
		return Conversation{}, ErrNotFound
	}
	return c, nil
}

// Send agrega el mensaje de forma optimista al cache del hilo y lo revierte si
// el insert falla. Después publica el INSERT y notifica al destinatario.
func (s *Service) Send(ctx context.Context, conversationID, senderID, body string) (Message, error) {
	body = strings.TrimSpace(body)
	if body == "" || len([]rune(body)) > maxBodyLen {
		return Message{}, fmt.Errorf("%w: body must be 1-%d characters", ErrInvalidInput, maxBodyLen)
	}
	c, err := s.conversation(ctx, conversationID, senderID)
	if err != nil {
		return Message{}, err
	}

	m := Message{
		ID:             uuid.NewString(),
		ConversationID: c.ID,
		SenderID:       senderID,
		RecipientID:    c.Other(senderID),
		Body:           body,
		CreatedAt:      s.now(),
	}

	rollback := cache.Update(s.cache, messagesKey(c.ID), func(old []Message, ok bool) []Message {
		out := make([]Message, 0, len(old)+1)
		out = append(out, old...)
		return append(out, m)
	})
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		rollback()
		return Message{}, err
	}
	if err := s.repo.TouchConversation(ctx, c.ID, m.CreatedAt); err != nil {
		return Message{}, err
	}

	s.cache.Invalidate(messagesKey(c.ID), conversationsKey(c.UserA), conversationsKey(c.UserB))

	if s.pub != nil {
		s.pub.Publish(ctx, realtime.Change{
			Table:  Table,
			Type:   realtime.Insert,
			Record: toRecord(m),
			At:     m.CreatedAt,
		})
	}
	if s.notifier != nil {
		name := "Someone"
		if s.profiles != nil {
			name = s.profiles.DisplayName(ctx, senderID)
		}
		_ = s.notifier.Notify(ctx, m.RecipientID, notifications.KindMessage,
			"New message from "+name, preview(body),
			map[string]string{"conversation_id": c.ID, "message_id": m.ID})
	}
	return m, nil
}

func preview(body string) string {
	r := []rune(body)
	if len(r) <= 80 {
		return body
	}
	return string(r[:77]) + "..."
}

// ListConversations arma la bandeja: último mensaje y no leídos por hilo,
// ordenada por actividad.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]Summary, error) {
	return cache.Fetch(ctx, s.cache, conversationsKey(userID), func(ctx context.Context) ([]Summary, error) {
		convs, err := s.repo.ListConversations(ctx, userID)
		if err != nil {
			return nil, err
		}
		out := make([]Summary, 0, len(convs))
		for _, c := range convs {
			last, err := s.repo.ListMessages(ctx, c.ID, 1)
			if err != nil {
				return nil, err
			}
			unread, err := s.repo.CountUnread(ctx, c.ID, userID)
			if err != nil {
				return nil, err
			}
			sum := Summary{Conversation: c, OtherUserID: c.Other(userID), Unread: unread}
			if len(last) == 1 {
				m := last[0]
				sum.LastMessage = &m
			}
			out = append(out, sum)
		}
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Conversation.LastMessageAt.After(out[j].Conversation.LastMessageAt)
		})
		return out, nil
	})
}

func (s *Service) ListMessages(ctx context.Context, conversationID, userID string, limit int) ([]Message, error) {
	c, err := s.conversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	items, err := cache.Fetch(ctx, s.cache, messagesKey(c.ID), func(ctx context.Context) ([]Message, error) {
		return s.repo.ListMessages(ctx, c.ID, defaultPageLimit)
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items, nil
}

// MarkRead marca como leídos los mensajes recibidos en el hilo.
func (s *Service) MarkRead(ctx context.Context, conversationID, userID string) (int, error) {
	c, err := s.conversation(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.MarkRead(ctx, c.ID, userID, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.cache.Invalidate(messagesKey(c.ID), conversationsKey(userID))
	}
	return n, nil
}
