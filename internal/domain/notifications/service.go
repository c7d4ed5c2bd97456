package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"pawpal/internal/platform/cache"
	"pawpal/internal/platform/logger"
	"pawpal/internal/realtime"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("notification not found")
)

const (
	Table = "notifications"

	defaultListLimit = 50
	pushTimeout      = 30 * time.Second
)

// Pusher despacha el push de una notificación recién creada.
type Pusher interface {
	Push(ctx context.Context, n Notification) error
}

type Service struct {
	repo   Repository
	tokens TokenRepository
	cache  *cache.Cache
	pub    realtime.Publisher
	pusher Pusher
	log    logger.Logger
	now    func() time.Time
}

// NewService crea el servicio. pub y pusher son opcionales; con pusher != nil
// cada insert dispara el push en segundo plano.
func NewService(repo Repository, tokens TokenRepository, c *cache.Cache, pub realtime.Publisher, pusher Pusher, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:   repo,
		tokens: tokens,
		cache:  c,
		pub:    pub,
		pusher: pusher,
		log:    log.With(logger.Fields{"component": "notifications"}),
		now:    time.Now,
	}
}

func userKey(userID string) cache.Key { return cache.Key{"notifications", userID} }
func listKey(userID string) cache.Key { return cache.Key{"notifications", userID, "list"} }
func unreadKey(userID string) cache.Key { return cache.Key{"notifications", userID, "unread"} }
func tokensKey(userID string) cache.Key { return cache.Key{"device_tokens", userID} }

type CreateInput struct {
	UserID string
	Kind   Kind
	Title  string
	Body   string
	Data   map[string]string
}

// Create inserta la notificación, la publica por realtime y dispara el push.
func (s *Service) Create(ctx context.Context, in CreateInput) (Notification, error) {
	userID := strings.TrimSpace(in.UserID)
	title := strings.TrimSpace(in.Title)
	if userID == "" || title == "" {
		return Notification{}, ErrInvalidInput
	}
	kind := in.Kind
	if kind == "" {
		kind = KindSystem
	}

	n := Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Body:      strings.TrimSpace(in.Body),
		Data:      in.Data,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return Notification{}, err
	}

	s.cache.Invalidate(userKey(userID))

	if s.pub != nil {
		s.pub.Publish(ctx, realtime.Change{
			Table:  Table,
			Type:   realtime.Insert,
			Record: ToRecord(n),
			At:     n.CreatedAt,
		})
	}
	if s.pusher != nil {
		go s.push(n)
	}
	return n, nil
}

// Notify es el atajo que usan los otros servicios.
func (s *Service) Notify(ctx context.Context, userID string, kind Kind, title, body string, data map[string]string) error {
	_, err := s.Create(ctx, CreateInput{UserID: userID, Kind: kind, Title: title, Body: body, Data: data})
	return err
}

func (s *Service) push(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	if err := s.pusher.Push(ctx, n); err != nil {
		s.log.Warn("push dispatch failed", logger.Fields{"notification_id": n.ID, "user_id": n.UserID, "err": err})
	}
}

func (s *Service) List(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultListLimit
	}
	items, err := cache.Fetch(ctx, s.cache, listKey(userID), func(ctx context.Context) ([]Notification, error) {
		return s.repo.ListByUser(ctx, userID, 200)
	})
	if err != nil {
		return nil, err
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return cache.Fetch(ctx, s.cache, unreadKey(userID), func(ctx context.Context) (int, error) {
		return s.repo.CountUnread(ctx, userID)
	})
}

// MarkRead marca una notificación propia como leída. Aplica el cambio
// optimista en el cache y lo revierte si el repo falla.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrNotFound
	}
	if n.Read {
		return nil
	}

	rollbackList := cache.Update(s.cache, listKey(userID), func(old []Notification, ok bool) []Notification {
		out := make([]Notification, len(old))
		copy(out, old)
		for i := range out {
			if out[i].ID == id {
				out[i].Read = true
			}
		}
		return out
	})
	rollbackCount := cache.Update(s.cache, unreadKey(userID), func(old int, ok bool) int {
		if old > 0 {
			return old - 1
		}
		return 0
	})

	if err := s.repo.MarkRead(ctx, id, s.now()); err != nil {
		rollbackList()
		rollbackCount()
		return err
	}
	s.cache.Invalidate(userKey(userID))
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, err
	}
	s.cache.Invalidate(userKey(userID))
	return n, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(userKey(userID))
	return nil
}

// ---- device tokens ----

func (s *Service) RegisterToken(ctx context.Context, userID, token, platform string) (DeviceToken, error) {
	userID = strings.TrimSpace(userID)
	token = strings.TrimSpace(token)
	if userID == "" || token == "" {
		return DeviceToken{}, ErrInvalidInput
	}
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform == "" {
		platform = "android"
	}

	now := s.now()
	t := DeviceToken{UserID: userID, Token: token, Platform: platform, CreatedAt: now, UpdatedAt: now}
	if err := s.tokens.Upsert(ctx, t); err != nil {
		return DeviceToken{}, err
	}
	s.cache.Invalidate(tokensKey(userID))
	return t, nil
}

func (s *Service) UnregisterToken(ctx context.Context, userID, token string) error {
	if err := s.tokens.Delete(ctx, userID, strings.TrimSpace(token)); err != nil {
		return err
	}
	s.cache.Invalidate(tokensKey(userID))
	return nil
}

func (s *Service) ListTokens(ctx context.Context, userID string) ([]DeviceToken, error) {
	return cache.Fetch(ctx, s.cache, tokensKey(userID), func(ctx context.Context) ([]DeviceToken, error) {
		return s.tokens.ListByUser(ctx, userID)
	})
}
