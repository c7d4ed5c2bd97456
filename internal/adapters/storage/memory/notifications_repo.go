package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pawpal/internal/domain/notifications"
)

type notificationRepo struct {
	mu   sync.RWMutex
	byID map[string]notifications.Notification
}

func NewNotificationRepo() notifications.Repository {
	return &notificationRepo{
		byID: make(map[string]notifications.Notification),
	}
}

func (r *notificationRepo) Create(ctx context.Context, n notifications.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[n.ID] = n
	return nil
}

func (r *notificationRepo) GetByID(ctx context.Context, id string) (notifications.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.byID[id]
	if !ok {
		return notifications.Notification{}, notifications.ErrNotFound
	}
	return n, nil
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]notifications.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]notifications.Notification, 0)
	for _, n := range r.byID {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *notificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := 0
	for _, n := range r.byID {
		if n.UserID == userID && !n.Read {
			c++
		}
	}
	return c, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.byID[id]
	if !ok {
		return notifications.ErrNotFound
	}
	n.Read = true
	n.ReadAt = &at
	r.byID[id] = n
	return nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := 0
	for id, n := range r.byID {
		if n.UserID != userID || n.Read {
			continue
		}
		n.Read = true
		n.ReadAt = &at
		r.byID[id] = n
		c++
	}
	return c, nil
}

func (r *notificationRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return notifications.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type deviceTokenRepo struct {
	mu    sync.RWMutex
	items []notifications.DeviceToken
}

func NewDeviceTokenRepo() notifications.TokenRepository {
	return &deviceTokenRepo{}
}

func (r *deviceTokenRepo) Upsert(ctx context.Context, t notifications.DeviceToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, it := range r.items {
		if it.UserID == t.UserID && it.Token == t.Token {
			t.CreatedAt = it.CreatedAt
			r.items[i] = t
			return nil
		}
	}
	r.items = append(r.items, t)
	return nil
}

func (r *deviceTokenRepo) Delete(ctx context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.items[:0]
	for _, it := range r.items {
		if it.UserID == userID && it.Token == token {
			continue
		}
		out = append(out, it)
	}
	r.items = out
	return nil
}

func (r *deviceTokenRepo) ListByUser(ctx context.Context, userID string) ([]notifications.DeviceToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]notifications.DeviceToken, 0)
	for _, it := range r.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}
