package notifications

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, n Notification) error
	GetByID(ctx context.Context, id string) (Notification, error)
	// ListByUser devuelve las más nuevas primero.
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)
	Delete(ctx context.Context, id string) error
}

type TokenRepository interface {
	// Upsert por (user_id, token).
	Upsert(ctx context.Context, t DeviceToken) error
	Delete(ctx context.Context, userID, token string) error
	// ListByUser devuelve en orden de registro; puede traer duplicados entre plataformas.
	ListByUser(ctx context.Context, userID string) ([]DeviceToken, error)
}
