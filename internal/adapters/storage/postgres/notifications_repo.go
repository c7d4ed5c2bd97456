package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"pawpal/internal/domain/notifications"
)

type NotificationsRepo struct {
	db *sql.DB
}

func NewNotificationsRepo(db *sql.DB) *NotificationsRepo {
	return &NotificationsRepo{db: db}
}

const notificationColumns = `id, user_id, kind, title, body, data, read, read_at, created_at`

func (r *NotificationsRepo) Create(ctx context.Context, n notifications.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		n.ID,
		n.UserID,
		string(n.Kind),
		n.Title,
		n.Body,
		data,
		n.Read,
		nullTime(n.ReadAt),
		n.CreatedAt,
	)
	return err
}

func (r *NotificationsRepo) GetByID(ctx context.Context, id string) (notifications.Notification, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return notifications.Notification{}, notifications.ErrNotFound
	}
	return n, err
}

func (r *NotificationsRepo) ListByUser(ctx context.Context, userID string, limit int) ([]notifications.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]notifications.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationsRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT read
	`, userID).Scan(&n)
	return n, err
}

func (r *NotificationsRepo) MarkRead(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = true, read_at = $2 WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return notifications.ErrNotFound
	}
	return nil
}

func (r *NotificationsRepo) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = true, read_at = $2 WHERE user_id = $1 AND NOT read
	`, userID, at)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *NotificationsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return notifications.ErrNotFound
	}
	return nil
}

func scanNotification(s scanner) (notifications.Notification, error) {
	var n notifications.Notification
	var kind string
	var data []byte
	var readAt sql.NullTime
	if err := s.Scan(
		&n.ID,
		&n.UserID,
		&kind,
		&n.Title,
		&n.Body,
		&data,
		&n.Read,
		&readAt,
		&n.CreatedAt,
	); err != nil {
		return notifications.Notification{}, err
	}
	n.Kind = notifications.Kind(kind)
	n.ReadAt = timePtr(readAt)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return notifications.Notification{}, err
		}
	}
	return n, nil
}

type DeviceTokensRepo struct {
	db *sql.DB
}

func NewDeviceTokensRepo(db *sql.DB) *DeviceTokensRepo {
	return &DeviceTokensRepo{db: db}
}

func (r *DeviceTokensRepo) Upsert(ctx context.Context, t notifications.DeviceToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_tokens (user_id, token, platform, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (user_id, token)
		DO UPDATE SET platform = EXCLUDED.platform, updated_at = EXCLUDED.updated_at
	`, t.UserID, t.Token, t.Platform, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *DeviceTokensRepo) Delete(ctx context.Context, userID, token string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM device_tokens WHERE user_id = $1 AND token = $2
	`, userID, token)
	return err
}

func (r *DeviceTokensRepo) ListByUser(ctx context.Context, userID string) ([]notifications.DeviceToken, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, token, platform, created_at, updated_at
		FROM device_tokens
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]notifications.DeviceToken, 0)
	for rows.Next() {
		var t notifications.DeviceToken
		if err := rows.Scan(&t.UserID, &t.Token, &t.Platform, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
