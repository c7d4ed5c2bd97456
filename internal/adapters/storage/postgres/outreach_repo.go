package postgres

import (
	"context"
	"database/sql"
	"errors"

	"pawpal/internal/domain/outreach"
)

type OutreachEventsRepo struct {
	db *sql.DB
}

func NewOutreachEventsRepo(db *sql.DB) *OutreachEventsRepo {
	return &OutreachEventsRepo{db: db}
}

const outreachColumns = `
	id, organizer_id, title, description, location, photo_url,
	starts_at, registration_deadline, capacity,
	created_at, updated_at`

func (r *OutreachEventsRepo) Create(ctx context.Context, e outreach.Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outreach_events (`+outreachColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		e.ID, e.OrganizerID, e.Title, e.Description, e.Location, e.PhotoURL,
		e.StartsAt, nullTime(e.RegistrationDeadline), e.Capacity,
		e.CreatedAt, e.UpdatedAt,
	)
	return err
}

func (r *OutreachEventsRepo) Update(ctx context.Context, e outreach.Event) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outreach_events
		SET
			title = $2,
			description = $3,
			location = $4,
			photo_url = $5,
			starts_at = $6,
			registration_deadline = $7,
			capacity = $8,
			updated_at = $9
		WHERE id = $1
	`,
		e.ID, e.Title, e.Description, e.Location, e.PhotoURL,
		e.StartsAt, nullTime(e.RegistrationDeadline), e.Capacity, e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

func (r *OutreachEventsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM outreach_events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotFound
	}
	return nil
}

func (r *OutreachEventsRepo) GetByID(ctx context.Context, id string) (outreach.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+outreachColumns+` FROM outreach_events WHERE id = $1`, id)
	e, err := scanOutreachEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return outreach.Event{}, outreach.ErrNotFound
	}
	return e, err
}

func (r *OutreachEventsRepo) List(ctx context.Context, f outreach.ListFilter) ([]outreach.Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	var from sql.NullTime
	if !f.From.IsZero() {
		from = sql.NullTime{Time: f.From, Valid: true}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+outreachColumns+`
		FROM outreach_events
		WHERE ($1 = '' OR organizer_id = $1)
		  AND ($2::timestamptz IS NULL OR starts_at >= $2)
		ORDER BY starts_at ASC
		LIMIT $3
	`, f.OrganizerID, from, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]outreach.Event, 0)
	for rows.Next() {
		e, err := scanOutreachEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanOutreachEvent(s scanner) (outreach.Event, error) {
	var e outreach.Event
	var deadline sql.NullTime
	err := s.Scan(
		&e.ID, &e.OrganizerID, &e.Title, &e.Description, &e.Location, &e.PhotoURL,
		&e.StartsAt, &deadline, &e.Capacity,
		&e.CreatedAt, &e.UpdatedAt,
	)
	e.RegistrationDeadline = timePtr(deadline)
	return e, err
}

type RegistrationsRepo struct {
	db *sql.DB
}

func NewRegistrationsRepo(db *sql.DB) *RegistrationsRepo {
	return &RegistrationsRepo{db: db}
}

// Create inserta solo si hay lugar; el unique (event_id, user_id) cubre duplicados.
func (r *RegistrationsRepo) Create(ctx context.Context, reg outreach.Registration, capacity int) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO event_registrations (id, event_id, user_id, organizer_id, note, created_at)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE $7 = 0 OR (SELECT count(*) FROM event_registrations WHERE event_id = $2) < $7
	`, reg.ID, reg.EventID, reg.UserID, reg.OrganizerID, reg.Note, reg.CreatedAt, capacity)
	if isUniqueViolation(err) {
		return outreach.ErrAlreadyRegistered
	}
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrEventFull
	}
	return nil
}

func (r *RegistrationsRepo) Delete(ctx context.Context, eventID, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM event_registrations WHERE event_id = $1 AND user_id = $2
	`, eventID, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return outreach.ErrNotRegistered
	}
	return nil
}

func (r *RegistrationsRepo) DeleteByEvent(ctx context.Context, eventID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM event_registrations WHERE event_id = $1`, eventID)
	return err
}

func (r *RegistrationsRepo) ListByEvent(ctx context.Context, eventID string) ([]outreach.Registration, error) {
	return r.list(ctx, `WHERE event_id = $1`, eventID)
}

func (r *RegistrationsRepo) ListByUser(ctx context.Context, userID string) ([]outreach.Registration, error) {
	return r.list(ctx, `WHERE user_id = $1`, userID)
}

func (r *RegistrationsRepo) list(ctx context.Context, where string, arg string) ([]outreach.Registration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, user_id, organizer_id, note, created_at
		FROM event_registrations
		`+where+`
		ORDER BY created_at ASC
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]outreach.Registration, 0)
	for rows.Next() {
		var reg outreach.Registration
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.OrganizerID, &reg.Note, &reg.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}
