package postgres

import (
	"context"
	"database/sql"
	"errors"

	"pawpal/internal/domain/challenges"
)

type ChallengesRepo struct {
	db *sql.DB
}

func NewChallengesRepo(db *sql.DB) *ChallengesRepo {
	return &ChallengesRepo{db: db}
}

const challengeColumns = `id, title, description, starts_at, ends_at, created_by, created_at, updated_at`

func (r *ChallengesRepo) Create(ctx context.Context, c challenges.Challenge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO challenges (`+challengeColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, c.ID, c.Title, c.Description, c.StartsAt, c.EndsAt, c.CreatedBy, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *ChallengesRepo) Update(ctx context.Context, c challenges.Challenge) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE challenges
		SET title = $2, description = $3, starts_at = $4, ends_at = $5, updated_at = $6
		WHERE id = $1
	`, c.ID, c.Title, c.Description, c.StartsAt, c.EndsAt, c.UpdatedAt)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return challenges.ErrNotFound
	}
	return nil
}

// Delete depende de ON DELETE CASCADE para entradas y votos.
func (r *ChallengesRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM challenges WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return challenges.ErrNotFound
	}
	return nil
}

func (r *ChallengesRepo) GetByID(ctx context.Context, id string) (challenges.Challenge, error) {
	var c challenges.Challenge
	err := r.db.QueryRowContext(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id).
		Scan(&c.ID, &c.Title, &c.Description, &c.StartsAt, &c.EndsAt, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return challenges.Challenge{}, challenges.ErrNotFound
	}
	return c, err
}

func (r *ChallengesRepo) List(ctx context.Context) ([]challenges.Challenge, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+challengeColumns+` FROM challenges ORDER BY starts_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]challenges.Challenge, 0)
	for rows.Next() {
		var c challenges.Challenge
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.StartsAt, &c.EndsAt, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ChallengesRepo) CreateEntry(ctx context.Context, e challenges.Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO challenge_entries (id, challenge_id, pet_id, user_id, photo_url, caption, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, e.ID, e.ChallengeID, e.PetID, e.UserID, e.PhotoURL, e.Caption, e.CreatedAt)
	if isUniqueViolation(err) {
		return challenges.ErrAlreadyEntered
	}
	return err
}

const entrySelect = `
	SELECT e.id, e.challenge_id, e.pet_id, e.user_id, e.photo_url, e.caption, e.created_at,
	       (SELECT count(*) FROM challenge_votes v WHERE v.entry_id = e.id) AS votes
	FROM challenge_entries e`

func scanEntry(s scanner) (challenges.Entry, error) {
	var e challenges.Entry
	err := s.Scan(&e.ID, &e.ChallengeID, &e.PetID, &e.UserID, &e.PhotoURL, &e.Caption, &e.CreatedAt, &e.Votes)
	return e, err
}

func (r *ChallengesRepo) GetEntry(ctx context.Context, id string) (challenges.Entry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, entrySelect+` WHERE e.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return challenges.Entry{}, challenges.ErrEntryNotFound
	}
	return e, err
}

func (r *ChallengesRepo) ListEntries(ctx context.Context, challengeID string) ([]challenges.Entry, error) {
	rows, err := r.db.QueryContext(ctx, entrySelect+` WHERE e.challenge_id = $1 ORDER BY e.created_at ASC`, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]challenges.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *ChallengesRepo) DeleteEntry(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM challenge_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return challenges.ErrEntryNotFound
	}
	return nil
}

func (r *ChallengesRepo) AddVote(ctx context.Context, v challenges.Vote) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO challenge_votes (entry_id, challenge_id, user_id, created_at)
		VALUES ($1,$2,$3,$4)
	`, v.EntryID, v.ChallengeID, v.UserID, v.CreatedAt)
	if isUniqueViolation(err) {
		return challenges.ErrAlreadyVoted
	}
	return err
}

func (r *ChallengesRepo) RemoveVote(ctx context.Context, entryID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM challenge_votes WHERE entry_id = $1 AND user_id = $2`, entryID, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return challenges.ErrNotVoted
	}
	return nil
}

func (r *ChallengesRepo) VotedEntries(ctx context.Context, challengeID, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT entry_id FROM challenge_votes WHERE challenge_id = $1 AND user_id = $2
	`, challengeID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
