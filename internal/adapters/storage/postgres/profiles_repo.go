package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"pawpal/internal/domain/profiles"

	"github.com/jackc/pgx/v5/pgconn"
)

type ProfilesRepo struct {
	db *sql.DB
}

func NewProfilesRepo(db *sql.DB) *ProfilesRepo {
	return &ProfilesRepo{db: db}
}

const profileColumns = `
	id, email, display_name, bio, avatar_url,
	role, organization_name, suspended,
	created_at, updated_at`

func (r *ProfilesRepo) Create(ctx context.Context, p profiles.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		p.ID,
		p.Email,
		p.DisplayName,
		p.Bio,
		p.AvatarURL,
		string(p.Role),
		p.OrganizationName,
		p.Suspended,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return profiles.ErrAlreadyExists
	}
	return err
}

func (r *ProfilesRepo) Update(ctx context.Context, p profiles.Profile) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET
			display_name = $2,
			bio = $3,
			avatar_url = $4,
			role = $5,
			organization_name = $6,
			suspended = $7,
			updated_at = $8
		WHERE id = $1
	`,
		p.ID,
		p.DisplayName,
		p.Bio,
		p.AvatarURL,
		string(p.Role),
		p.OrganizationName,
		p.Suspended,
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return profiles.ErrNotFound
	}
	return nil
}

func (r *ProfilesRepo) GetByID(ctx context.Context, id string) (profiles.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return profiles.Profile{}, profiles.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	return p, err
}

func (r *ProfilesRepo) List(ctx context.Context, filter profiles.ListFilter) ([]profiles.Profile, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE ($1 = '' OR role = $1)
		  AND ($2 = '' OR display_name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
		LIMIT $3
	`, string(filter.Role), strings.TrimSpace(filter.Query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]profiles.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProfile(s scanner) (profiles.Profile, error) {
	var p profiles.Profile
	var role string
	err := s.Scan(
		&p.ID,
		&p.Email,
		&p.DisplayName,
		&p.Bio,
		&p.AvatarURL,
		&role,
		&p.OrganizationName,
		&p.Suspended,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	p.Role = profiles.Role(role)
	return p, err
}

// isUniqueViolation detecta 23505 (unique_violation) del driver pgx.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
