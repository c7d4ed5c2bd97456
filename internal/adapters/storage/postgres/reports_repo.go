package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"pawpal/internal/domain/reports"
)

type ReportsRepo struct {
	db *sql.DB
}

func NewReportsRepo(db *sql.DB) *ReportsRepo {
	return &ReportsRepo{db: db}
}

const reportColumns = `
	id, reporter_id, target_type, target_id, reason,
	status, admin_note, reviewed_by, reviewed_at,
	created_at, updated_at`

func (r *ReportsRepo) Create(ctx context.Context, rep reports.Report) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reports (`+reportColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		rep.ID,
		rep.ReporterID,
		string(rep.TargetType),
		rep.TargetID,
		rep.Reason,
		string(rep.Status),
		rep.AdminNote,
		rep.ReviewedBy,
		nullTime(rep.ReviewedAt),
		rep.CreatedAt,
		rep.UpdatedAt,
	)
	return err
}

func (r *ReportsRepo) Update(ctx context.Context, rep reports.Report) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports
		SET
			status = $2,
			admin_note = $3,
			reviewed_by = $4,
			reviewed_at = $5,
			updated_at = $6
		WHERE id = $1
	`,
		rep.ID,
		string(rep.Status),
		rep.AdminNote,
		rep.ReviewedBy,
		nullTime(rep.ReviewedAt),
		rep.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return reports.ErrNotFound
	}
	return nil
}

func (r *ReportsRepo) GetByID(ctx context.Context, id string) (reports.Report, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return reports.Report{}, reports.ErrNotFound
	}
	rep, err := scanReport(r.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return reports.Report{}, reports.ErrNotFound
	}
	return rep, err
}

func (r *ReportsRepo) List(ctx context.Context, status reports.Status) ([]reports.Report, error) {
	if status == "" {
		return r.list(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY created_at DESC`)
	}
	return r.list(ctx, `SELECT `+reportColumns+` FROM reports WHERE status = $1 ORDER BY created_at DESC`, string(status))
}

func (r *ReportsRepo) ListByReporter(ctx context.Context, reporterID string) ([]reports.Report, error) {
	return r.list(ctx, `SELECT `+reportColumns+` FROM reports WHERE reporter_id = $1 ORDER BY created_at DESC`, reporterID)
}

func (r *ReportsRepo) list(ctx context.Context, query string, args ...any) ([]reports.Report, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]reports.Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func scanReport(s scanner) (reports.Report, error) {
	var (
		rep        reports.Report
		targetType string
		status     string
		reviewedAt sql.NullTime
	)
	err := s.Scan(
		&rep.ID,
		&rep.ReporterID,
		&targetType,
		&rep.TargetID,
		&rep.Reason,
		&status,
		&rep.AdminNote,
		&rep.ReviewedBy,
		&reviewedAt,
		&rep.CreatedAt,
		&rep.UpdatedAt,
	)
	rep.TargetType = reports.TargetType(targetType)
	rep.Status = reports.Status(status)
	rep.ReviewedAt = timePtr(reviewedAt)
	return rep, err
}
