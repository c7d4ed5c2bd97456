package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pawpal/internal/domain/health"
)

// HealthRepo guarda vacunas, tareas, horarios y comidas.
type HealthRepo struct {
	db *sql.DB
}

func NewHealthRepo(db *sql.DB) *HealthRepo {
	return &HealthRepo{db: db}
}

// execOne corre un UPDATE/DELETE y devuelve health.ErrNotFound si no tocó filas.
func (r *HealthRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return health.ErrNotFound
	}
	return nil
}

// ---- vacunas ----

const vaccinationColumns = `id, pet_id, name, date_given, next_due, vet, notes, recorded_by, created_at`

func (r *HealthRepo) CreateVaccination(ctx context.Context, v health.Vaccination) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO vaccinations (`+vaccinationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, v.ID, v.PetID, v.Name, v.DateGiven, nullTime(v.NextDue), v.Vet, v.Notes, v.RecordedBy, v.CreatedAt)
	return err
}

func (r *HealthRepo) UpdateVaccination(ctx context.Context, v health.Vaccination) error {
	return r.execOne(ctx, `
		UPDATE vaccinations
		SET name = $2, date_given = $3, next_due = $4, vet = $5, notes = $6
		WHERE id = $1
	`, v.ID, v.Name, v.DateGiven, nullTime(v.NextDue), v.Vet, v.Notes)
}

func (r *HealthRepo) DeleteVaccination(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM vaccinations WHERE id = $1`, id)
}

func scanVaccination(s scanner) (health.Vaccination, error) {
	var v health.Vaccination
	var next sql.NullTime
	err := s.Scan(&v.ID, &v.PetID, &v.Name, &v.DateGiven, &next, &v.Vet, &v.Notes, &v.RecordedBy, &v.CreatedAt)
	v.NextDue = timePtr(next)
	return v, err
}

func (r *HealthRepo) GetVaccination(ctx context.Context, id string) (health.Vaccination, error) {
	v, err := scanVaccination(r.db.QueryRowContext(ctx, `SELECT `+vaccinationColumns+` FROM vaccinations WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return health.Vaccination{}, health.ErrNotFound
	}
	return v, err
}

func (r *HealthRepo) ListVaccinations(ctx context.Context, petID string) ([]health.Vaccination, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+vaccinationColumns+` FROM vaccinations WHERE pet_id = $1 ORDER BY date_given DESC
	`, petID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]health.Vaccination, 0)
	for rows.Next() {
		v, err := scanVaccination(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ---- tareas ----

const taskColumns = `id, pet_id, title, due_date, done, done_at, created_by, created_at`

func (r *HealthRepo) CreateTask(ctx context.Context, t health.CareTask) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO care_tasks (`+taskColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, t.ID, t.PetID, t.Title, nullTime(t.DueDate), t.Done, nullTime(t.DoneAt), t.CreatedBy, t.CreatedAt)
	return err
}

func (r *HealthRepo) UpdateTask(ctx context.Context, t health.CareTask) error {
	return r.execOne(ctx, `
		UPDATE care_tasks SET title = $2, due_date = $3, done = $4, done_at = $5 WHERE id = $1
	`, t.ID, t.Title, nullTime(t.DueDate), t.Done, nullTime(t.DoneAt))
}

func (r *HealthRepo) DeleteTask(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM care_tasks WHERE id = $1`, id)
}

func scanTask(s scanner) (health.CareTask, error) {
	var t health.CareTask
	var due, doneAt sql.NullTime
	err := s.Scan(&t.ID, &t.PetID, &t.Title, &due, &t.Done, &doneAt, &t.CreatedBy, &t.CreatedAt)
	t.DueDate = timePtr(due)
	t.DoneAt = timePtr(doneAt)
	return t, err
}

func (r *HealthRepo) GetTask(ctx context.Context, id string) (health.CareTask, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM care_tasks WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return health.CareTask{}, health.ErrNotFound
	}
	return t, err
}

// ListTasks: pendientes primero, después por fecha (sin fecha al final).
func (r *HealthRepo) ListTasks(ctx context.Context, petID string) ([]health.CareTask, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM care_tasks
		WHERE pet_id = $1
		ORDER BY done ASC, due_date ASC NULLS LAST, created_at ASC
	`, petID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]health.CareTask, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ---- horarios ----

const scheduleColumns = `
	id, pet_id, user_id, kind, title, schedule_date, schedule_time, notes,
	reminded_day_before, reminded_same_day, created_at`

func (r *HealthRepo) CreateSchedule(ctx context.Context, s health.CareSchedule) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO care_schedules (`+scheduleColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		s.ID, s.PetID, s.UserID, string(s.Kind), s.Title, s.Date, s.Time, s.Notes,
		s.RemindedDayBefore, s.RemindedSameDay, s.CreatedAt,
	)
	return err
}

func (r *HealthRepo) DeleteSchedule(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM care_schedules WHERE id = $1`, id)
}

func scanSchedule(s scanner) (health.CareSchedule, error) {
	var sc health.CareSchedule
	var kind string
	err := s.Scan(
		&sc.ID, &sc.PetID, &sc.UserID, &kind, &sc.Title, &sc.Date, &sc.Time, &sc.Notes,
		&sc.RemindedDayBefore, &sc.RemindedSameDay, &sc.CreatedAt,
	)
	sc.Kind = health.ScheduleKind(kind)
	return sc, err
}

func (r *HealthRepo) GetSchedule(ctx context.Context, id string) (health.CareSchedule, error) {
	sc, err := scanSchedule(r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM care_schedules WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return health.CareSchedule{}, health.ErrNotFound
	}
	return sc, err
}

func (r *HealthRepo) ListSchedules(ctx context.Context, petID string) ([]health.CareSchedule, error) {
	return r.listSchedules(ctx, `WHERE pet_id = $1`, petID)
}

func (r *HealthRepo) ListSchedulesByDate(ctx context.Context, date string) ([]health.CareSchedule, error) {
	return r.listSchedules(ctx, `WHERE schedule_date = $1`, date)
}

func (r *HealthRepo) listSchedules(ctx context.Context, where string, arg string) ([]health.CareSchedule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+scheduleColumns+` FROM care_schedules
		`+where+`
		ORDER BY schedule_date ASC, schedule_time ASC
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]health.CareSchedule, 0)
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (r *HealthRepo) MarkReminded(ctx context.Context, id string, flag health.ReminderFlag) error {
	var column string
	switch flag {
	case health.RemindedDayBefore:
		column = "reminded_day_before"
	case health.RemindedSameDay:
		column = "reminded_same_day"
	default:
		return fmt.Errorf("unknown reminder flag %q", flag)
	}
	return r.execOne(ctx, `UPDATE care_schedules SET `+column+` = true WHERE id = $1`, id)
}

// ---- comidas ----

const feedingColumns = `id, pet_id, fed_at, food, amount, logged_by, created_at`

func (r *HealthRepo) CreateFeeding(ctx context.Context, f health.FeedingLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feeding_logs (`+feedingColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, f.ID, f.PetID, f.FedAt, f.Food, f.Amount, f.LoggedBy, f.CreatedAt)
	return err
}

func (r *HealthRepo) DeleteFeeding(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM feeding_logs WHERE id = $1`, id)
}

func (r *HealthRepo) GetFeeding(ctx context.Context, id string) (health.FeedingLog, error) {
	var f health.FeedingLog
	err := r.db.QueryRowContext(ctx, `SELECT `+feedingColumns+` FROM feeding_logs WHERE id = $1`, id).
		Scan(&f.ID, &f.PetID, &f.FedAt, &f.Food, &f.Amount, &f.LoggedBy, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return health.FeedingLog{}, health.ErrNotFound
	}
	return f, err
}

func (r *HealthRepo) ListFeedings(ctx context.Context, petID string, filter health.FeedingFilter) ([]health.FeedingLog, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + feedingColumns + ` FROM feeding_logs WHERE pet_id = $1`)

	args := []any{petID}
	argN := 2

	if filter.From != nil {
		sb.WriteString(fmt.Sprintf(" AND fed_at >= $%d", argN))
		args = append(args, *filter.From)
		argN++
	}
	if filter.To != nil {
		sb.WriteString(fmt.Sprintf(" AND fed_at <= $%d", argN))
		args = append(args, *filter.To)
		argN++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	sb.WriteString(" ORDER BY fed_at DESC")
	sb.WriteString(fmt.Sprintf(" LIMIT $%d", argN))
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]health.FeedingLog, 0)
	for rows.Next() {
		var f health.FeedingLog
		if err := rows.Scan(&f.ID, &f.PetID, &f.FedAt, &f.Food, &f.Amount, &f.LoggedBy, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
