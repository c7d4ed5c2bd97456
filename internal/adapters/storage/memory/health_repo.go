package memory

import (
	"context"
	"sort"
	"sync"

	"pawpal/internal/domain/health"
)

type healthRepo struct {
	mu           sync.RWMutex
	vaccinations map[string]health.Vaccination
	tasks        map[string]health.CareTask
	schedules    map[string]health.CareSchedule
	feedings     map[string]health.FeedingLog
}

func NewHealthRepo() health.Repository {
	return &healthRepo{
		vaccinations: make(map[string]health.Vaccination),
		tasks:        make(map[string]health.CareTask),
		schedules:    make(map[string]health.CareSchedule),
		feedings:     make(map[string]health.FeedingLog),
	}
}

// ---- vacunas ----

func (r *healthRepo) CreateVaccination(ctx context.Context, v health.Vaccination) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vaccinations[v.ID] = v
	return nil
}

func (r *healthRepo) UpdateVaccination(ctx context.Context, v health.Vaccination) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vaccinations[v.ID]; !ok {
		return health.ErrNotFound
	}
	r.vaccinations[v.ID] = v
	return nil
}

func (r *healthRepo) DeleteVaccination(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vaccinations[id]; !ok {
		return health.ErrNotFound
	}
	delete(r.vaccinations, id)
	return nil
}

func (r *healthRepo) GetVaccination(ctx context.Context, id string) (health.Vaccination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vaccinations[id]
	if !ok {
		return health.Vaccination{}, health.ErrNotFound
	}
	return v, nil
}

func (r *healthRepo) ListVaccinations(ctx context.Context, petID string) ([]health.Vaccination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]health.Vaccination, 0)
	for _, v := range r.vaccinations {
		if v.PetID == petID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DateGiven.After(out[j].DateGiven)
	})
	return out, nil
}

// ---- tareas ----

func (r *healthRepo) CreateTask(ctx context.Context, t health.CareTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
	return nil
}

func (r *healthRepo) UpdateTask(ctx context.Context, t health.CareTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; !ok {
		return health.ErrNotFound
	}
	r.tasks[t.ID] = t
	return nil
}

func (r *healthRepo) DeleteTask(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return health.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *healthRepo) GetTask(ctx context.Context, id string) (health.CareTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return health.CareTask{}, health.ErrNotFound
	}
	return t, nil
}

// ListTasks: pendientes primero, después por fecha (sin fecha al final).
func (r *healthRepo) ListTasks(ctx context.Context, petID string) ([]health.CareTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]health.CareTask, 0)
	for _, t := range r.tasks {
		if t.PetID == petID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Done != b.Done {
			return !a.Done
		}
		if (a.DueDate == nil) != (b.DueDate == nil) {
			return a.DueDate != nil
		}
		if a.DueDate != nil && !a.DueDate.Equal(*b.DueDate) {
			return a.DueDate.Before(*b.DueDate)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out, nil
}

// ---- horarios ----

func (r *healthRepo) CreateSchedule(ctx context.Context, s health.CareSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[s.ID] = s
	return nil
}

func (r *healthRepo) DeleteSchedule(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schedules[id]; !ok {
		return health.ErrNotFound
	}
	delete(r.schedules, id)
	return nil
}

func (r *healthRepo) GetSchedule(ctx context.Context, id string) (health.CareSchedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schedules[id]
	if !ok {
		return health.CareSchedule{}, health.ErrNotFound
	}
	return s, nil
}

func (r *healthRepo) ListSchedules(ctx context.Context, petID string) ([]health.CareSchedule, error) {
	return r.filterSchedules(func(s health.CareSchedule) bool { return s.PetID == petID }), nil
}

func (r *healthRepo) ListSchedulesByDate(ctx context.Context, date string) ([]health.CareSchedule, error) {
	return r.filterSchedules(func(s health.CareSchedule) bool { return s.Date == date }), nil
}

func (r *healthRepo) filterSchedules(keep func(health.CareSchedule) bool) []health.CareSchedule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]health.CareSchedule, 0)
	for _, s := range r.schedules {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out
}

func (r *healthRepo) MarkReminded(ctx context.Context, id string, flag health.ReminderFlag) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[id]
	if !ok {
		return health.ErrNotFound
	}
	switch flag {
	case health.RemindedDayBefore:
		s.RemindedDayBefore = true
	case health.RemindedSameDay:
		s.RemindedSameDay = true
	default:
		return health.ErrInvalidInput
	}
	r.schedules[id] = s
	return nil
}

// ---- comidas ----

func (r *healthRepo) CreateFeeding(ctx context.Context, f health.FeedingLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedings[f.ID] = f
	return nil
}

func (r *healthRepo) DeleteFeeding(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.feedings[id]; !ok {
		return health.ErrNotFound
	}
	delete(r.feedings, id)
	return nil
}

func (r *healthRepo) GetFeeding(ctx context.Context, id string) (health.FeedingLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.feedings[id]
	if !ok {
		return health.FeedingLog{}, health.ErrNotFound
	}
	return f, nil
}

func (r *healthRepo) ListFeedings(ctx context.Context, petID string, filter health.FeedingFilter) ([]health.FeedingLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	out := make([]health.FeedingLog, 0)
	for _, f := range r.feedings {
		if f.PetID != petID {
			continue
		}
		if filter.From != nil && f.FedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && f.FedAt.After(*filter.To) {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FedAt.After(out[j].FedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
