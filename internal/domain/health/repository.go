package health

import (
	"context"
	"time"
)

type VaccinationRepository interface {
	CreateVaccination(ctx context.Context, v Vaccination) error
	UpdateVaccination(ctx context.Context, v Vaccination) error
	DeleteVaccination(ctx context.Context, id string) error
	GetVaccination(ctx context.Context, id string) (Vaccination, error)
	ListVaccinations(ctx context.Context, petID string) ([]Vaccination, error)
}

type TaskRepository interface {
	CreateTask(ctx context.Context, t CareTask) error
	UpdateTask(ctx context.Context, t CareTask) error
	DeleteTask(ctx context.Context, id string) error
	GetTask(ctx context.Context, id string) (CareTask, error)
	ListTasks(ctx context.Context, petID string) ([]CareTask, error)
}

type ScheduleRepository interface {
	CreateSchedule(ctx context.Context, s CareSchedule) error
	DeleteSchedule(ctx context.Context, id string) error
	GetSchedule(ctx context.Context, id string) (CareSchedule, error)
	ListSchedules(ctx context.Context, petID string) ([]CareSchedule, error)
	// ListSchedulesByDate trae todos los horarios de una fecha (YYYY-MM-DD).
	ListSchedulesByDate(ctx context.Context, date string) ([]CareSchedule, error)
	MarkReminded(ctx context.Context, id string, flag ReminderFlag) error
}

type FeedingRepository interface {
	CreateFeeding(ctx context.Context, f FeedingLog) error
	DeleteFeeding(ctx context.Context, id string) error
	GetFeeding(ctx context.Context, id string) (FeedingLog, error)
	ListFeedings(ctx context.Context, petID string, filter FeedingFilter) ([]FeedingLog, error)
}

type Repository interface {
	VaccinationRepository
	TaskRepository
	ScheduleRepository
	FeedingRepository
}

type FeedingFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}
