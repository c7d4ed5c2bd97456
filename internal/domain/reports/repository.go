package reports

import "context"

type Repository interface {
	Create(ctx context.Context, r Report) error
	Update(ctx context.Context, r Report) error
	GetByID(ctx context.Context, id string) (Report, error)
	// status vacío => todos. Más nuevos primero.
	List(ctx context.Context, status Status) ([]Report, error)
	ListByReporter(ctx context.Context, reporterID string) ([]Report, error)
}
