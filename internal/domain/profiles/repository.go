package profiles

import "context"

type Repository interface {
	Create(ctx context.Context, p Profile) error
	Update(ctx context.Context, p Profile) error
	GetByID(ctx context.Context, id string) (Profile, error)
	List(ctx context.Context, filter ListFilter) ([]Profile, error)
}

type ListFilter struct {
	Role  Role
	Query string // display name / email
	Limit int
}
