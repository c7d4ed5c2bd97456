package outreach

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, e Event) error
	Update(ctx context.Context, e Event) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Event, error)
	List(ctx context.Context, filter ListFilter) ([]Event, error)
}

type ListFilter struct {
	OrganizerID string
	// From: solo eventos que empiezan desde este momento. Zero = todos.
	From  time.Time
	Limit int
}

type RegistrationRepository interface {
	// Create inserta respetando la capacidad (0 = sin límite).
	// Devuelve ErrAlreadyRegistered o ErrEventFull.
	Create(ctx context.Context, r Registration, capacity int) error
	Delete(ctx context.Context, eventID, userID string) error
	DeleteByEvent(ctx context.Context, eventID string) error
	ListByEvent(ctx context.Context, eventID string) ([]Registration, error)
	ListByUser(ctx context.Context, userID string) ([]Registration, error)
}
