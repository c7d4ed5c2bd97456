package challenges

import "context"

type Repository interface {
	Create(ctx context.Context, c Challenge) error
	Update(ctx context.Context, c Challenge) error
	// Delete borra el challenge con sus entradas y votos.
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Challenge, error)
	List(ctx context.Context) ([]Challenge, error)

	// CreateEntry devuelve ErrAlreadyEntered si la mascota ya participa.
	CreateEntry(ctx context.Context, e Entry) error
	GetEntry(ctx context.Context, id string) (Entry, error)
	ListEntries(ctx context.Context, challengeID string) ([]Entry, error)
	DeleteEntry(ctx context.Context, id string) error

	// AddVote devuelve ErrAlreadyVoted; RemoveVote devuelve ErrNotVoted.
	AddVote(ctx context.Context, v Vote) error
	RemoveVote(ctx context.Context, entryID, userID string) error
	VotedEntries(ctx context.Context, challengeID, userID string) ([]string, error)
}
