package challenges

import "time"

type Challenge struct {
	ID          string
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Open: acepta entradas en [StartsAt, EndsAt).
func (c Challenge) Open(now time.Time) bool {
	return !now.Before(c.StartsAt) && now.Before(c.EndsAt)
}

func (c Challenge) Ended(now time.Time) bool {
	return !now.Before(c.EndsAt)
}

type Entry struct {
	ID          string
	ChallengeID string
	PetID       string
	UserID      string
	PhotoURL    string
	Caption     string
	// Votes lo completa el repo al listar.
	Votes     int
	CreatedAt time.Time
}

type Vote struct {
	EntryID     string
	ChallengeID string
	UserID      string
	CreatedAt   time.Time
}

// EntryView es la entrada vista por un usuario.
type EntryView struct {
	Entry
	VotedByMe bool
}

// View es el detalle del challenge para un usuario.
type View struct {
	Challenge     Challenge
	VotingEnabled bool
	Entries       []EntryView
}
