package outreach

import "time"

// Event es una actividad de outreach (adopción, vacunación, limpieza) que
// publica una organización o un admin.
type Event struct {
	ID          string
	OrganizerID string

	Title       string
	Description string
	Location    string
	PhotoURL    string

	StartsAt time.Time
	// nil => se cierra cuando empieza el evento
	RegistrationDeadline *time.Time
	// 0 = sin límite
	Capacity int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Deadline es el momento en que se cierran las inscripciones.
func (e Event) Deadline() time.Time {
	if e.RegistrationDeadline != nil {
		return *e.RegistrationDeadline
	}
	return e.StartsAt
}

type Registration struct {
	ID          string
	EventID     string
	UserID      string
	OrganizerID string // denormalizado para el filtro realtime del organizador
	Note        string
	CreatedAt   time.Time
}

// RegistrationState es lo que muestra el botón de la card.
type RegistrationState struct {
	Open  bool   `json:"open"`
	Label string `json:"label" enums:"Register,Registered,Full,Closed"`
}

const (
	LabelRegister   = "Register"
	LabelRegistered = "Registered"
	LabelFull       = "Full"
	LabelClosed     = "Closed"
)

// StateFor calcula el estado del botón para un usuario.
// Orden: ya inscripto, cerrado, lleno, abierto.
func StateFor(e Event, registeredCount int, registered bool, now time.Time) RegistrationState {
	switch {
	case registered:
		return RegistrationState{Open: false, Label: LabelRegistered}
	case now.After(e.Deadline()):
		return RegistrationState{Open: false, Label: LabelClosed}
	case e.Capacity > 0 && registeredCount >= e.Capacity:
		return RegistrationState{Open: false, Label: LabelFull}
	}
	return RegistrationState{Open: true, Label: LabelRegister}
}
