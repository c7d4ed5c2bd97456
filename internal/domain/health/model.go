package health

import (
	"time"

	"pawpal/internal/domain/pets"
)

type Vaccination struct {
	ID    string
	PetID string

	Name      string
	DateGiven time.Time
	NextDue   *time.Time
	Vet       string
	Notes     string

	RecordedBy string
	CreatedAt  time.Time
}

type CareTask struct {
	ID    string
	PetID string

	Title   string
	DueDate *time.Time
	Done    bool
	DoneAt  *time.Time

	CreatedBy string
	CreatedAt time.Time
}

// CareSchedule es un horario puntual de cuidado. Date ("YYYY-MM-DD") y Time
// ("HH:MM") se guardan como texto en hora de Filipinas; el job de
// recordatorios los parsea fila por fila.
type CareSchedule struct {
	ID     string
	PetID  string
	UserID string // a quién se le recuerda

	Kind  ScheduleKind
	Title string
	Date  string
	Time  string
	Notes string

	RemindedDayBefore bool
	RemindedSameDay   bool

	CreatedAt time.Time
}

// FeedingLog es una ronda de comida registrada.
type FeedingLog struct {
	ID    string
	PetID string

	FedAt    time.Time
	Food     string
	Amount   string
	LoggedBy string

	CreatedAt time.Time
}

// DueItem es una próxima dosis en el pasaporte.
type DueItem struct {
	VaccinationID string
	Name          string
	DueDate       time.Time
	Overdue       bool
}

// Passport es la vista de salud de una mascota. Sin vacunas, Empty=true y
// Message explica el estado vacío.
type Passport struct {
	Pet          pets.Pet
	Vaccinations []Vaccination
	Upcoming     []DueItem
	Empty        bool
	Message      string
}
