package reports

import "time"

// TargetType es el tipo de contenido reportado.
type TargetType string

const (
	TargetPet     TargetType = "pet"
	TargetEvent   TargetType = "event"
	TargetEntry   TargetType = "entry"
	TargetMessage TargetType = "message"
	TargetProfile TargetType = "profile"
)

func (t TargetType) Valid() bool {
	switch t {
	case TargetPet, TargetEvent, TargetEntry, TargetMessage, TargetProfile:
		return true
	}
	return false
}

type Status string

const (
	StatusOpen      Status = "open"
	StatusResolved  Status = "resolved"
	StatusDismissed Status = "dismissed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusResolved, StatusDismissed:
		return true
	}
	return false
}

type Report struct {
	ID string

	ReporterID string
	TargetType TargetType
	TargetID   string
	Reason     string

	Status    Status
	AdminNote string
	// quién cerró el reporte
	ReviewedBy string
	ReviewedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
