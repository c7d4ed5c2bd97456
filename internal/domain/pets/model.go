package pets

import "time"

// Species define las especies soportadas.
// @Enum dog, cat, other
type Species string

const (
	SpeciesDog   Species = "dog"
	SpeciesCat   Species = "cat"
	SpeciesOther Species = "other"
)

func (s Species) Valid() bool {
	switch s {
	case SpeciesDog, SpeciesCat, SpeciesOther:
		return true
	}
	return false
}

// Sex define el sexo de la mascota.
// @Enum male, female, unknown
type Sex string

const (
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
	SexUnknown Sex = "unknown"
)

func (s Sex) Valid() bool {
	switch s {
	case SexMale, SexFemale, SexUnknown:
		return true
	}
	return false
}

// Pet es el perfil de una mascota de la comunidad.
type Pet struct {
	ID          string
	OwnerUserID string

	Name    string
	Species Species
	Breed   string // texto libre
	Sex     Sex

	BirthDate *time.Time
	Microchip string
	PhotoURL  string

	Notes string

	CreatedAt time.Time
	UpdatedAt time.Time
}
