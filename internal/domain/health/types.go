package health

// ScheduleKind clasifica los horarios de cuidado.
// @Enum feeding, medication, grooming, walk, other
type ScheduleKind string

const (
	ScheduleFeeding    ScheduleKind = "feeding"
	ScheduleMedication ScheduleKind = "medication"
	ScheduleGrooming   ScheduleKind = "grooming"
	ScheduleWalk       ScheduleKind = "walk"
	ScheduleOther      ScheduleKind = "other"
)

func (k ScheduleKind) Valid() bool {
	switch k {
	case ScheduleFeeding, ScheduleMedication, ScheduleGrooming, ScheduleWalk, ScheduleOther:
		return true
	}
	return false
}

// ReminderFlag es la marca que deja el job de recordatorios en un horario.
type ReminderFlag string

const (
	RemindedDayBefore ReminderFlag = "reminded_day_before"
	RemindedSameDay   ReminderFlag = "reminded_same_day"
)
