// Package reminders es el job que avisa de los horarios de cuidado (comida,
// medicación, paseos) el día anterior y durante las 6 horas previas.
// Las fechas y horas de los horarios están en hora de Filipinas (UTC+8 fijo).
package reminders

import (
	"context"
	"fmt"
	"time"

	"pawpal/internal/domain/health"
	"pawpal/internal/domain/notifications"
	"pawpal/internal/domain/pets"
	"pawpal/internal/platform/logger"
	"pawpal/internal/platform/timefmt"
)

// SameDayWindow es cuánto antes se avisa un horario del mismo día.
const SameDayWindow = 6 * time.Hour

// Schedules es lo que el job necesita de health.Service.
type Schedules interface {
	SchedulesOn(ctx context.Context, date string) ([]health.CareSchedule, error)
	MarkReminded(ctx context.Context, sc health.CareSchedule, flag health.ReminderFlag) error
}

type Pets interface {
	GetByID(ctx context.Context, id string) (pets.Pet, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID string, kind notifications.Kind, title, body string, data map[string]string) error
}

// Result resume una corrida.
type Result struct {
	PHTime    time.Time
	DayBefore int
	SameDay   int
	Skipped   int
	Failed    int
}

func (r Result) Sent() int { return r.DayBefore + r.SameDay }

type Service struct {
	schedules Schedules
	pets      Pets
	notifier  Notifier
	log       logger.Logger
	now       func() time.Time
}

func NewService(schedules Schedules, petSvc Pets, notifier Notifier, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		schedules: schedules,
		pets:      petSvc,
		notifier:  notifier,
		log:       log.With(logger.Fields{"component": "reminders"}),
		now:       time.Now,
	}
}

// Run hace una pasada: horarios de mañana sin aviso previo y horarios de hoy
// dentro de SameDayWindow sin aviso del día. Cada aviso marca el horario.
// Un horario con hora mal formada se loguea y se saltea.
func (s *Service) Run(ctx context.Context) (Result, error) {
	phNow := timefmt.ToPH(s.now())
	res := Result{PHTime: phNow}

	midnight := time.Date(phNow.Year(), phNow.Month(), phNow.Day(), 0, 0, 0, 0, timefmt.PHZone)
	today := midnight.Format(timefmt.DateLayout)
	tomorrow := midnight.AddDate(0, 0, 1).Format(timefmt.DateLayout)

	upcoming, err := s.schedules.SchedulesOn(ctx, tomorrow)
	if err != nil {
		return res, fmt.Errorf("list schedules for %s: %w", tomorrow, err)
	}
	for _, sc := range upcoming {
		if sc.RemindedDayBefore {
			continue
		}
		if _, err := timefmt.ParseClock(sc.Time); err != nil {
			s.skip(&res, sc, err)
			continue
		}
		title := fmt.Sprintf("Tomorrow: %s", sc.Title)
		body := fmt.Sprintf("%s for %s is scheduled tomorrow at %s.", sc.Title, s.petName(ctx, sc.PetID), sc.Time)
		if s.remind(ctx, &res, sc, health.RemindedDayBefore, title, body) {
			res.DayBefore++
		}
	}

	todays, err := s.schedules.SchedulesOn(ctx, today)
	if err != nil {
		return res, fmt.Errorf("list schedules for %s: %w", today, err)
	}
	for _, sc := range todays {
		if sc.RemindedSameDay {
			continue
		}
		offset, err := timefmt.ParseClock(sc.Time)
		if err != nil {
			s.skip(&res, sc, err)
			continue
		}
		at := midnight.Add(offset)
		if at.Before(phNow) || at.After(phNow.Add(SameDayWindow)) {
			continue
		}
		title := fmt.Sprintf("Coming up: %s", sc.Title)
		body := fmt.Sprintf("%s for %s is scheduled today at %s.", sc.Title, s.petName(ctx, sc.PetID), sc.Time)
		if s.remind(ctx, &res, sc, health.RemindedSameDay, title, body) {
			res.SameDay++
		}
	}

	s.log.Info("reminder run finished", logger.Fields{
		"ph_time":    phNow.Format(time.RFC3339),
		"day_before": res.DayBefore,
		"same_day":   res.SameDay,
		"skipped":    res.Skipped,
		"failed":     res.Failed,
	})
	return res, nil
}

func (s *Service) skip(res *Result, sc health.CareSchedule, err error) {
	res.Skipped++
	s.log.Warn("skipping schedule with malformed time", logger.Fields{
		"schedule_id": sc.ID,
		"time":        sc.Time,
		"err":         err,
	})
}

// remind notifica y marca. Si falla la notificación el horario queda sin marca
// y se reintenta en la próxima corrida.
func (s *Service) remind(ctx context.Context, res *Result, sc health.CareSchedule, flag health.ReminderFlag, title, body string) bool {
	data := map[string]string{
		"schedule_id": sc.ID,
		"pet_id":      sc.PetID,
		"kind":        string(sc.Kind),
	}
	if err := s.notifier.Notify(ctx, sc.UserID, notifications.KindReminder, title, body, data); err != nil {
		res.Failed++
		s.log.Error("reminder notification failed", logger.Fields{"schedule_id": sc.ID, "err": err})
		return false
	}
	if err := s.schedules.MarkReminded(ctx, sc, flag); err != nil {
		res.Failed++
		s.log.Error("mark reminded failed", logger.Fields{"schedule_id": sc.ID, "flag": string(flag), "err": err})
		return false
	}
	return true
}

func (s *Service) petName(ctx context.Context, petID string) string {
	if s.pets != nil {
		if p, err := s.pets.GetByID(ctx, petID); err == nil && p.Name != "" {
			return p.Name
		}
	}
	return "your pet"
}

// Loop corre Run cada interval hasta que ctx se cancela. interval <= 0 no hace nada.
func (s *Service) Loop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	s.log.Info("reminder loop started", logger.Fields{"interval": interval.String()})
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Run(ctx); err != nil {
				s.log.Error("reminder run failed", logger.Fields{"err": err})
			}
		}
	}
}
