package health

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pawpal/internal/domain/pets"
	"pawpal/internal/platform/cache"
	"pawpal/internal/platform/timefmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("record not found")
	ErrForbidden    = errors.New("forbidden")
)

const EmptyPassportMessage = "No vaccinations recorded yet. Add the first one to start this pet's health passport."

// Pets es lo que health usa de pets.Service.
type Pets interface {
	GetByID(ctx context.Context, id string) (pets.Pet, error)
	CanManage(ctx context.Context, petID, userID string) (bool, error)
}

type Service struct {
	repo  Repository
	cache *cache.Cache
	pets  Pets
	now   func() time.Time
}

func NewService(repo Repository, c *cache.Cache, petSvc Pets) *Service {
	return &Service{
		repo:  repo,
		cache: c,
		pets:  petSvc,
		now:   time.Now,
	}
}

func vaccinationsKey(petID string) cache.Key { return cache.Key{"health", petID, "vaccinations"} }
func tasksKey(petID string) cache.Key { return cache.Key{"health", petID, "tasks"} }
func schedulesKey(petID string) cache.Key { return cache.Key{"health", petID, "schedules"} }
func feedingsKey(petID string) cache.Key { return cache.Key{"health", petID, "feedings"} }

// authorize: los registros de salud los ven y editan el dueño y los admins.
func (s *Service) authorize(ctx context.Context, petID, actorID string) error {
	if strings.TrimSpace(petID) == "" || strings.TrimSpace(actorID) == "" {
		return ErrInvalidInput
	}
	ok, err := s.pets.CanManage(ctx, petID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// ---- vacunas ----

type VaccinationInput struct {
	Name      string
	DateGiven time.Time
	NextDue   *time.Time
	Vet       string
	Notes     string
}

func (in VaccinationInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if in.DateGiven.IsZero() {
		return fmt.Errorf("%w: date_given required", ErrInvalidInput)
	}
	if in.NextDue != nil && in.NextDue.Before(in.DateGiven) {
		return fmt.Errorf("%w: next_due before date_given", ErrInvalidInput)
	}
	return nil
}

func (s *Service) AddVaccination(ctx context.Context, petID, actorID string, in VaccinationInput) (Vaccination, error) {
	if err := s.authorize(ctx, petID, actorID); err != nil {
		return Vaccination{}, err
	}
	if err := in.validate(); err != nil {
		return Vaccination{}, err
	}

	v := Vaccination{
		ID:         uuid.NewString(),
		PetID:      petID,
		Name:       strings.TrimSpace(in.Name),
		DateGiven:  in.DateGiven,
		NextDue:    in.NextDue,
		Vet:        strings.TrimSpace(in.Vet),
		Notes:      strings.TrimSpace(in.Notes),
		RecordedBy: actorID,
		CreatedAt:  s.now(),
	}
	if err := s.repo.CreateVaccination(ctx, v); err != nil {
		return Vaccination{}, err
	}
	s.cache.Invalidate(vaccinationsKey(petID))
	return v, nil
}

func (s *Service) UpdateVaccination(ctx context.Context, petID, id, actorID string, in VaccinationInput) (Vaccination, error) {
	if err := s.authorize(ctx, petID, actorID); err != nil {
		return Vaccination{}, err
	}
	if err := in.validate(); err != nil {
		return Vaccination{}, err
	}
	v, err := s.repo.GetVaccination(ctx, id)
	if err != nil {
		return Vaccination{}, err
	}
	if v.PetID != petID {
		return Vaccination{}, ErrNotFound
	}

	v.Name = strings.TrimSpace(in.Name)
	v.DateGiven = in.DateGiven
	v.NextDue = in.NextDue
	v.Vet = strings.TrimSpace(in.Vet)
	v.Notes = strings.TrimSpace(in.Notes)
	if err := s.repo.UpdateVaccination(ctx, v); err != nil {
		return Vaccination{}, err
	}
	s.cache.Invalidate(vaccinationsKey(petID))
	return v, nil
}

func (s *Service) DeleteVaccination(ctx context.Context, petID, id, actorID string) error {
	if err := s.authorize(ctx, petID, actorID); err != nil {
		return err
	}
	v, err := s.repo.GetVaccination(ctx, id)
	if err != nil {
		return err
	}
	if v.PetID != petID {
		return ErrNotFound
	}
	if err := s.repo.DeleteVaccination(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(vaccinationsKey(petID))
	return nil
}

func (s *Service) ListVaccinations(ctx context.Context, petID, actorID string) ([]Vaccination, error) {
	if err := s.authorize(ctx, petID, actorID); err != nil {
		return nil, err
	}
	return s.vaccinations(ctx, petID)
}

func (s *Service) vaccinations(ctx context.Context, petID string) ([]Vaccination, error) {
	return cache.Fetch(ctx, s.cache, vaccinationsKey(petID), func(ctx context.Context) ([]Vaccination, error) {
		return s.repo.ListVaccinations(ctx, petID)
	})
}

// Passport arma el pasaporte de salud. Una mascota sin vacunas no es un
// error: devuelve Empty=true con el mensaje del estado vacío.
func (s *Service) Passport(ctx context.Context, petID, actorID string) (Passport, error) {
	if err := s.authorize(ctx, petID, actorID); err != nil {
		return Passport{}, err
	}
	p, err := s.pets.GetByID(ctx, petID)
	if err != nil {
		return Passport{}, err
	}
	vs, err := s.vaccinations(ctx, petID)
	if err != nil {
		return Passport{}, err
	}

	out := Passport{Pet: p, Vaccinations: vs, Upcoming: make([]DueItem, 0)}
	if len(vs) == 0 {
		out.Empty = true
		out.Message = EmptyPassportMessage
		return out, nil
	}

	today := timefmt.ToPH(s.now())
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	for _, v := range vs {
		if v.NextDue == nil {
			continue
		}
		out.Upcoming = append(out.Upcoming, DueItem{
			VaccinationID: v.ID,
			Name:          v.Name,
			DueDate:       *v.NextDue,
			Overdue:       v.NextDue.Before(today),
		})
	}
	sort.SliceStable(out.Upcoming, func(i, j int) bool {
		return out.Upcoming[i].DueDate.Before(out.Upcoming[j].DueDate)
	})
	return out, nil
}

// ---- tareas ----

type TaskInput struct {
	Title   string
	DueDate *time.Time
}

func (s *Service) AddTask(ctx context.Context, petID, actorID string, in TaskInput) (CareTask, error) {
	if err := s.authorize(ctx, petID, actorID); err != nil {
		return CareTask{}, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return CareTask{}, fmt.Errorf("%w: title required", ErrInvalidInput)
	}

	t := CareTask{
		ID:        uuid.NewString(),
		PetID:     petID,
		Title:     title,
		DueDate:   in.DueDate,
		CreatedBy: actorID,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateTask(ctx, t); err != nil {
		return CareTask{}, err
	}
	s.cache.Invalidate(tasksKey(petID))
	return t, nil
}

type TaskPatch struct {
	Title        *string
	DueDate      *time.Time
	ClearDueDate bool
	Done         *bool
}

func (s *Service) UpdateTask(ctx context.Context, petID, id, actorID string, in TaskPatch) (CareTask, error) {
	if err := s.authorize(ctx, petID, actorID); err != nil {
		return CareTask{}, err
	}
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return CareTask{}, err
	}
	if t.PetID != petID {
		return CareTask{}, ErrNotFound
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return CareTask{}, fmt.Errorf("%w: title required", ErrInvalidInput)
		}
		t.Title = title
	}
	if in.ClearDueDate {
		t.DueDate = nil
	} else if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if in.Done != nil && *in.Done != t.Done {
		t.Done = *in.Done
		t.DoneAt = nil
		if t.Done {
			now := s.now()
			t.DoneAt = &now
		}
	}

	if err := s.repo.UpdateTask(ctx, t); err != nil {
		return CareTask{}, err
	}
	s.cache.Invalidate(tasksKey(petID))
	return t, nil
}

func (s *Service) DeleteTask(ctx context.Context, petID, id, actorID string) error {
	if err := s.authorize(ctx, petID, actorID); err != nil {
		return err
	}
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if t.PetID != petID {
		return ErrNotFound
	}
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(tasksKey(petID))
	return nil
}

func (s *Service) ListTasks(ctx context.Context, petID, actorID string) ([]CareTask, error) {
	if err := s.authorize(ctx, petID, actorID); err != nil {
		return nil, err
	}
	return cache.Fetch(ctx, s.cache, tasksKey(petID), func(ctx context.Context) ([]CareTask, error) {
		return s.repo.ListTasks(ctx, petID)
	})
}

// ---- horarios ----

type ScheduleInput struct {
	Kind  ScheduleKind
	Title string
	Date  string
	Time  string
	Notes string
}

func (s *Service) AddSchedule(ctx context.Context, petID, actorID string, in ScheduleInput) (CareSchedule, error) {
	if err := s.authorize(ctx, petID, actorID); err != nil {
		return CareSchedule{}, err
	}
	kind := ScheduleKind(strings.ToLower(strings.TrimSpace(string(in.Kind))))
	if kind == "" {
		kind = ScheduleOther
	}
	if !kind.Valid() {
		return CareSchedule{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, in.Kind)
	}
	if _, err := timefmt.ParseDate(in.Date); err != nil {
		return CareSchedule{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := timefmt.ParseClock(in.Time); err != nil {
		return CareSchedule{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = string(kind)
	}
	sc := CareSchedule{
		ID:        uuid.NewString(),
		PetID:     petID,
		UserID:    actorID,
		Kind:      kind,
		Title:     title,
		Date:      strings.TrimSpace(in.Date),
		Time:      strings.TrimSpace(in.Time),
		Notes:     strings.TrimSpace(in.Notes),
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateSchedule(ctx, sc); err != nil {
		return CareSchedule{}, err
	}
	s.cache.Invalidate(schedulesKey(petID))
	return sc, nil
}

func (s *Service) DeleteSchedule(ctx context.Context, petID, id, actorID string) error {
	if err := s.authorize(ctx, petID, actorID); err != nil {
		return err
	}
	sc, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	if sc.PetID != petID {
		return ErrNotFound
	}
	if err := s.repo.DeleteSchedule(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(schedulesKey(petID))
	return nil
}

func (s *Service) ListSchedules(ctx context.Context, petID, actorID string) ([]CareSchedule, error) {
	if err := s.authorize(ctx, petID, actorID); err != nil {
		return nil, err
	}
	return cache.Fetch(ctx, s.cache, schedulesKey(petID), func(ctx context.Context) ([]CareSchedule, error) {
		return s.repo.ListSchedules(ctx, petID)
	})
}

// SchedulesOn lo usa el job de recordatorios; no pasa por el cache.
func (s *Service) SchedulesOn(ctx context.Context, date string) ([]CareSchedule, error) {
	return s.repo.ListSchedulesByDate(ctx, date)
}

// MarkReminded deja la marca para que el horario no se vuelva a notificar.
func (s *Service) MarkReminded(ctx context.Context, sc CareSchedule, flag ReminderFlag) error {
	if flag != RemindedDayBefore && flag != RemindedSameDay {
		return ErrInvalidInput
	}
	if err := s.repo.MarkReminded(ctx, sc.ID, flag); err != nil {
		return err
	}
	s.cache.Invalidate(schedulesKey(sc.PetID))
	return nil
}

// ---- comidas ----

type FeedingInput struct {
	FedAt  time.Time
	Food   string
	Amount string
}

func (s *Service) LogFeeding(ctx context.Context, petID, actorID string, in FeedingInput) (FeedingLog, error) {
	if err := s.authorize(ctx, petID, actorID); err != nil {
		return FeedingLog{}, err
	}
	now := s.now()
	fedAt := in.FedAt
	if fedAt.IsZero() {
		fedAt = now
	}
	if fedAt.After(now.Add(time.Minute)) {
		return FeedingLog{}, fmt.Errorf("%w: fed_at in the future", ErrInvalidInput)
	}

	f := FeedingLog{
		ID:        uuid.NewString(),
		PetID:     petID,
		FedAt:     fedAt,
		Food:      strings.TrimSpace(in.Food),
		Amount:    strings.TrimSpace(in.Amount),
		LoggedBy:  actorID,
		CreatedAt: now,
	}
	if err := s.repo.CreateFeeding(ctx, f); err != nil {
		return FeedingLog{}, err
	}
	s.cache.Invalidate(feedingsKey(petID))
	return f, nil
}

func (s *Service) DeleteFeeding(ctx context.Context, petID, id, actorID string) error {
	if err := s.authorize(ctx, petID, actorID); err != nil {
		return err
	}
	f, err := s.repo.GetFeeding(ctx, id)
	if err != nil {
		return err
	}
	if f.PetID != petID {
		return ErrNotFound
	}
	if err := s.repo.DeleteFeeding(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(feedingsKey(petID))
	return nil
}

// ListFeedings: más recientes primero. La key incluye el filtro.
func (s *Service) ListFeedings(ctx context.Context, petID, actorID string, filter FeedingFilter) ([]FeedingLog, error) {
	if err := s.authorize(ctx, petID, actorID); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	key := append(feedingsKey(petID), fmt.Sprint(filter.Limit), timeKey(filter.From), timeKey(filter.To))
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) ([]FeedingLog, error) {
		return s.repo.ListFeedings(ctx, petID, filter)
	})
}

func timeKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
