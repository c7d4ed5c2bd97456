package outreach

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"pawpal/internal/domain/notifications"
	"pawpal/internal/platform/cache"
	"pawpal/internal/platform/timefmt"
	"pawpal/internal/ports/media"
	"pawpal/internal/realtime"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("event not found")
	ErrForbidden          = errors.New("forbidden")
	ErrRegistrationClosed = errors.New("registration closed")
	ErrEventFull          = errors.New("event is full")
	ErrAlreadyRegistered  = errors.New("already registered")
	ErrNotRegistered      = errors.New("not registered")
)

const RegistrationsTable = "event_registrations"

// Profiles es lo que outreach necesita saber de los usuarios.
type Profiles interface {
	CanOrganize(ctx context.Context, userID string) bool
	IsAdmin(ctx context.Context, userID string) bool
	DisplayName(ctx context.Context, userID string) string
}

// Notifier crea notificaciones in-app (notifications.Service).
type Notifier interface {
	Notify(ctx context.Context, userID string, kind notifications.Kind, title, body string, data map[string]string) error
}

type Service struct {
	events   Repository
	regs     RegistrationRepository
	cache    *cache.Cache
	profiles Profiles
	notifier Notifier
	pub      realtime.Publisher
	uploader media.Uploader
	now      func() time.Time
}

func NewService(events Repository, regs RegistrationRepository, c *cache.Cache, profiles Profiles, notifier Notifier, pub realtime.Publisher, uploader media.Uploader) *Service {
	return &Service{
		events:   events,
		regs:     regs,
		cache:    c,
		profiles: profiles,
		notifier: notifier,
		pub:      pub,
		uploader: uploader,
		now:      time.Now,
	}
}

var listPrefix = cache.Key{"outreach", "list"}

func eventKey(id string) cache.Key { return cache.Key{"outreach", id} }
func registrationsKey(id string) cache.Key { return cache.Key{"outreach", id, "registrations"} }
func myRegistrationsKey(userID string) cache.Key {
	return cache.Key{"registrations", userID}
}

type CreateInput struct {
	Title                string
	Description          string
	Location             string
	PhotoURL             string
	StartsAt             time.Time
	RegistrationDeadline *time.Time
	Capacity             int
}

func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (Event, error) {
	if strings.TrimSpace(actorID) == "" {
		return Event{}, ErrInvalidInput
	}
	if !s.profiles.CanOrganize(ctx, actorID) {
		return Event{}, ErrForbidden
	}

	now := s.now()
	e := Event{
		ID:                   uuid.NewString(),
		OrganizerID:          actorID,
		Title:                strings.TrimSpace(in.Title),
		Description:          strings.TrimSpace(in.Description),
		Location:             strings.TrimSpace(in.Location),
		PhotoURL:             strings.TrimSpace(in.PhotoURL),
		StartsAt:             in.StartsAt,
		RegistrationDeadline: in.RegistrationDeadline,
		Capacity:             in.Capacity,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := validate(e); err != nil {
		return Event{}, err
	}

	if err := s.events.Create(ctx, e); err != nil {
		return Event{}, err
	}
	s.cache.Invalidate(listPrefix)
	return e, nil
}

func validate(e Event) error {
	if e.Title == "" {
		return fmt.Errorf("%w: title required", ErrInvalidInput)
	}
	if e.StartsAt.IsZero() {
		return fmt.Errorf("%w: starts_at required", ErrInvalidInput)
	}
	if e.Capacity < 0 {
		return fmt.Errorf("%w: capacity must be >= 0", ErrInvalidInput)
	}
	if e.RegistrationDeadline != nil && e.RegistrationDeadline.After(e.StartsAt) {
		return fmt.Errorf("%w: registration_deadline after starts_at", ErrInvalidInput)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Event{}, ErrNotFound
	}
	return cache.Fetch(ctx, s.cache, eventKey(id), func(ctx context.Context) (Event, error) {
		e, err := s.events.GetByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return Event{}, cache.Permanent(err)
		}
		return e, err
	})
}

// List devuelve eventos ordenados por starts_at. Sin IncludePast solo los que no empezaron.
func (s *Service) List(ctx context.Context, organizerID string, includePast bool, limit int) ([]Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	filter := ListFilter{OrganizerID: strings.TrimSpace(organizerID), Limit: limit}
	scope := "upcoming"
	if !includePast {
		// la ventana se redondea al minuto para que la key del cache sea estable
		filter.From = s.now().Truncate(time.Minute)
	} else {
		scope = "all"
	}
	key := cache.Key{"outreach", "list", scope, filter.OrganizerID, fmt.Sprint(limit)}
	if !filter.From.IsZero() {
		key = append(key, filter.From.UTC().Format(time.RFC3339))
	}
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) ([]Event, error) {
		return s.events.List(ctx, filter)
	})
}

type UpdateInput struct {
	Title                *string
	Description          *string
	Location             *string
	PhotoURL             *string
	StartsAt             *time.Time
	RegistrationDeadline *time.Time
	ClearDeadline        bool
	Capacity             *int
}

// Update: organizador del evento o admin.
func (s *Service) Update(ctx context.Context, eventID, actorID string, in UpdateInput) (Event, error) {
	e, err := s.authorize(ctx, eventID, actorID)
	if err != nil {
		return Event{}, err
	}

	if in.Title != nil {
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		e.Description = strings.TrimSpace(*in.Description)
	}
	if in.Location != nil {
		e.Location = strings.TrimSpace(*in.Location)
	}
	if in.PhotoURL != nil {
		e.PhotoURL = strings.TrimSpace(*in.PhotoURL)
	}
	if in.StartsAt != nil {
		e.StartsAt = *in.StartsAt
	}
	if in.ClearDeadline {
		e.RegistrationDeadline = nil
	} else if in.RegistrationDeadline != nil {
		e.RegistrationDeadline = in.RegistrationDeadline
	}
	if in.Capacity != nil {
		e.Capacity = *in.Capacity
	}
	if err := validate(e); err != nil {
		return Event{}, err
	}
	e.UpdatedAt = s.now()

	if err := s.events.Update(ctx, e); err != nil {
		return Event{}, err
	}
	s.cache.Invalidate(eventKey(e.ID), listPrefix)
	return e, nil
}

// Delete: organizador o admin (moderación). Borra también las inscripciones.
func (s *Service) Delete(ctx context.Context, eventID, actorID string) error {
	e, err := s.authorize(ctx, eventID, actorID)
	if err != nil {
		return err
	}

	regs, err := s.regs.ListByEvent(ctx, e.ID)
	if err != nil {
		return err
	}
	if err := s.regs.DeleteByEvent(ctx, e.ID); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, e.ID); err != nil {
		return err
	}

	s.cache.Remove(eventKey(e.ID))
	s.cache.Invalidate(listPrefix)
	for _, r := range regs {
		s.cache.Invalidate(myRegistrationsKey(r.UserID))
	}

	if actorID != e.OrganizerID && s.notifier != nil {
		_ = s.notifier.Notify(ctx, e.OrganizerID, notifications.KindModeration,
			"Event removed", fmt.Sprintf("%q was removed by a moderator", e.Title),
			map[string]string{"event_id": e.ID})
	}
	return nil
}

func (s *Service) UploadPhoto(ctx context.Context, eventID, actorID, filename string, content io.Reader) (Event, error) {
	e, err := s.authorize(ctx, eventID, actorID)
	if err != nil {
		return Event{}, err
	}
	if s.uploader == nil {
		return Event{}, media.ErrNotConfigured
	}
	asset, err := s.uploader.Upload(ctx, media.Upload{Folder: "outreach", Filename: filename, Content: content})
	if err != nil {
		return Event{}, err
	}
	e.PhotoURL = asset.URL
	e.UpdatedAt = s.now()
	if err := s.events.Update(ctx, e); err != nil {
		return Event{}, err
	}
	s.cache.Invalidate(eventKey(e.ID), listPrefix)
	return e, nil
}

// Register inscribe al usuario. Es idempotente: si ya estaba inscripto
// devuelve la inscripción existente con created=false.
func (s *Service) Register(ctx context.Context, eventID, userID, note string) (Registration, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return Registration{}, false, ErrInvalidInput
	}
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return Registration{}, false, err
	}

	existing, err := s.regs.ListByEvent(ctx, e.ID)
	if err != nil {
		return Registration{}, false, err
	}
	for _, r := range existing {
		if r.UserID == userID {
			return r, false, nil
		}
	}

	now := s.now()
	if now.After(e.Deadline()) {
		return Registration{}, false, ErrRegistrationClosed
	}
	if e.Capacity > 0 && len(existing) >= e.Capacity {
		return Registration{}, false, ErrEventFull
	}

	r := Registration{
		ID:          uuid.NewString(),
		EventID:     e.ID,
		UserID:      userID,
		OrganizerID: e.OrganizerID,
		Note:        strings.TrimSpace(note),
		CreatedAt:   now,
	}
	if err := s.regs.Create(ctx, r, e.Capacity); err != nil {
		return Registration{}, false, err
	}

	s.cache.Invalidate(registrationsKey(e.ID), myRegistrationsKey(userID), listPrefix)

	if s.pub != nil {
		s.pub.Publish(ctx, realtime.Change{
			Table:  RegistrationsTable,
			Type:   realtime.Insert,
			Record: registrationRecord(r, e.Title),
			At:     now,
		})
	}
	if s.notifier != nil && userID != e.OrganizerID {
		name := s.profiles.DisplayName(ctx, userID)
		_ = s.notifier.Notify(ctx, e.OrganizerID, notifications.KindRegistration,
			"New registration", fmt.Sprintf("%s registered for %s", name, e.Title),
			map[string]string{"event_id": e.ID, "registration_id": r.ID})
	}
	return r, true, nil
}

func (s *Service) CancelRegistration(ctx context.Context, eventID, userID string) error {
	if err := s.regs.Delete(ctx, eventID, userID); err != nil {
		return err
	}
	s.cache.Invalidate(registrationsKey(eventID), myRegistrationsKey(userID), listPrefix)
	return nil
}

// Registrations del evento (lectura interna, sin permisos).
func (s *Service) registrations(ctx context.Context, eventID string) ([]Registration, error) {
	return cache.Fetch(ctx, s.cache, registrationsKey(eventID), func(ctx context.Context) ([]Registration, error) {
		return s.regs.ListByEvent(ctx, eventID)
	})
}

// ListRegistrations: solo organizador o admin.
func (s *Service) ListRegistrations(ctx context.Context, eventID, actorID string) ([]Registration, error) {
	e, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.OrganizerID != actorID && !s.profiles.IsAdmin(ctx, actorID) {
		return nil, ErrForbidden
	}
	return s.registrations(ctx, e.ID)
}

func (s *Service) ListMyRegistrations(ctx context.Context, userID string) ([]Registration, error) {
	return cache.Fetch(ctx, s.cache, myRegistrationsKey(userID), func(ctx context.Context) ([]Registration, error) {
		return s.regs.ListByUser(ctx, userID)
	})
}

// Card es la vista de la card del evento para un usuario.
type Card struct {
	Event           Event
	RegisteredCount int
	AgeLabel        string
	Registration    RegistrationState
}

func (s *Service) Card(ctx context.Context, e Event, viewerID string) (Card, error) {
	regs, err := s.registrations(ctx, e.ID)
	if err != nil {
		return Card{}, err
	}
	registered := false
	for _, r := range regs {
		if r.UserID == viewerID {
			registered = true
			break
		}
	}
	now := s.now()
	return Card{
		Event:           e,
		RegisteredCount: len(regs),
		AgeLabel:        timefmt.AgeLabel(now, e.CreatedAt),
		Registration:    StateFor(e, len(regs), registered, now),
	}, nil
}

func (s *Service) authorize(ctx context.Context, eventID, actorID string) (Event, error) {
	if strings.TrimSpace(actorID) == "" {
		return Event{}, ErrInvalidInput
	}
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return Event{}, err
	}
	if e.OrganizerID != actorID && !s.profiles.IsAdmin(ctx, actorID) {
		return Event{}, ErrForbidden
	}
	return e, nil
}

func registrationRecord(r Registration, eventTitle string) map[string]any {
	return map[string]any{
		"id":           r.ID,
		"event_id":     r.EventID,
		"user_id":      r.UserID,
		"organizer_id": r.OrganizerID,
		"note":         r.Note,
		"event_title":  eventTitle,
		"created_at":   r.CreatedAt,
	}
}

// RealtimeRoute: inscripciones nuevas en los eventos del organizador.
func RealtimeRoute(userID string) realtime.Route {
	return realtime.Route{
		Filter: realtime.Filter{Table: RegistrationsTable, Column: "organizer_id", Value: userID},
		Apply: func(c *cache.Cache, ch realtime.Change) {
			eventID := fmt.Sprint(ch.Record["event_id"])
			if ch.Type == realtime.Delete && ch.Old != nil {
				eventID = fmt.Sprint(ch.Old["event_id"])
			}
			c.Invalidate(registrationsKey(eventID), listPrefix)
		},
		Toast: func(ch realtime.Change) *realtime.Toast {
			if ch.Type != realtime.Insert {
				return nil
			}
			title, _ := ch.Record["event_title"].(string)
			return &realtime.Toast{
				Kind:  "registration",
				Title: "New registration",
				Body:  title,
				Link:  fmt.Sprintf("/outreach/%v", ch.Record["event_id"]),
			}
		},
	}
}
