package outreach

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pawpal/internal/middleware"
	"pawpal/internal/ports/media"

	"github.com/go-chi/chi/v5"
)

const maxPhotoBytes = 10 << 20

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/outreach", func(or chi.Router) {
		or.Get("/", listEventsHandler(svc))
		or.Post("/", createEventHandler(svc))

		or.Get("/{eventID}", getEventHandler(svc))
		or.Patch("/{eventID}", updateEventHandler(svc))
		or.Delete("/{eventID}", deleteEventHandler(svc))
		or.Post("/{eventID}/photo", uploadPhotoHandler(svc))

		// Inscripciones
		or.Post("/{eventID}/register", registerHandler(svc))
		or.Delete("/{eventID}/register", cancelRegistrationHandler(svc))
		or.Get("/{eventID}/registrations", listRegistrationsHandler(svc))
	})

	r.Get("/me/registrations", listMyRegistrationsHandler(svc))
}

type createEventRequest struct {
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Location             string     `json:"location"`
	PhotoURL             string     `json:"photo_url"`
	StartsAt             time.Time  `json:"starts_at"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	Capacity             int        `json:"capacity"`
}

type updateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	PhotoURL    *string    `json:"photo_url"`
	StartsAt    *time.Time `json:"starts_at"`
	Capacity    *int       `json:"capacity"`
	// null = sin deadline propio (cierra al empezar)
	RegistrationDeadline json.RawMessage `json:"registration_deadline"`
}

type eventCardResponse struct {
	ID                   string            `json:"id"`
	OrganizerID          string            `json:"organizer_id"`
	Title                string            `json:"title"`
	Description          string            `json:"description"`
	Location             string            `json:"location"`
	PhotoURL             string            `json:"photo_url,omitempty"`
	StartsAt             time.Time         `json:"starts_at"`
	RegistrationDeadline time.Time         `json:"registration_deadline"`
	Capacity             int               `json:"capacity"`
	RegisteredCount      int               `json:"registered_count"`
	AgeLabel             string            `json:"age_label"`
	Registration         RegistrationState `json:"registration"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

type registrationResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// listEventsHandler godoc
// @Summary Listar eventos de outreach
// @Description Cards con age_label y estado del botón de inscripción para el usuario actual.
// @Tags outreach
// @Produce json
// @Param organizer_id query string false "Filtrar por organizador"
// @Param include_past query bool false "Incluir eventos pasados"
// @Param limit query int false "Máximo (default 50)"
// @Success 200 {array} eventCardResponse
// @Router /outreach [get]
func listEventsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		q := r.URL.Query()
		includePast, _ := strconv.ParseBool(q.Get("include_past"))
		limit, _ := strconv.Atoi(q.Get("limit"))

		items, err := svc.List(r.Context(), q.Get("organizer_id"), includePast, limit)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]eventCardResponse, 0, len(items))
		for _, e := range items {
			card, err := svc.Card(r.Context(), e, claims.UserID)
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			out = append(out, toCardResponse(card))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// createEventHandler godoc
// @Summary Crear evento de outreach
// @Description Solo organizaciones y admins.
// @Tags outreach
// @Accept json
// @Produce json
// @Param payload body createEventRequest true "Evento"
// @Success 201 {object} eventCardResponse
// @Failure 400 {string} string "invalid input"
// @Failure 403 {string} string "forbidden"
// @Router /outreach [post]
func createEventHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		e, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			Title:                req.Title,
			Description:          req.Description,
			Location:             req.Location,
			PhotoURL:             req.PhotoURL,
			StartsAt:             req.StartsAt,
			RegistrationDeadline: req.RegistrationDeadline,
			Capacity:             req.Capacity,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeCard(w, r, svc, e, claims.UserID, http.StatusCreated)
	}
}

func getEventHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		e, err := svc.Get(r.Context(), chi.URLParam(r, "eventID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeCard(w, r, svc, e, claims.UserID, http.StatusOK)
	}
}

func updateEventHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		var req updateEventRequest
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := UpdateInput{
			Title:       req.Title,
			Description: req.Description,
			Location:    req.Location,
			PhotoURL:    req.PhotoURL,
			StartsAt:    req.StartsAt,
			Capacity:    req.Capacity,
		}
		if len(req.RegistrationDeadline) > 0 {
			if string(req.RegistrationDeadline) == "null" {
				in.ClearDeadline = true
			} else {
				var t time.Time
				if err := json.Unmarshal(req.RegistrationDeadline, &t); err != nil {
					http.Error(w, "registration_deadline must be RFC3339 or null", http.StatusBadRequest)
					return
				}
				in.RegistrationDeadline = &t
			}
		}

		e, err := svc.Update(r.Context(), chi.URLParam(r, "eventID"), claims.UserID, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeCard(w, r, svc, e, claims.UserID, http.StatusOK)
	}
}

func deleteEventHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Delete(r.Context(), chi.URLParam(r, "eventID"), claims.UserID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func uploadPhotoHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
		if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
			http.Error(w, "invalid multipart form", http.StatusBadRequest)
			return
		}
		file, hdr, err := r.FormFile("photo")
		if err != nil {
			http.Error(w, "photo file required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		e, err := svc.UploadPhoto(r.Context(), chi.URLParam(r, "eventID"), claims.UserID, hdr.Filename, file)
		if err != nil {
			writeError(w, err)
			return
		}
		writeCard(w, r, svc, e, claims.UserID, http.StatusOK)
	}
}

// registerHandler godoc
// @Summary Inscribirse a un evento
// @Description Idempotente: 201 si se creó, 200 si ya estaba inscripto.
// @Tags outreach
// @Accept json
// @Produce json
// @Param eventID path string true "Event ID"
// @Success 201 {object} registrationResponse
// @Success 200 {object} registrationResponse
// @Failure 409 {string} string "registration closed / event is full"
// @Router /outreach/{eventID}/register [post]
func registerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// body opcional
		var req struct {
			Note string `json:"note"`
		}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		reg, created, err := svc.Register(r.Context(), chi.URLParam(r, "eventID"), claims.UserID, req.Note)
		if err != nil {
			writeError(w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, toRegistrationResponse(reg))
	}
}

func cancelRegistrationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.CancelRegistration(r.Context(), chi.URLParam(r, "eventID"), claims.UserID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listRegistrationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListRegistrations(r.Context(), chi.URLParam(r, "eventID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRegistrationResponses(items))
	}
}

func listMyRegistrationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListMyRegistrations(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toRegistrationResponses(items))
	}
}

func writeCard(w http.ResponseWriter, r *http.Request, svc *Service, e Event, viewerID string, status int) {
	card, err := svc.Card(r.Context(), e, viewerID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, toCardResponse(card))
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "event not found", http.StatusNotFound)
	case errors.Is(err, ErrNotRegistered):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrRegistrationClosed), errors.Is(err, ErrEventFull), errors.Is(err, ErrAlreadyRegistered):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, media.ErrNotConfigured):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toCardResponse(c Card) eventCardResponse {
	e := c.Event
	return eventCardResponse{
		ID:                   e.ID,
		OrganizerID:          e.OrganizerID,
		Title:                e.Title,
		Description:          e.Description,
		Location:             e.Location,
		PhotoURL:             e.PhotoURL,
		StartsAt:             e.StartsAt,
		RegistrationDeadline: e.Deadline(),
		Capacity:             e.Capacity,
		RegisteredCount:      c.RegisteredCount,
		AgeLabel:             c.AgeLabel,
		Registration:         c.Registration,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

func toRegistrationResponse(r Registration) registrationResponse {
	return registrationResponse{
		ID:        r.ID,
		EventID:   r.EventID,
		UserID:    r.UserID,
		Note:      strings.TrimSpace(r.Note),
		CreatedAt: r.CreatedAt,
	}
}

func toRegistrationResponses(items []Registration) []registrationResponse {
	out := make([]registrationResponse, 0, len(items))
	for _, r := range items {
		out = append(out, toRegistrationResponse(r))
	}
	return out
}

// writeJSON duplicado a propósito (ver pets).
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
