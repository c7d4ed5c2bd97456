package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pawpal/internal/domain/pets"
	"pawpal/internal/middleware"
	"pawpal/internal/platform/timefmt"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/pets/{petID}/passport", passportHandler(svc))

	r.Route("/pets/{petID}/vaccinations", func(vr chi.Router) {
		vr.Get("/", listVaccinationsHandler(svc))
		vr.Post("/", createVaccinationHandler(svc))
		vr.Put("/{vaccinationID}", updateVaccinationHandler(svc))
		vr.Delete("/{vaccinationID}", deleteVaccinationHandler(svc))
	})

	r.Route("/pets/{petID}/care-tasks", func(tr chi.Router) {
		tr.Get("/", listTasksHandler(svc))
		tr.Post("/", createTaskHandler(svc))
		tr.Patch("/{taskID}", updateTaskHandler(svc))
		tr.Delete("/{taskID}", deleteTaskHandler(svc))
	})

	r.Route("/pets/{petID}/schedules", func(sr chi.Router) {
		sr.Get("/", listSchedulesHandler(svc))
		sr.Post("/", createScheduleHandler(svc))
		sr.Delete("/{scheduleID}", deleteScheduleHandler(svc))
	})

	r.Route("/pets/{petID}/feedings", func(fr chi.Router) {
		fr.Get("/", listFeedingsHandler(svc))
		fr.Post("/", createFeedingHandler(svc))
		fr.Delete("/{feedingID}", deleteFeedingHandler(svc))
	})
}

// vaccinationRequest: fechas en YYYY-MM-DD.
type vaccinationRequest struct {
	Name      string `json:"name"`
	DateGiven string `json:"date_given"`
	NextDue   string `json:"next_due"` // opcional
	Vet       string `json:"vet"`
	Notes     string `json:"notes"`
}

type vaccinationResponse struct {
	ID         string    `json:"id"`
	PetID      string    `json:"pet_id"`
	Name       string    `json:"name"`
	DateGiven  string    `json:"date_given"`
	NextDue    *string   `json:"next_due,omitempty"`
	Vet        string    `json:"vet,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	RecordedBy string    `json:"recorded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type dueItemResponse struct {
	VaccinationID string `json:"vaccination_id"`
	Name          string `json:"name"`
	DueDate       string `json:"due_date"`
	Overdue       bool   `json:"overdue"`
}

type passportResponse struct {
	PetID        string                `json:"pet_id"`
	PetName      string                `json:"pet_name"`
	Species      string                `json:"species"`
	Breed        string                `json:"breed,omitempty"`
	BirthDate    *string               `json:"birth_date,omitempty"`
	Microchip    string                `json:"microchip,omitempty"`
	PhotoURL     string                `json:"photo_url,omitempty"`
	Vaccinations []vaccinationResponse `json:"vaccinations"`
	Upcoming     []dueItemResponse     `json:"upcoming"`
	Empty        bool                  `json:"empty"`
	Message      string                `json:"message,omitempty"`
}

type taskResponse struct {
	ID        string     `json:"id"`
	PetID     string     `json:"pet_id"`
	Title     string     `json:"title"`
	DueDate   *string    `json:"due_date,omitempty"`
	Done      bool       `json:"done"`
	DoneAt    *time.Time `json:"done_at,omitempty"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
}

type scheduleRequest struct {
	Kind  ScheduleKind `json:"kind" enums:"feeding,medication,grooming,walk,other"`
	Title string       `json:"title"`
	Date  string       `json:"date"` // YYYY-MM-DD
	Time  string       `json:"time"` // HH:MM
	Notes string       `json:"notes"`
}

type scheduleResponse struct {
	ID                string       `json:"id"`
	PetID             string       `json:"pet_id"`
	UserID            string       `json:"user_id"`
	Kind              ScheduleKind `json:"kind"`
	Title             string       `json:"title"`
	Date              string       `json:"date"`
	Time              string       `json:"time"`
	Notes             string       `json:"notes,omitempty"`
	RemindedDayBefore bool         `json:"reminded_day_before"`
	RemindedSameDay   bool         `json:"reminded_same_day"`
	CreatedAt         time.Time    `json:"created_at"`
}

type feedingResponse struct {
	ID        string    `json:"id"`
	PetID     string    `json:"pet_id"`
	FedAt     time.Time `json:"fed_at"`
	Food      string    `json:"food,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	LoggedBy  string    `json:"logged_by"`
	CreatedAt time.Time `json:"created_at"`
}

// passportHandler godoc
// @Summary Pasaporte de salud de la mascota
// @Description Mascota, vacunas y próximas dosis. Sin vacunas responde 200 con `empty: true` y un mensaje.
// @Tags health
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token en producción"
// @Param petID path string true "ID de la mascota"
// @Success 200 {object} passportResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "pet not found"
// @Router /pets/{petID}/passport [get]
func passportHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, err := svc.Passport(r.Context(), chi.URLParam(r, "petID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}

		resp := passportResponse{
			PetID:        p.Pet.ID,
			PetName:      p.Pet.Name,
			Species:      string(p.Pet.Species),
			Breed:        p.Pet.Breed,
			BirthDate:    formatDate(p.Pet.BirthDate),
			Microchip:    p.Pet.Microchip,
			PhotoURL:     p.Pet.PhotoURL,
			Vaccinations: toVaccinationResponses(p.Vaccinations),
			Upcoming:     make([]dueItemResponse, 0, len(p.Upcoming)),
			Empty:        p.Empty,
			Message:      p.Message,
		}
		for _, d := range p.Upcoming {
			resp.Upcoming = append(resp.Upcoming, dueItemResponse{
				VaccinationID: d.VaccinationID,
				Name:          d.Name,
				DueDate:       d.DueDate.Format(timefmt.DateLayout),
				Overdue:       d.Overdue,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listVaccinationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListVaccinations(r.Context(), chi.URLParam(r, "petID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toVaccinationResponses(items))
	}
}

// createVaccinationHandler godoc
// @Summary Registrar vacuna
// @Tags health
// @Accept json
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param payload body vaccinationRequest true "Vacuna; fechas YYYY-MM-DD"
// @Success 201 {object} vaccinationResponse
// @Failure 400 {string} string "invalid input"
// @Failure 403 {string} string "forbidden"
// @Router /pets/{petID}/vaccinations [post]
func createVaccinationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		in, err := decodeVaccination(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		v, err := svc.AddVaccination(r.Context(), chi.URLParam(r, "petID"), claims.UserID, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toVaccinationResponse(v))
	}
}

func updateVaccinationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		in, err := decodeVaccination(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		v, err := svc.UpdateVaccination(r.Context(), chi.URLParam(r, "petID"), chi.URLParam(r, "vaccinationID"), claims.UserID, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toVaccinationResponse(v))
	}
}

func deleteVaccinationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.DeleteVaccination(r.Context(), chi.URLParam(r, "petID"), chi.URLParam(r, "vaccinationID"), claims.UserID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func decodeVaccination(r *http.Request) (VaccinationInput, error) {
	var req vaccinationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return VaccinationInput{}, errors.New("invalid json")
	}
	given, err := timefmt.ParseDate(req.DateGiven)
	if err != nil {
		return VaccinationInput{}, errors.New("date_given must be YYYY-MM-DD")
	}
	next, err := timefmt.OptionalDate(req.NextDue)
	if err != nil {
		return VaccinationInput{}, errors.New("next_due must be YYYY-MM-DD")
	}
	return VaccinationInput{
		Name:      req.Name,
		DateGiven: given,
		NextDue:   next,
		Vet:       req.Vet,
		Notes:     req.Notes,
	}, nil
}

func listTasksHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListTasks(r.Context(), chi.URLParam(r, "petID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]taskResponse, 0, len(items))
		for _, t := range items {
			out = append(out, toTaskResponse(t))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createTaskHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req struct {
			Title   string `json:"title"`
			DueDate string `json:"due_date"` // YYYY-MM-DD opcional
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		due, err := timefmt.OptionalDate(req.DueDate)
		if err != nil {
			http.Error(w, "due_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		t, err := svc.AddTask(r.Context(), chi.URLParam(r, "petID"), claims.UserID, TaskInput{Title: req.Title, DueDate: due})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toTaskResponse(t))
	}
}

// updateTaskHandler: PATCH parcial; due_date null la borra.
func updateTaskHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req struct {
			Title   *string         `json:"title"`
			Done    *bool           `json:"done"`
			DueDate json.RawMessage `json:"due_date"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := TaskPatch{Title: req.Title, Done: req.Done}
		if len(req.DueDate) > 0 {
			if string(req.DueDate) == "null" {
				in.ClearDueDate = true
			} else {
				var s string
				if err := json.Unmarshal(req.DueDate, &s); err != nil {
					http.Error(w, "due_date must be YYYY-MM-DD or null", http.StatusBadRequest)
					return
				}
				due, err := timefmt.ParseDate(s)
				if err != nil {
					http.Error(w, "due_date must be YYYY-MM-DD or null", http.StatusBadRequest)
					return
				}
				in.DueDate = &due
			}
		}

		t, err := svc.UpdateTask(r.Context(), chi.URLParam(r, "petID"), chi.URLParam(r, "taskID"), claims.UserID, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTaskResponse(t))
	}
}

func deleteTaskHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.DeleteTask(r.Context(), chi.URLParam(r, "petID"), chi.URLParam(r, "taskID"), claims.UserID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listSchedulesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListSchedules(r.Context(), chi.URLParam(r, "petID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]scheduleResponse, 0, len(items))
		for _, sc := range items {
			out = append(out, toScheduleResponse(sc))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// createScheduleHandler godoc
// @Summary Crear horario de cuidado
// @Description date YYYY-MM-DD y time HH:MM en hora de Filipinas. El job de recordatorios avisa el día anterior y dentro de las 6 horas previas.
// @Tags health
// @Accept json
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param payload body scheduleRequest true "Horario"
// @Success 201 {object} scheduleResponse
// @Failure 400 {string} string "invalid input"
// @Router /pets/{petID}/schedules [post]
func createScheduleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req scheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		sc, err := svc.AddSchedule(r.Context(), chi.URLParam(r, "petID"), claims.UserID, ScheduleInput(req))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toScheduleResponse(sc))
	}
}

func deleteScheduleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.DeleteSchedule(r.Context(), chi.URLParam(r, "petID"), chi.URLParam(r, "scheduleID"), claims.UserID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// listFeedingsHandler godoc
// @Summary Listar rondas de comida
// @Tags health
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Param limit query int false "Máximo (1-200). Por defecto 50"
// @Param from query string false "fed_at mínimo (RFC3339)"
// @Param to query string false "fed_at máximo (RFC3339)"
// @Success 200 {array} feedingResponse
// @Router /pets/{petID}/feedings [get]
func listFeedingsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		filter, err := parseFeedingFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		items, err := svc.ListFeedings(r.Context(), chi.URLParam(r, "petID"), claims.UserID, filter)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]feedingResponse, 0, len(items))
		for _, f := range items {
			out = append(out, toFeedingResponse(f))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createFeedingHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req struct {
			FedAt  *time.Time `json:"fed_at"` // opcional, default ahora
			Food   string     `json:"food"`
			Amount string     `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		in := FeedingInput{Food: req.Food, Amount: req.Amount}
		if req.FedAt != nil {
			in.FedAt = *req.FedAt
		}

		f, err := svc.LogFeeding(r.Context(), chi.URLParam(r, "petID"), claims.UserID, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toFeedingResponse(f))
	}
}

func deleteFeedingHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.DeleteFeeding(r.Context(), chi.URLParam(r, "petID"), chi.URLParam(r, "feedingID"), claims.UserID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseFeedingFilter(r *http.Request) (FeedingFilter, error) {
	filter := FeedingFilter{Limit: 50}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			filter.Limit = n
		}
	}

	// from/to RFC3339
	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return FeedingFilter{}, errors.New("from must be RFC3339")
		}
		filter.From = &t
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return FeedingFilter{}, errors.New("to must be RFC3339")
		}
		filter.To = &t
	}
	return filter, nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, pets.ErrNotFound):
		http.Error(w, "pet not found", http.StatusNotFound)
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timefmt.DateLayout)
	return &s
}

func toVaccinationResponse(v Vaccination) vaccinationResponse {
	return vaccinationResponse{
		ID:         v.ID,
		PetID:      v.PetID,
		Name:       v.Name,
		DateGiven:  v.DateGiven.Format(timefmt.DateLayout),
		NextDue:    formatDate(v.NextDue),
		Vet:        v.Vet,
		Notes:      v.Notes,
		RecordedBy: v.RecordedBy,
		CreatedAt:  v.CreatedAt,
	}
}

func toVaccinationResponses(items []Vaccination) []vaccinationResponse {
	out := make([]vaccinationResponse, 0, len(items))
	for _, v := range items {
		out = append(out, toVaccinationResponse(v))
	}
	return out
}

func toTaskResponse(t CareTask) taskResponse {
	return taskResponse{
		ID:        t.ID,
		PetID:     t.PetID,
		Title:     t.Title,
		DueDate:   formatDate(t.DueDate),
		Done:      t.Done,
		DoneAt:    t.DoneAt,
		CreatedBy: t.CreatedBy,
		CreatedAt: t.CreatedAt,
	}
}

func toScheduleResponse(sc CareSchedule) scheduleResponse {
	return scheduleResponse{
		ID:                sc.ID,
		PetID:             sc.PetID,
		UserID:            sc.UserID,
		Kind:              sc.Kind,
		Title:             sc.Title,
		Date:              sc.Date,
		Time:              sc.Time,
		Notes:             sc.Notes,
		RemindedDayBefore: sc.RemindedDayBefore,
		RemindedSameDay:   sc.RemindedSameDay,
		CreatedAt:         sc.CreatedAt,
	}
}

func toFeedingResponse(f FeedingLog) feedingResponse {
	return feedingResponse{
		ID:        f.ID,
		PetID:     f.PetID,
		FedAt:     f.FedAt,
		Food:      f.Food,
		Amount:    f.Amount,
		LoggedBy:  f.LoggedBy,
		CreatedAt: f.CreatedAt,
	}
}

// writeJSON duplicado a propósito (ver pets).
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
