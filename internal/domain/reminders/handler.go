package reminders

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/functions/schedule-reminder", scheduleReminderHandler(svc))
}

type runResponse struct {
	Message string `json:"message"`
	PHTime  string `json:"ph_time"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// scheduleReminderHandler godoc
// @Summary Correr el job de recordatorios
// @Description La invoca el scheduler; sin body.
// @Tags functions
// @Produce json
// @Success 200 {object} runResponse
// @Failure 500 {object} errorResponse
// @Router /functions/schedule-reminder [post]
func scheduleReminderHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Run(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, runResponse{
			Message: fmt.Sprintf("Sent %d reminders (%d day-before, %d same-day), skipped %d",
				res.Sent(), res.DayBefore, res.SameDay, res.Skipped),
			PHTime: res.PHTime.Format(time.RFC3339),
		})
	}
}

// writeJSON duplicado a propósito (ver pets).
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
