package reports

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pawpal/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/reports", func(rr chi.Router) {
		rr.Post("/", createReportHandler(svc))
		rr.Get("/", listReportsHandler(svc))
		rr.Get("/mine", listMyReportsHandler(svc))

		rr.Get("/{reportID}", getReportHandler(svc))
		rr.Post("/{reportID}/resolve", closeReportHandler(svc, StatusResolved))
		rr.Post("/{reportID}/dismiss", closeReportHandler(svc, StatusDismissed))
	})
}

type createReportRequest struct {
	TargetType TargetType `json:"target_type"`
	TargetID   string     `json:"target_id"`
	Reason     string     `json:"reason"`
}

type closeReportRequest struct {
	Note string `json:"note"`
}

type reportResponse struct {
	ID         string     `json:"id"`
	ReporterID string     `json:"reporter_id"`
	TargetType TargetType `json:"target_type"`
	TargetID   string     `json:"target_id"`
	Reason     string     `json:"reason"`
	Status     Status     `json:"status"`
	AdminNote  string     `json:"admin_note,omitempty"`
	ReviewedBy string     `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// createReportHandler godoc
// @Summary Reportar contenido
// @Description target_type: pet, event, entry, message, profile.
// @Tags reports
// @Accept json
// @Produce json
// @Param body body createReportRequest true "Reporte"
// @Success 201 {object} reportResponse
// @Failure 400 {string} string "invalid input"
// @Router /reports [post]
func createReportHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createReportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		rep, err := svc.Create(r.Context(), claims.UserID, CreateInput(req))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toReportResponse(rep))
	}
}

// listReportsHandler godoc
// @Summary Cola de moderación
// @Tags reports
// @Produce json
// @Param status query string false "open | resolved | dismissed"
// @Success 200 {array} reportResponse
// @Failure 403 {string} string "forbidden"
// @Router /reports [get]
func listReportsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.List(r.Context(), claims.UserID, Status(r.URL.Query().Get("status")))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReportResponses(items))
	}
}

func listMyReportsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListMine(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReportResponses(items))
	}
}

func getReportHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		rep, err := svc.Get(r.Context(), claims.UserID, chi.URLParam(r, "reportID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReportResponse(rep))
	}
}

func closeReportHandler(svc *Service, status Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// body opcional
		var req closeReportRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		id := chi.URLParam(r, "reportID")
		var (
			rep Report
			err error
		)
		if status == StatusResolved {
			rep, err = svc.Resolve(r.Context(), claims.UserID, id, req.Note)
		} else {
			rep, err = svc.Dismiss(r.Context(), claims.UserID, id, req.Note)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReportResponse(rep))
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "report not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrBadState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toReportResponse(r Report) reportResponse {
	return reportResponse{
		ID:         r.ID,
		ReporterID: r.ReporterID,
		TargetType: r.TargetType,
		TargetID:   r.TargetID,
		Reason:     r.Reason,
		Status:     r.Status,
		AdminNote:  r.AdminNote,
		ReviewedBy: r.ReviewedBy,
		ReviewedAt: r.ReviewedAt,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func toReportResponses(items []Report) []reportResponse {
	out := make([]reportResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toReportResponse(it))
	}
	return out
}

// writeJSON duplicado a propósito (ver pets).
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
