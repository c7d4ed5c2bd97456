package profiles

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pawpal/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/profiles", signUpHandler(svc))
	r.Get("/profiles/{userID}", getProfileHandler(svc))

	r.Route("/me/profile", func(mr chi.Router) {
		mr.Get("/", getMyProfileHandler(svc))
		mr.Patch("/", updateMyProfileHandler(svc))
	})

	// Moderación (solo admin)
	r.Route("/admin/profiles", func(ar chi.Router) {
		ar.Get("/", listProfilesHandler(svc))
		ar.Patch("/{userID}/role", setRoleHandler(svc))
		ar.Post("/{userID}/suspend", setSuspendedHandler(svc, true))
		ar.Post("/{userID}/unsuspend", setSuspendedHandler(svc, false))
	})
}

// BlockSuspended corta con 403 las mutaciones de usuarios suspendidos.
// Las lecturas siguen permitidas.
func BlockSuspended(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			if claims, ok := middleware.CurrentUser(r); ok && svc.IsSuspended(r.Context(), claims.UserID) {
				http.Error(w, "account suspended", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type signUpRequest struct {
	Email            string `json:"email"`
	DisplayName      string `json:"display_name"`
	AccountType      Role   `json:"account_type" enums:"member,organization"`
	OrganizationName string `json:"organization_name"`
}

type profileResponse struct {
	ID               string    `json:"id"`
	Email            string    `json:"email,omitempty"`
	DisplayName      string    `json:"display_name"`
	Bio              string    `json:"bio"`
	AvatarURL        string    `json:"avatar_url"`
	Role             Role      `json:"role"`
	OrganizationName string    `json:"organization_name,omitempty"`
	Suspended        bool      `json:"suspended"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type updateProfileRequest struct {
	DisplayName      *string `json:"display_name"`
	Bio              *string `json:"bio"`
	AvatarURL        *string `json:"avatar_url"`
	OrganizationName *string `json:"organization_name"`
}

// signUpHandler godoc
// @Summary Registrar perfil
// @Description Crea el perfil del usuario autenticado. El email debe ser del dominio institucional configurado.
// @Tags profiles
// @Accept json
// @Produce json
// @Param payload body signUpRequest true "Datos del perfil"
// @Success 201 {object} profileResponse
// @Failure 400 {string} string "invalid json / email de otro dominio"
// @Failure 401 {string} string "unauthorized"
// @Failure 409 {string} string "profile already exists"
// @Router /profiles [post]
func signUpHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req signUpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		// El email del token manda; el del body solo si el token no trae.
		email := strings.TrimSpace(claims.Email)
		if email == "" {
			email = req.Email
		}

		p, err := svc.SignUp(r.Context(), SignUpInput{
			UserID:           claims.UserID,
			Email:            email,
			DisplayName:      req.DisplayName,
			Role:             req.AccountType,
			OrganizationName: req.OrganizationName,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toProfileResponse(p, true))
	}
}

func getProfileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		userID := chi.URLParam(r, "userID")
		p, err := svc.Get(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}

		// el email solo lo ve el dueño o un admin
		showEmail := claims.UserID == p.ID || svc.IsAdmin(r.Context(), claims.UserID)
		writeJSON(w, http.StatusOK, toProfileResponse(p, showEmail))
	}
}

func getMyProfileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, err := svc.Get(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProfileResponse(p, true))
	}
}

func updateMyProfileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req updateProfileRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := svc.Update(r.Context(), claims.UserID, UpdateInput{
			DisplayName:      req.DisplayName,
			Bio:              req.Bio,
			AvatarURL:        req.AvatarURL,
			OrganizationName: req.OrganizationName,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProfileResponse(p, true))
	}
}

func listProfilesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !svc.IsAdmin(r.Context(), claims.UserID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		filter := ListFilter{
			Role:  Role(strings.TrimSpace(r.URL.Query().Get("role"))),
			Query: strings.TrimSpace(r.URL.Query().Get("q")),
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Limit = n
			}
		}

		items, err := svc.List(r.Context(), filter)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]profileResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toProfileResponse(p, true))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func setRoleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req struct {
			Role Role `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := svc.SetRole(r.Context(), claims.UserID, chi.URLParam(r, "userID"), req.Role)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProfileResponse(p, true))
	}
}

func setSuspendedHandler(svc *Service, suspended bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, err := svc.SetSuspended(r.Context(), claims.UserID, chi.URLParam(r, "userID"), suspended)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toProfileResponse(p, true))
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmailDomain), errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "profile not found", http.StatusNotFound)
	case errors.Is(err, ErrAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toProfileResponse(p Profile, withEmail bool) profileResponse {
	out := profileResponse{
		ID:               p.ID,
		DisplayName:      p.DisplayName,
		Bio:              p.Bio,
		AvatarURL:        p.AvatarURL,
		Role:             p.Role,
		OrganizationName: p.OrganizationName,
		Suspended:        p.Suspended,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if withEmail {
		out.Email = p.Email
	}
	return out
}

// writeJSON está duplicado en cada módulo a propósito (igual que en pets/outreach).
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
