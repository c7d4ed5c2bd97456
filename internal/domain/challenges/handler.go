package challenges

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pawpal/internal/middleware"
	"pawpal/internal/ports/media"

	"github.com/go-chi/chi/v5"
)

const maxPhotoBytes = 10 << 20

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/challenges", func(cr chi.Router) {
		cr.Get("/", listChallengesHandler(svc))
		cr.Post("/", createChallengeHandler(svc))

		cr.Get("/{challengeID}", getChallengeHandler(svc))
		cr.Put("/{challengeID}", updateChallengeHandler(svc))
		cr.Delete("/{challengeID}", deleteChallengeHandler(svc))

		cr.Post("/{challengeID}/entries", submitEntryHandler(svc))
		cr.Post("/{challengeID}/entries/photo", submitEntryPhotoHandler(svc))
		cr.Get("/{challengeID}/leaderboard", leaderboardHandler(svc))
	})

	r.Route("/challenge-entries/{entryID}", func(er chi.Router) {
		er.Delete("/", deleteEntryHandler(svc))
		er.Post("/vote", voteHandler(svc))
		er.Delete("/vote", unvoteHandler(svc))
	})
}

type challengeRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

type challengeResponse struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	StartsAt      time.Time       `json:"starts_at"`
	EndsAt        time.Time       `json:"ends_at"`
	VotingEnabled bool            `json:"voting_enabled"`
	Entries       []entryResponse `json:"entries,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type entryResponse struct {
	ID          string    `json:"id"`
	ChallengeID string    `json:"challenge_id"`
	PetID       string    `json:"pet_id"`
	UserID      string    `json:"user_id"`
	PhotoURL    string    `json:"photo_url"`
	Caption     string    `json:"caption,omitempty"`
	Votes       int       `json:"votes"`
	VotedByMe   bool      `json:"voted_by_me"`
	CreatedAt   time.Time `json:"created_at"`
}

// listChallengesHandler godoc
// @Summary Listar challenges
// @Description voting_enabled se calcula para el usuario actual.
// @Tags challenges
// @Produce json
// @Success 200 {array} challengeResponse
// @Router /challenges [get]
func listChallengesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.List(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]challengeResponse, 0, len(items))
		for _, c := range items {
			out = append(out, toChallengeResponse(c, svc.VotingEnabled(r.Context(), c, claims.UserID)))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createChallengeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req challengeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		c, err := svc.Create(r.Context(), claims.UserID, Input(req))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toChallengeResponse(c, svc.VotingEnabled(r.Context(), c, claims.UserID)))
	}
}

// getChallengeHandler godoc
// @Summary Detalle de challenge con entradas
// @Tags challenges
// @Produce json
// @Param challengeID path string true "Challenge ID"
// @Success 200 {object} challengeResponse
// @Failure 404 {string} string "challenge not found"
// @Router /challenges/{challengeID} [get]
func getChallengeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		v, err := svc.View(r.Context(), chi.URLParam(r, "challengeID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		resp := toChallengeResponse(v.Challenge, v.VotingEnabled)
		resp.Entries = make([]entryResponse, 0, len(v.Entries))
		for _, e := range v.Entries {
			er := toEntryResponse(e.Entry)
			er.VotedByMe = e.VotedByMe
			resp.Entries = append(resp.Entries, er)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func updateChallengeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req challengeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		c, err := svc.Update(r.Context(), chi.URLParam(r, "challengeID"), claims.UserID, Input(req))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toChallengeResponse(c, svc.VotingEnabled(r.Context(), c, claims.UserID)))
	}
}

func deleteChallengeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Delete(r.Context(), chi.URLParam(r, "challengeID"), claims.UserID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func submitEntryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req struct {
			PetID    string `json:"pet_id"`
			PhotoURL string `json:"photo_url"`
			Caption  string `json:"caption"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		e, err := svc.SubmitEntry(r.Context(), chi.URLParam(r, "challengeID"), claims.UserID, EntryInput(req))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toEntryResponse(e))
	}
}

// submitEntryPhotoHandler: multipart con pet_id, caption y el archivo "photo".
func submitEntryPhotoHandler(svc *Service) http.HandlerFunc {
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

		e, err := svc.SubmitEntryPhoto(r.Context(), chi.URLParam(r, "challengeID"), claims.UserID,
			r.FormValue("pet_id"), r.FormValue("caption"), hdr.Filename, file)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toEntryResponse(e))
	}
}

func leaderboardHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.CurrentUser(r); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.Leaderboard(r.Context(), chi.URLParam(r, "challengeID"))
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]entryResponse, 0, len(items))
		for _, e := range items {
			out = append(out, toEntryResponse(e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteEntryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.DeleteEntry(r.Context(), chi.URLParam(r, "entryID"), claims.UserID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// voteHandler godoc
// @Summary Votar una entrada
// @Description Un voto por usuario y entrada. Cerrado para no-admins después de ends_at.
// @Tags challenges
// @Param entryID path string true "Entry ID"
// @Success 204
// @Failure 409 {string} string "voting closed"
// @Router /challenge-entries/{entryID}/vote [post]
func voteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Vote(r.Context(), chi.URLParam(r, "entryID"), claims.UserID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func unvoteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Unvote(r.Context(), chi.URLParam(r, "entryID"), claims.UserID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toChallengeResponse(c Challenge, votingEnabled bool) challengeResponse {
	return challengeResponse{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		StartsAt:      c.StartsAt,
		EndsAt:        c.EndsAt,
		VotingEnabled: votingEnabled,
		CreatedAt:     c.CreatedAt,
	}
}

func toEntryResponse(e Entry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		ChallengeID: e.ChallengeID,
		PetID:       e.PetID,
		UserID:      e.UserID,
		PhotoURL:    e.PhotoURL,
		Caption:     e.Caption,
		Votes:       e.Votes,
		CreatedAt:   e.CreatedAt,
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrEntryNotFound), errors.Is(err, ErrNotVoted):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrChallengeClosed), errors.Is(err, ErrVotingClosed),
		errors.Is(err, ErrAlreadyEntered), errors.Is(err, ErrAlreadyVoted):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, media.ErrNotConfigured):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON duplicado a propósito (ver pets).
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
