package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/functions/push-notification", pushNotificationHandler(svc))
}

// pushRequest es el payload del webhook de insert en notifications.
type pushRequest struct {
	Record struct {
		UserID string         `json:"user_id"`
		Title  string         `json:"title"`
		Body   string         `json:"body"`
		Data   map[string]any `json:"data"`
	} `json:"record"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// pushNotificationHandler godoc
// @Summary Despachar push de una notificación
// @Description Manda la notificación a todos los dispositivos del usuario vía FCM.
// @Tags functions
// @Accept json
// @Produce json
// @Param payload body pushRequest true "Fila insertada"
// @Success 200 {object} messageResponse
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /functions/push-notification [post]
func pushNotificationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pushRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
			return
		}

		// FCM solo acepta strings en data
		data := make(map[string]string, len(req.Record.Data))
		for k, v := range req.Record.Data {
			if s, ok := v.(string); ok {
				data[k] = s
				continue
			}
			b, _ := json.Marshal(v)
			data[k] = string(b)
		}

		res, err := svc.Dispatch(r.Context(), Message{
			UserID: req.Record.UserID,
			Title:  req.Record.Title,
			Body:   req.Record.Body,
			Data:   data,
		})
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrInvalidInput) {
				status = http.StatusBadRequest
			}
			writeJSON(w, status, errorResponse{Error: err.Error()})
			return
		}

		msg := "No device tokens for user"
		if res.Tokens > 0 {
			msg = fmt.Sprintf("Push sent to %d of %d devices", res.Sent, res.Tokens)
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: msg})
	}
}

// writeJSON duplicado a propósito (ver pets).
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
