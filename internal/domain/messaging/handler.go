package messaging

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pawpal/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/conversations", func(cr chi.Router) {
		cr.Get("/", listConversationsHandler(svc))
		cr.Post("/", startConversationHandler(svc))

		cr.Get("/{conversationID}/messages", listMessagesHandler(svc))
		cr.Post("/{conversationID}/messages", sendMessageHandler(svc))
		cr.Post("/{conversationID}/read", markReadHandler(svc))
	})
}

type conversationResponse struct {
	ID            string           `json:"id"`
	OtherUserID   string           `json:"other_user_id"`
	LastMessage   *messageResponse `json:"last_message,omitempty"`
	Unread        int              `json:"unread"`
	CreatedAt     time.Time        `json:"created_at"`
	LastMessageAt time.Time        `json:"last_message_at"`
}

type messageResponse struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	RecipientID    string     `json:"recipient_id"`
	Body           string     `json:"body"`
	Read           bool       `json:"read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// listConversationsHandler godoc
// @Summary Bandeja de conversaciones
// @Tags messaging
// @Produce json
// @Success 200 {array} conversationResponse
// @Router /conversations [get]
func listConversationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListConversations(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]conversationResponse, 0, len(items))
		for _, s := range items {
			resp := conversationResponse{
				ID:            s.Conversation.ID,
				OtherUserID:   s.OtherUserID,
				Unread:        s.Unread,
				CreatedAt:     s.Conversation.CreatedAt,
				LastMessageAt: s.Conversation.LastMessageAt,
			}
			if s.LastMessage != nil {
				m := toMessageResponse(*s.LastMessage)
				resp.LastMessage = &m
			}
			out = append(out, resp)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// startConversationHandler godoc
// @Summary Abrir conversación con otro usuario
// @Description Idempotente por par: 201 si se creó, 200 si ya existía.
// @Tags messaging
// @Accept json
// @Produce json
// @Success 201 {object} conversationResponse
// @Router /conversations [post]
func startConversationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		c, created, err := svc.StartConversation(r.Context(), claims.UserID, req.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, conversationResponse{
			ID:            c.ID,
			OtherUserID:   c.Other(claims.UserID),
			CreatedAt:     c.CreatedAt,
			LastMessageAt: c.LastMessageAt,
		})
	}
}

func listMessagesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		items, err := svc.ListMessages(r.Context(), chi.URLParam(r, "conversationID"), claims.UserID, limit)
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]messageResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMessageResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// sendMessageHandler godoc
// @Summary Enviar mensaje
// @Tags messaging
// @Accept json
// @Produce json
// @Param conversationID path string true "Conversation ID"
// @Success 201 {object} messageResponse
// @Failure 404 {string} string "conversation not found"
// @Router /conversations/{conversationID}/messages [post]
func sendMessageHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req struct {
			Body string `json:"body"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.Send(r.Context(), chi.URLParam(r, "conversationID"), claims.UserID, req.Body)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toMessageResponse(m))
	}
}

func markReadHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.CurrentUser(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		n, err := svc.MarkRead(r.Context(), chi.URLParam(r, "conversationID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"updated": n})
	}
}

func toMessageResponse(m Message) messageResponse {
	return messageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		RecipientID:    m.RecipientID,
		Body:           m.Body,
		Read:           m.Read(),
		ReadAt:         m.ReadAt,
		CreatedAt:      m.CreatedAt,
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "conversation not found", http.StatusNotFound)
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
