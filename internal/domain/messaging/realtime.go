package messaging

import (
	"fmt"
	"time"

	"pawpal/internal/platform/cache"
	"pawpal/internal/realtime"
)

func toRecord(m Message) map[string]any {
	return map[string]any{
		"id":              m.ID,
		"conversation_id": m.ConversationID,
		"sender_id":       m.SenderID,
		"recipient_id":    m.RecipientID,
		"body":            m.Body,
		"created_at":      m.CreatedAt,
	}
}

func fromRecord(rec map[string]any) Message {
	m := Message{
		ID:             fmt.Sprint(rec["id"]),
		ConversationID: fmt.Sprint(rec["conversation_id"]),
		SenderID:       fmt.Sprint(rec["sender_id"]),
		RecipientID:    fmt.Sprint(rec["recipient_id"]),
	}
	m.Body, _ = rec["body"].(string)
	if t, ok := rec["created_at"].(time.Time); ok {
		m.CreatedAt = t
	}
	return m
}

// RealtimeRoute: mensajes entrantes. Se agregan al hilo cacheado y la
// bandeja se invalida para recalcular no leídos.
func RealtimeRoute(userID string) realtime.Route {
	return realtime.Route{
		Filter: realtime.Filter{Table: Table, Column: "recipient_id", Value: userID},
		Apply: func(c *cache.Cache, ch realtime.Change) {
			if ch.Type != realtime.Insert {
				c.Invalidate(conversationsKey(userID))
				return
			}
			m := fromRecord(ch.Record)
			cache.Update(c, messagesKey(m.ConversationID), func(old []Message, ok bool) []Message {
				for _, o := range old {
					if o.ID == m.ID {
						return old
					}
				}
				out := make([]Message, 0, len(old)+1)
				out = append(out, old...)
				return append(out, m)
			})
			c.Invalidate(conversationsKey(userID))
		},
		Toast: func(ch realtime.Change) *realtime.Toast {
			if ch.Type != realtime.Insert {
				return nil
			}
			m := fromRecord(ch.Record)
			return &realtime.Toast{
				Kind:  "message",
				Title: "New message",
				Body:  preview(m.Body),
				Link:  "/conversations/" + m.ConversationID,
			}
		},
	}
}
