package notifications

import (
	"fmt"
	"time"

	"pawpal/internal/platform/cache"
	"pawpal/internal/realtime"
)

// ToRecord arma la fila tal como viaja en los cambios realtime.
func ToRecord(n Notification) map[string]any {
	data := make(map[string]any, len(n.Data))
	for k, v := range n.Data {
		data[k] = v
	}
	return map[string]any{
		"id":         n.ID,
		"user_id":    n.UserID,
		"kind":       string(n.Kind),
		"title":      n.Title,
		"body":       n.Body,
		"data":       data,
		"read":       n.Read,
		"created_at": n.CreatedAt,
	}
}

// FromRecord es la inversa de ToRecord; campos faltantes quedan en zero value.
func FromRecord(rec map[string]any) Notification {
	n := Notification{
		ID:     str(rec["id"]),
		UserID: str(rec["user_id"]),
		Kind:   Kind(str(rec["kind"])),
		Title:  str(rec["title"]),
		Body:   str(rec["body"]),
	}
	if v, ok := rec["read"].(bool); ok {
		n.Read = v
	}
	if v, ok := rec["created_at"].(time.Time); ok {
		n.CreatedAt = v
	}
	if d, ok := rec["data"].(map[string]any); ok {
		n.Data = make(map[string]string, len(d))
		for k, v := range d {
			n.Data[k] = str(v)
		}
	}
	return n
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// RealtimeRoute: INSERTs de notifications del usuario. Se agregan arriba de la
// lista cacheada, el contador se invalida y se muestra un toast.
// El cache es compartido por todas las sesiones del usuario, así que el mismo
// INSERT llega una vez por sesión: lo que se aplique tiene que ser idempotente.
func RealtimeRoute(userID string) realtime.Route {
	return realtime.Route{
		Filter: realtime.Filter{Table: Table, Column: "user_id", Value: userID},
		Apply: func(c *cache.Cache, ch realtime.Change) {
			if ch.Type != realtime.Insert {
				c.Invalidate(userKey(userID))
				return
			}
			n := FromRecord(ch.Record)
			cache.Update(c, listKey(userID), func(old []Notification, ok bool) []Notification {
				for _, o := range old {
					if o.ID == n.ID {
						return old
					}
				}
				return append([]Notification{n}, old...)
			})
			// el conteo sale del store; sumar acá contaría una vez por sesión
			c.Invalidate(unreadKey(userID))
		},
		Toast: func(ch realtime.Change) *realtime.Toast {
			if ch.Type != realtime.Insert {
				return nil
			}
			n := FromRecord(ch.Record)
			return &realtime.Toast{Kind: "notification", Title: n.Title, Body: n.Body, Link: "/notifications"}
		},
	}
}
