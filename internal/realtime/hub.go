// Package realtime implementa el canal de cambios (INSERT/UPDATE/DELETE por tabla)
// y el bridge por sesión que los aplica al cache y los manda al cliente.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pawpal/internal/platform/logger"
)

type ChangeType string

const (
	Insert ChangeType = "INSERT"
	Update ChangeType = "UPDATE"
	Delete ChangeType = "DELETE"
)

// Change es un evento de cambio de una fila.
type Change struct {
	Table  string         `json:"table"`
	Type   ChangeType     `json:"type"`
	Record map[string]any `json:"record"`
	Old    map[string]any `json:"old,omitempty"`
	At     time.Time      `json:"commit_timestamp"`
}

// Publisher es lo que usan los servicios de dominio después de mutar.
type Publisher interface {
	Publish(ctx context.Context, c Change)
}

// Filter es table + predicado "column = value". Column vacío => todas las filas.
type Filter struct {
	Table  string
	Column string
	Value  string
}

func (f Filter) Matches(c Change) bool {
	if f.Table != "" && f.Table != c.Table {
		return false
	}
	if f.Column == "" {
		return true
	}
	row := c.Record
	if c.Type == Delete && len(c.Old) > 0 {
		row = c.Old
	}
	v, ok := row[f.Column]
	if !ok {
		return false
	}
	return fmt.Sprint(v) == f.Value
}

func (f Filter) String() string {
	if f.Column == "" {
		return f.Table
	}
	return fmt.Sprintf("%s:%s=eq.%s", f.Table, f.Column, f.Value)
}

const defaultBuffer = 64

// Hub es el pub/sub del proceso. Publish nunca bloquea: si el buffer de un
// suscriptor está lleno, el cambio se descarta para ese suscriptor.
type Hub struct {
	mu   sync.RWMutex
	subs map[uint64]*Subscription
	next uint64
	log  logger.Logger
	now  func() time.Time
}

func NewHub(log logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		subs: make(map[uint64]*Subscription),
		log:  log.With(logger.Fields{"component": "realtime"}),
		now:  time.Now,
	}
}

type Subscription struct {
	id     uint64
	filter Filter
	ch     chan Change
	hub    *Hub
	once   sync.Once
}

// C es el canal de cambios; se cierra con Close.
func (s *Subscription) C() <-chan Change { return s.ch }

func (s *Subscription) Filter() Filter { return s.filter }

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
		close(s.ch)
	})
}

func (h *Hub) Subscribe(f Filter, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	s := &Subscription{
		id:     h.next,
		filter: f,
		ch:     make(chan Change, buffer),
		hub:    h,
	}
	h.subs[s.id] = s
	return s
}

func (h *Hub) Publish(ctx context.Context, c Change) {
	if h == nil {
		return
	}
	if c.At.IsZero() {
		c.At = h.now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.subs {
		if !s.filter.Matches(c) {
			continue
		}
		select {
		case s.ch <- c:
		default:
			h.log.Warn("subscriber buffer full, dropping change", logger.Fields{
				"filter": s.filter.String(),
				"table":  c.Table,
				"type":   string(c.Type),
			})
		}
	}
}

// Subscribers es la cantidad de suscripciones abiertas.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
