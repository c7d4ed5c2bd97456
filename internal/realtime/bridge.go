package realtime

import (
	"context"
	"sync"

	"pawpal/internal/platform/cache"
	"pawpal/internal/platform/logger"
)

// Toast es el aviso que ve el usuario cuando llega un cambio relevante.
type Toast struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
	Link  string `json:"link,omitempty"`
}

// Envelope es lo que recibe el cliente por el websocket.
type Envelope struct {
	Kind   string  `json:"kind"` // "change" | "toast"
	Change *Change `json:"change,omitempty"`
	Toast  *Toast  `json:"toast,omitempty"`
}

// Route describe una suscripción de la sesión: qué filas escuchar,
// cómo mezclarlas en el cache y qué toast mostrar (opcional).
type Route struct {
	Filter Filter
	Apply  func(c *cache.Cache, ch Change)
	Toast  func(ch Change) *Toast
}

// RoutesFunc arma las rutas para el usuario logueado.
type RoutesFunc func(userID string) []Route

// Bridge es el listener de una sesión: una suscripción por ruta.
type Bridge struct {
	cache  *cache.Cache
	userID string
	routes []Route
	subs   []*Subscription
	out    chan Envelope
	log    logger.Logger
}

// NewBridge abre las suscripciones en el momento: lo que se publique desde acá
// queda en el buffer de cada suscripción hasta que Run lo procese.
// Quien no llegue a llamar Run tiene que llamar Close.
func NewBridge(hub *Hub, c *cache.Cache, userID string, routes []Route, log logger.Logger) *Bridge {
	if log == nil {
		log = logger.Nop()
	}
	subs := make([]*Subscription, 0, len(routes))
	for _, r := range routes {
		subs = append(subs, hub.Subscribe(r.Filter, 0))
	}
	return &Bridge{
		cache:  c,
		userID: userID,
		routes: routes,
		subs:   subs,
		out:    make(chan Envelope, defaultBuffer),
		log:    log.With(logger.Fields{"component": "realtime.bridge", "user_id": userID}),
	}
}

// Close cierra las suscripciones. Es idempotente.
func (b *Bridge) Close() {
	for _, s := range b.subs {
		s.Close()
	}
}

// Events es el stream hacia el cliente. Se cierra cuando Run termina.
func (b *Bridge) Events() <-chan Envelope { return b.out }

// Run procesa cambios hasta que ctx termine y después cierra las suscripciones.
// Si el cliente no consume, los envelopes se descartan (no hay backpressure hacia el hub).
func (b *Bridge) Run(ctx context.Context) {
	defer close(b.out)
	defer b.Close()

	var wg sync.WaitGroup
	for i := range b.subs {
		wg.Add(1)
		go func(sub *Subscription, route Route) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ch, ok := <-sub.C():
					if !ok {
						return
					}
					b.handle(ctx, route, ch)
				}
			}
		}(b.subs[i], b.routes[i])
	}

	b.log.Debug("bridge started", logger.Fields{"routes": len(b.subs)})
	<-ctx.Done()
	wg.Wait()
	b.log.Debug("bridge stopped", nil)
}

func (b *Bridge) handle(ctx context.Context, route Route, ch Change) {
	if route.Apply != nil && b.cache != nil {
		route.Apply(b.cache, ch)
	}

	b.emit(ctx, Envelope{Kind: "change", Change: &ch})

	if route.Toast == nil {
		return
	}
	if t := route.Toast(ch); t != nil {
		b.emit(ctx, Envelope{Kind: "toast", Toast: t})
	}
}

func (b *Bridge) emit(ctx context.Context, env Envelope) {
	select {
	case <-ctx.Done():
	case b.out <- env:
	default:
		b.log.Warn("client too slow, dropping envelope", logger.Fields{"kind": env.Kind})
	}
}
