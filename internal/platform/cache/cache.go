// Package cache es el store en memoria compartido por todos los servicios de dominio.
//
// Las lecturas pasan por Fetch con una key (tupla de strings). Mientras el dato está
// fresco se sirve del cache; cuando está stale se sirve igual y se revalida en segundo
// plano; cuando falta o fue invalidado se busca de forma sincrónica. Los fetch
// concurrentes de la misma key se deduplican (un solo request en vuelo).
//
// Las mutaciones invalidan keys por prefijo al terminar bien, y pueden aplicar
// updates optimistas con Update/SetQueryData y deshacerlos con el rollback devuelto.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pawpal/internal/platform/logger"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultStaleTime    = 30 * time.Second
	DefaultGCTime       = 5 * time.Minute
	DefaultRetry        = 3
	DefaultRetryDelay   = 200 * time.Millisecond
	DefaultFetchTimeout = 10 * time.Second
)

// Key identifica una query. {"pets", "owner", "u-1"} es prefijo-compatible con {"pets"}.
type Key []string

func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix indica si p es un prefijo (por partes) de k.
func (k Key) HasPrefix(p Key) bool {
	if len(p) > len(k) {
		return false
	}
	for i := range p {
		if k[i] != p[i] {
			return false
		}
	}
	return true
}

func (k Key) id() string {
	return strings.Join(k, "\x1f")
}

type Options struct {
	StaleTime time.Duration
	GCTime    time.Duration

	// Reintentos extra después de un fetch fallido. 0 = sin reintentos.
	Retry      int
	RetryDelay time.Duration

	// Deadline de cada fetch; el fetch no depende del contexto del primer caller.
	FetchTimeout time.Duration

	Logger logger.Logger
}

func (o Options) withDefaults() Options {
	if o.StaleTime <= 0 {
		o.StaleTime = DefaultStaleTime
	}
	if o.GCTime <= 0 {
		o.GCTime = DefaultGCTime
	}
	if o.Retry < 0 {
		o.Retry = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	return o
}

// QueryError es el estado de error tipado que ve el caller de Fetch.
type QueryError struct {
	Key      Key
	Err      error
	Attempts int
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s failed after %d attempt(s): %v", e.Key, e.Attempts, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marca un error de fetch que no debe reintentarse (p.ej. not found).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

type entry struct {
	key       Key
	data      any
	updatedAt time.Time
	lastUsed  time.Time
	invalid   bool
}

// flight es un fetch en curso. dirty => una invalidación o update optimista
// ocurrió mientras tanto: el resultado no se guarda y los callers que lleguen
// después arrancan otro flight (ver markDirtyLocked).
type flight struct {
	key   Key
	dirty bool
}

type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	flights   map[string]*flight
	lastSweep time.Time

	group singleflight.Group
	opts  Options
	log   logger.Logger
	now   func() time.Time
}

func New(opts Options) *Cache {
	opts = opts.withDefaults()
	return &Cache{
		entries: make(map[string]*entry),
		flights: make(map[string]*flight),
		opts:    opts,
		log:     opts.Logger.With(logger.Fields{"component": "cache"}),
		now:     time.Now,
	}
}

// Fetcher trae el dato del origen (repositorio, servicio externo).
type Fetcher[T any] func(ctx context.Context) (T, error)

// Fetch lee key a través del cache.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn Fetcher[T]) (T, error) {
	var zero T
	if c == nil {
		return fn(ctx)
	}

	v, err := c.query(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: key %s holds %T", key, v)
	}
	return out, nil
}

// Update aplica un update optimista tipado sobre una key ya cacheada.
// Si la key no está en cache no hace nada: una lista parcial no debe pasar por fresca.
// Si la key contiene otro tipo, old es el zero value y ok es false.
func Update[T any](c *Cache, key Key, fn func(old T, ok bool) T) (rollback func()) {
	if c == nil {
		return func() {}
	}
	return c.setQueryData(key, true, func(old any, ok bool) any {
		typed, isT := old.(T)
		return fn(typed, ok && isT)
	})
}

func (c *Cache) query(ctx context.Context, key Key, fn func(context.Context) (any, error)) (any, error) {
	id := key.id()
	now := c.now()

	c.mu.Lock()
	e, ok := c.entries[id]
	if ok && now.Sub(e.lastUsed) > c.opts.GCTime {
		delete(c.entries, id)
		ok = false
	}
	if ok && !e.invalid {
		e.lastUsed = now
		data := e.data
		stale := now.Sub(e.updatedAt) >= c.opts.StaleTime
		_, inFlight := c.flights[id]
		c.mu.Unlock()

		if stale && !inFlight {
			go c.revalidate(key, fn)
		}
		return data, nil
	}
	c.mu.Unlock()

	return c.load(ctx, key, fn)
}

func (c *Cache) revalidate(key Key, fn func(context.Context) (any, error)) {
	if _, err := c.load(context.Background(), key, fn); err != nil {
		c.log.Warn("background revalidation failed", logger.Fields{"key": key.String(), "err": err})
	}
}

func (c *Cache) load(ctx context.Context, key Key, fn func(context.Context) (any, error)) (any, error) {
	id := key.id()

	ch := c.group.DoChan(id, func() (any, error) {
		f := &flight{key: key}
		c.mu.Lock()
		c.flights[id] = f
		c.mu.Unlock()

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.FetchTimeout)
		defer cancel()

		data, err := c.fetchWithRetry(fetchCtx, key, fn)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.flights[id] == f {
			delete(c.flights, id)
		}
		if err != nil {
			return nil, err
		}
		if !f.dirty {
			now := c.now()
			c.entries[id] = &entry{key: key, data: data, updatedAt: now, lastUsed: now}
			c.sweepLocked(now)
		}
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (c *Cache) fetchWithRetry(ctx context.Context, key Key, fn func(context.Context) (any, error)) (any, error) {
	for attempt := 1; ; attempt++ {
		data, err := fn(ctx)
		if err == nil {
			return data, nil
		}

		var perm permanentError
		isPerm := errors.As(err, &perm)
		if isPerm {
			err = perm.err
		}
		if isPerm || attempt > c.opts.Retry || ctx.Err() != nil {
			return nil, &QueryError{Key: key, Err: err, Attempts: attempt}
		}

		c.log.Debug("fetch failed, retrying", logger.Fields{"key": key.String(), "attempt": attempt, "err": err})

		t := time.NewTimer(c.opts.RetryDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, &QueryError{Key: key, Err: err, Attempts: attempt}
		case <-t.C:
		}
	}
}

// Invalidate marca como inválidas las entradas cuyo key empieza con alguno de los prefijos.
// La próxima lectura de esas keys va al origen.
func (c *Cache) Invalidate(prefixes ...Key) {
	if c == nil || len(prefixes) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if matchesAny(e.key, prefixes) {
			e.invalid = true
		}
	}
	for id, f := range c.flights {
		if matchesAny(f.key, prefixes) {
			c.markDirtyLocked(id, f)
		}
	}
}

// Remove borra las entradas con esos prefijos.
func (c *Cache) Remove(prefixes ...Key) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, e := range c.entries {
		if matchesAny(e.key, prefixes) {
			delete(c.entries, id)
		}
	}
	for id, f := range c.flights {
		if matchesAny(f.key, prefixes) {
			c.markDirtyLocked(id, f)
		}
	}
}

// markDirtyLocked descarta el resultado de f y lo saca del singleflight, así una
// lectura posterior no se cuelga de un fetch que empezó antes del cambio.
// Los callers que ya esperaban f reciben igual su resultado.
func (c *Cache) markDirtyLocked(id string, f *flight) {
	f.dirty = true
	delete(c.flights, id)
	c.group.Forget(id)
}

// SetQueryData reemplaza el dato de key con updater(old) y devuelve el rollback
// que restaura el snapshot previo.
func (c *Cache) SetQueryData(key Key, updater func(old any, ok bool) any) (rollback func()) {
	if c == nil {
		return func() {}
	}
	return c.setQueryData(key, false, updater)
}

func (c *Cache) setQueryData(key Key, onlyExisting bool, updater func(old any, ok bool) any) (rollback func()) {
	id := key.id()

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, had := c.entries[id]
	if !had && onlyExisting {
		return func() {}
	}
	var snapshot entry
	if had {
		snapshot = *prev
	}

	var old any
	if had {
		old = prev.data
	}
	now := c.now()
	c.entries[id] = &entry{
		key:       key,
		data:      updater(old, had),
		updatedAt: now,
		lastUsed:  now,
		invalid:   had && prev.invalid,
	}
	if f, ok := c.flights[id]; ok {
		c.markDirtyLocked(id, f)
	}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if had {
			restored := snapshot
			c.entries[id] = &restored
			return
		}
		delete(c.entries, id)
	}
}

// Peek devuelve el dato guardado sin disparar fetch.
func (c *Cache) Peek(key Key) (any, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.id()]
	if !ok {
		return nil, false
	}
	return e.data, true
}

// Len es la cantidad de entradas (válidas o no).
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) sweepLocked(now time.Time) {
	if now.Sub(c.lastSweep) < c.opts.GCTime {
		return
	}
	c.lastSweep = now
	for id, e := range c.entries {
		if now.Sub(e.lastUsed) > c.opts.GCTime {
			delete(c.entries, id)
		}
	}
}

func matchesAny(k Key, prefixes []Key) bool {
	for _, p := range prefixes {
		if k.HasPrefix(p) {
			return true
		}
	}
	return false
}
