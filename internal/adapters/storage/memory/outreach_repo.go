package memory

import (
	"context"
	"sort"
	"sync"

	"pawpal/internal/domain/outreach"
)

type outreachEventRepo struct {
	mu   sync.RWMutex
	byID map[string]outreach.Event
}

func NewOutreachEventRepo() outreach.Repository {
	return &outreachEventRepo{byID: make(map[string]outreach.Event)}
}

func (r *outreachEventRepo) Create(ctx context.Context, e outreach.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[e.ID] = e
	return nil
}

func (r *outreachEventRepo) Update(ctx context.Context, e outreach.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID]; !ok {
		return outreach.ErrNotFound
	}
	r.byID[e.ID] = e
	return nil
}

func (r *outreachEventRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return outreach.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *outreachEventRepo) GetByID(ctx context.Context, id string) (outreach.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return outreach.Event{}, outreach.ErrNotFound
	}
	return e, nil
}

func (r *outreachEventRepo) List(ctx context.Context, f outreach.ListFilter) ([]outreach.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]outreach.Event, 0)
	for _, e := range r.byID {
		if f.OrganizerID != "" && e.OrganizerID != f.OrganizerID {
			continue
		}
		if !f.From.IsZero() && e.StartsAt.Before(f.From) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

type registrationRepo struct {
	mu    sync.RWMutex
	items []outreach.Registration
}

func NewRegistrationRepo() outreach.RegistrationRepository {
	return &registrationRepo{}
}

// Create chequea duplicado y capacidad bajo el mismo lock.
func (r *registrationRepo) Create(ctx context.Context, reg outreach.Registration, capacity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, it := range r.items {
		if it.EventID != reg.EventID {
			continue
		}
		if it.UserID == reg.UserID {
			return outreach.ErrAlreadyRegistered
		}
		n++
	}
	if capacity > 0 && n >= capacity {
		return outreach.ErrEventFull
	}
	r.items = append(r.items, reg)
	return nil
}

func (r *registrationRepo) Delete(ctx context.Context, eventID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, it := range r.items {
		if it.EventID == eventID && it.UserID == userID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return outreach.ErrNotRegistered
}

func (r *registrationRepo) DeleteByEvent(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]outreach.Registration, 0, len(r.items))
	for _, it := range r.items {
		if it.EventID != eventID {
			out = append(out, it)
		}
	}
	r.items = out
	return nil
}

func (r *registrationRepo) ListByEvent(ctx context.Context, eventID string) ([]outreach.Registration, error) {
	return r.filter(func(it outreach.Registration) bool { return it.EventID == eventID }), nil
}

func (r *registrationRepo) ListByUser(ctx context.Context, userID string) ([]outreach.Registration, error) {
	return r.filter(func(it outreach.Registration) bool { return it.UserID == userID }), nil
}

func (r *registrationRepo) filter(keep func(outreach.Registration) bool) []outreach.Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]outreach.Registration, 0)
	for _, it := range r.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
