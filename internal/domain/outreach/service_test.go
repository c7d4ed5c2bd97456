package outreach

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pawpal/internal/domain/notifications"
)

type testEvents struct {
	byID map[string]Event
}

func (r *testEvents) Create(ctx context.Context, e Event) error {
	r.byID[e.ID] = e
	return nil
}

func (r *testEvents) Update(ctx context.Context, e Event) error {
	r.byID[e.ID] = e
	return nil
}

func (r *testEvents) Delete(ctx context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

func (r *testEvents) GetByID(ctx context.Context, id string) (Event, error) {
	e, ok := r.byID[id]
	if !ok {
		return Event{}, ErrNotFound
	}
	return e, nil
}

func (r *testEvents) List(ctx context.Context, f ListFilter) ([]Event, error) {
	out := make([]Event, 0)
	for _, e := range r.byID {
		if !f.From.IsZero() && e.StartsAt.Before(f.From) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type testRegs struct {
	items []Registration
}

func (r *testRegs) Create(ctx context.Context, reg Registration, capacity int) error {
	n := 0
	for _, it := range r.items {
		if it.EventID != reg.EventID {
			continue
		}
		if it.UserID == reg.UserID {
			return ErrAlreadyRegistered
		}
		n++
	}
	if capacity > 0 && n >= capacity {
		return ErrEventFull
	}
	r.items = append(r.items, reg)
	return nil
}

func (r *testRegs) Delete(ctx context.Context, eventID, userID string) error {
	for i, it := range r.items {
		if it.EventID == eventID && it.UserID == userID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return ErrNotRegistered
}

func (r *testRegs) DeleteByEvent(ctx context.Context, eventID string) error {
	out := r.items[:0]
	for _, it := range r.items {
		if it.EventID != eventID {
			out = append(out, it)
		}
	}
	r.items = out
	return nil
}

func (r *testRegs) ListByEvent(ctx context.Context, eventID string) ([]Registration, error) {
	out := make([]Registration, 0)
	for _, it := range r.items {
		if it.EventID == eventID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *testRegs) ListByUser(ctx context.Context, userID string) ([]Registration, error) {
	out := make([]Registration, 0)
	for _, it := range r.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

type fakeProfiles struct {
	organizers map[string]bool
	admins     map[string]bool
}

func (f fakeProfiles) CanOrganize(ctx context.Context, id string) bool { return f.organizers[id] || f.admins[id] }
func (f fakeProfiles) IsAdmin(ctx context.Context, id string) bool { return f.admins[id] }
func (f fakeProfiles) DisplayName(ctx context.Context, id string) string {
	return "User " + id
}

type sentNotification struct {
	UserID string
	Kind   notifications.Kind
	Body   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) Notify(ctx context.Context, userID string, kind notifications.Kind, title, body string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{UserID: userID, Kind: kind, Body: body})
	return nil
}

func newTestService(t *testing.T, now time.Time) (*Service, *fakeNotifier) {
	t.Helper()
	n := &fakeNotifier{}
	svc := NewService(
		&testEvents{byID: map[string]Event{}},
		&testRegs{},
		nil,
		fakeProfiles{organizers: map[string]bool{"org-1": true}, admins: map[string]bool{"admin-1": true}},
		n,
		nil,
		nil,
	)
	svc.now = func() time.Time { return now }
	return svc, n
}

func TestStateFor(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	deadline := now.Add(time.Hour)
	e := Event{StartsAt: now.Add(48 * time.Hour), RegistrationDeadline: &deadline, Capacity: 2}

	cases := []struct {
		name       string
		event      Event
		count      int
		registered bool
		want       RegistrationState
	}{
		{"open", e, 0, false, RegistrationState{Open: true, Label: LabelRegister}},
		{"registered wins over full", e, 2, true, RegistrationState{Open: false, Label: LabelRegistered}},
		{"full", e, 2, false, RegistrationState{Open: false, Label: LabelFull}},
		{"closed", Event{StartsAt: now.Add(-time.Minute)}, 0, false, RegistrationState{Open: false, Label: LabelClosed}},
		{"unlimited", Event{StartsAt: now.Add(time.Hour)}, 500, false, RegistrationState{Open: true, Label: LabelRegister}},
	}
	for _, tc := range cases {
		if got := StateFor(tc.event, tc.count, tc.registered, now); got != tc.want {
			t.Fatalf("%s: expected %+v, got %+v", tc.name, tc.want, got)
		}
	}
}

func TestCreate_OnlyOrganizersAndAdmins(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)
	ctx := context.Background()

	in := CreateInput{Title: "Adoption drive", StartsAt: now.Add(24 * time.Hour)}
	if _, err := svc.Create(ctx, "member-1", in); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for member, got %v", err)
	}
	if _, err := svc.Create(ctx, "org-1", CreateInput{Title: "x"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without starts_at, got %v", err)
	}
	if _, err := svc.Create(ctx, "admin-1", in); err != nil {
		t.Fatalf("admin create: %v", err)
	}
}

func TestRegister_ClosedFullIdempotentAndNotifies(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	svc, notifier := newTestService(t, now)
	ctx := context.Background()

	deadline := now.Add(2 * time.Hour)
	e, err := svc.Create(ctx, "org-1", CreateInput{
		Title:                "Vaccination day",
		StartsAt:             now.Add(24 * time.Hour),
		RegistrationDeadline: &deadline,
		Capacity:             1,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	r1, created, err := svc.Register(ctx, e.ID, "u-1", "bringing 2 cats")
	if err != nil || !created {
		t.Fatalf("expected created registration, got created=%v err=%v", created, err)
	}
	r2, created, err := svc.Register(ctx, e.ID, "u-1", "")
	if err != nil || created || r2.ID != r1.ID {
		t.Fatalf("expected idempotent register, got %+v created=%v err=%v", r2, created, err)
	}

	_, _, err = svc.Register(ctx, e.ID, "u-2", "")
	if !errors.Is(err, ErrEventFull) || err.Error() != "event is full" {
		t.Fatalf("expected event is full, got %v", err)
	}

	if len(notifier.sent) != 1 || notifier.sent[0].UserID != "org-1" || notifier.sent[0].Kind != notifications.KindRegistration {
		t.Fatalf("expected one notification to organizer, got %+v", notifier.sent)
	}
	if notifier.sent[0].Body != "User u-1 registered for Vaccination day" {
		t.Fatalf("unexpected body %q", notifier.sent[0].Body)
	}

	// pasado el deadline
	svc.now = func() time.Time { return deadline.Add(time.Second) }
	if err := svc.CancelRegistration(ctx, e.ID, "u-1"); err != nil {
		t.Fatalf("CancelRegistration: %v", err)
	}
	_, _, err = svc.Register(ctx, e.ID, "u-2", "")
	if !errors.Is(err, ErrRegistrationClosed) || err.Error() != "registration closed" {
		t.Fatalf("expected registration closed, got %v", err)
	}
}

func TestCard_AgeLabelAndState(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)
	ctx := context.Background()

	e, _ := svc.Create(ctx, "org-1", CreateInput{Title: "Beach cleanup", StartsAt: now.Add(72 * time.Hour)})

	svc.now = func() time.Time { return now.Add(3 * time.Hour) }
	card, err := svc.Card(ctx, e, "u-1")
	if err != nil {
		t.Fatalf("Card: %v", err)
	}
	if card.AgeLabel != "3h" || card.Registration.Label != LabelRegister || !card.Registration.Open {
		t.Fatalf("unexpected card: %+v", card)
	}

	_, _, _ = svc.Register(ctx, e.ID, "u-1", "")
	card, _ = svc.Card(ctx, e, "u-1")
	if card.Registration.Label != LabelRegistered || card.RegisteredCount != 1 {
		t.Fatalf("expected Registered card, got %+v", card)
	}
}

func TestDelete_ModeratorNotifiesOrganizer(t *testing.T) {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	svc, notifier := newTestService(t, now)
	ctx := context.Background()

	e, _ := svc.Create(ctx, "org-1", CreateInput{Title: "Spam", StartsAt: now.Add(time.Hour)})

	if err := svc.Delete(ctx, e.ID, "u-9"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, e.ID, "admin-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, e.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Kind != notifications.KindModeration {
		t.Fatalf("expected moderation notification, got %+v", notifier.sent)
	}
}
