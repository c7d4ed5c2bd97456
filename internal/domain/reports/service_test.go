package reports

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"pawpal/internal/domain/notifications"
	"pawpal/internal/platform/cache"
)

type testRepo struct {
	items map[string]Report
}

func (r *testRepo) Create(ctx context.Context, rep Report) error {
	r.items[rep.ID] = rep
	return nil
}

func (r *testRepo) Update(ctx context.Context, rep Report) error {
	if _, ok := r.items[rep.ID]; !ok {
		return ErrNotFound
	}
	r.items[rep.ID] = rep
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Report, error) {
	rep, ok := r.items[id]
	if !ok {
		return Report{}, ErrNotFound
	}
	return rep, nil
}

func (r *testRepo) List(ctx context.Context, status Status) ([]Report, error) {
	out := make([]Report, 0)
	for _, rep := range r.items {
		if status == "" || rep.Status == status {
			out = append(out, rep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *testRepo) ListByReporter(ctx context.Context, reporterID string) ([]Report, error) {
	out := make([]Report, 0)
	for _, rep := range r.items {
		if rep.ReporterID == reporterID {
			out = append(out, rep)
		}
	}
	return out, nil
}

type testAdmins map[string]bool

func (a testAdmins) IsAdmin(ctx context.Context, userID string) bool { return a[userID] }

type sentNotification struct {
	userID string
	kind   notifications.Kind
	body   string
}

type testNotifier struct {
	sent []sentNotification
}

func (n *testNotifier) Notify(ctx context.Context, userID string, kind notifications.Kind, title, body string, data map[string]string) error {
	n.sent = append(n.sent, sentNotification{userID: userID, kind: kind, body: body})
	return nil
}

func newTestService() (*Service, *testNotifier) {
	n := &testNotifier{}
	svc := NewService(&testRepo{items: make(map[string]Report)}, cache.New(cache.Options{}), testAdmins{"admin": true}, n)
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		t0 = t0.Add(time.Second)
		return t0
	}
	return svc, n
}

func TestCreate_Validates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []CreateInput{
		{TargetType: "comment", TargetID: "x", Reason: "spam"},
		{TargetType: TargetPet, TargetID: "", Reason: "spam"},
		{TargetType: TargetPet, TargetID: "p-1", Reason: "   "},
	}
	for _, in := range cases {
		if _, err := svc.Create(ctx, "u-1", in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", in, err)
		}
	}

	rep, err := svc.Create(ctx, "u-1", CreateInput{TargetType: "PET", TargetID: "p-1", Reason: "fake listing"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rep.Status != StatusOpen || rep.TargetType != TargetPet {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestList_AdminOnlyAndFiltersByStatus(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, _ := svc.Create(ctx, "u-1", CreateInput{TargetType: TargetEvent, TargetID: "e-1", Reason: "scam"})
	_, _ = svc.Create(ctx, "u-2", CreateInput{TargetType: TargetMessage, TargetID: "m-1", Reason: "abuse"})

	if _, err := svc.List(ctx, "u-1", StatusOpen); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	open, err := svc.List(ctx, "admin", StatusOpen)
	if err != nil || len(open) != 2 {
		t.Fatalf("expected 2 open reports, got %d err=%v", len(open), err)
	}

	if _, err := svc.Resolve(ctx, "admin", a.ID, "event removed"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// la invalidación fuerza a releer
	open, _ = svc.List(ctx, "admin", StatusOpen)
	resolved, _ := svc.List(ctx, "admin", StatusResolved)
	if len(open) != 1 || len(resolved) != 1 || resolved[0].AdminNote != "event removed" {
		t.Fatalf("unexpected queues open=%d resolved=%+v", len(open), resolved)
	}

	if _, err := svc.List(ctx, "admin", "bogus"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown status, got %v", err)
	}
}

func TestClose_StateMachineAndNotifiesReporter(t *testing.T) {
	svc, n := newTestService()
	ctx := context.Background()

	rep, _ := svc.Create(ctx, "u-1", CreateInput{TargetType: TargetProfile, TargetID: "u-9", Reason: "impersonation"})

	if _, err := svc.Dismiss(ctx, "u-1", rep.ID, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin, got %v", err)
	}

	got, err := svc.Dismiss(ctx, "admin", rep.ID, "not enough evidence")
	if err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if got.Status != StatusDismissed || got.ReviewedBy != "admin" || got.ReviewedAt == nil {
		t.Fatalf("unexpected dismissed report %+v", got)
	}

	// mismo estado => idempotente, sin segunda notificación
	if _, err := svc.Dismiss(ctx, "admin", rep.ID, ""); err != nil {
		t.Fatalf("repeat Dismiss: %v", err)
	}
	if _, err := svc.Resolve(ctx, "admin", rep.ID, ""); !errors.Is(err, ErrBadState) {
		t.Fatalf("expected ErrBadState, got %v", err)
	}

	if len(n.sent) != 1 || n.sent[0].userID != "u-1" || n.sent[0].kind != notifications.KindModeration {
		t.Fatalf("expected one moderation notification to reporter, got %+v", n.sent)
	}
}

func TestGet_HiddenFromOtherUsers(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	rep, _ := svc.Create(ctx, "u-1", CreateInput{TargetType: TargetEntry, TargetID: "en-1", Reason: "stolen photo"})

	if _, err := svc.Get(ctx, "u-2", rep.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
	if _, err := svc.Get(ctx, "u-1", rep.ID); err != nil {
		t.Fatalf("reporter Get: %v", err)
	}
	if _, err := svc.Get(ctx, "admin", rep.ID); err != nil {
		t.Fatalf("admin Get: %v", err)
	}
}
