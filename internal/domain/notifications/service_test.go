package notifications

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"pawpal/internal/platform/cache"
	"pawpal/internal/realtime"
)

type testRepo struct {
	mu       sync.Mutex
	byID     map[string]Notification
	failMark bool
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Notification{}}
}

func (r *testRepo) Create(ctx context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[n.ID] = n
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok {
		return Notification{}, ErrNotFound
	}
	return n, nil
}

func (r *testRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, 0)
	for _, n := range r.byID {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *testRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := 0
	for _, n := range r.byID {
		if n.UserID == userID && !n.Read {
			c++
		}
	}
	return c, nil
}

func (r *testRepo) MarkRead(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failMark {
		return errors.New("db down")
	}
	n := r.byID[id]
	n.Read = true
	n.ReadAt = &at
	r.byID[id] = n
	return nil
}

func (r *testRepo) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := 0
	for id, n := range r.byID {
		if n.UserID == userID && !n.Read {
			n.Read = true
			n.ReadAt = &at
			r.byID[id] = n
			c++
		}
	}
	return c, nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

type testTokens struct {
	items []DeviceToken
}

func (r *testTokens) Upsert(ctx context.Context, t DeviceToken) error {
	for i, it := range r.items {
		if it.UserID == t.UserID && it.Token == t.Token {
			r.items[i] = t
			return nil
		}
	}
	r.items = append(r.items, t)
	return nil
}

func (r *testTokens) Delete(ctx context.Context, userID, token string) error {
	out := r.items[:0]
	for _, it := range r.items {
		if it.UserID != userID || it.Token != token {
			out = append(out, it)
		}
	}
	r.items = out
	return nil
}

func (r *testTokens) ListByUser(ctx context.Context, userID string) ([]DeviceToken, error) {
	out := make([]DeviceToken, 0)
	for _, it := range r.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

type chanPusher chan Notification

func (p chanPusher) Push(ctx context.Context, n Notification) error {
	p <- n
	return nil
}

func TestCreate_PublishesAndPushes(t *testing.T) {
	hub := realtime.NewHub(nil)
	sub := hub.Subscribe(realtime.Filter{Table: Table, Column: "user_id", Value: "u-1"}, 4)
	defer sub.Close()

	pushed := make(chanPusher, 1)
	svc := NewService(newTestRepo(), &testTokens{}, nil, hub, pushed, nil)

	n, err := svc.Create(context.Background(), CreateInput{UserID: "u-1", Title: "Reminder", Body: "Feed Milo"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.Kind != KindSystem {
		t.Fatalf("expected default kind system, got %s", n.Kind)
	}

	select {
	case ch := <-sub.C():
		if ch.Type != realtime.Insert || FromRecord(ch.Record).ID != n.ID {
			t.Fatalf("unexpected change: %#v", ch)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected realtime insert")
	}

	select {
	case p := <-pushed:
		if p.ID != n.ID {
			t.Fatalf("pushed wrong notification: %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected async push")
	}

	if _, err := svc.Create(context.Background(), CreateInput{UserID: "u-1"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without title, got %v", err)
	}
}

func TestMarkRead_OptimisticRollbackOnFailure(t *testing.T) {
	repo := newTestRepo()
	c := cache.New(cache.Options{StaleTime: time.Hour})
	svc := NewService(repo, &testTokens{}, c, nil, nil, nil)
	ctx := context.Background()

	n, _ := svc.Create(ctx, CreateInput{UserID: "u-1", Title: "Hello"})

	if count, _ := svc.UnreadCount(ctx, "u-1"); count != 1 {
		t.Fatalf("expected 1 unread, got %d", count)
	}
	if _, err := svc.List(ctx, "u-1", 0); err != nil {
		t.Fatalf("List: %v", err)
	}

	repo.failMark = true
	if err := svc.MarkRead(ctx, "u-1", n.ID); err == nil {
		t.Fatalf("expected MarkRead error")
	}
	v, _ := c.Peek(unreadKey("u-1"))
	if v.(int) != 1 {
		t.Fatalf("expected unread count rolled back to 1, got %v", v)
	}
	list, _ := c.Peek(listKey("u-1"))
	if list.([]Notification)[0].Read {
		t.Fatalf("expected list rolled back to unread")
	}

	repo.failMark = false
	if err := svc.MarkRead(ctx, "u-1", n.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if count, _ := svc.UnreadCount(ctx, "u-1"); count != 0 {
		t.Fatalf("expected 0 unread after mark read, got %d", count)
	}
}

func TestMarkRead_OtherUsersNotificationIsNotFound(t *testing.T) {
	svc := NewService(newTestRepo(), &testTokens{}, nil, nil, nil, nil)
	ctx := context.Background()

	n, _ := svc.Create(ctx, CreateInput{UserID: "u-1", Title: "Hello"})
	if err := svc.MarkRead(ctx, "u-2", n.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, "u-2", n.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	svc := NewService(newTestRepo(), &testTokens{}, cache.New(cache.Options{}), nil, nil, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = svc.Notify(ctx, "u-1", KindReminder, "Walk", "", nil)
	}
	n, err := svc.MarkAllRead(ctx, "u-1")
	if err != nil || n != 3 {
		t.Fatalf("expected 3 updated, got %d err=%v", n, err)
	}
	if count, _ := svc.UnreadCount(ctx, "u-1"); count != 0 {
		t.Fatalf("expected 0 unread, got %d", count)
	}
}

func TestTokens_RegisterIsUpsert(t *testing.T) {
	svc := NewService(newTestRepo(), &testTokens{}, cache.New(cache.Options{}), nil, nil, nil)
	ctx := context.Background()

	_, _ = svc.RegisterToken(ctx, "u-1", "tok-a", "")
	_, _ = svc.RegisterToken(ctx, "u-1", "tok-a", "ios")
	_, _ = svc.RegisterToken(ctx, "u-1", "tok-b", "web")

	items, err := svc.ListTokens(ctx, "u-1")
	if err != nil || len(items) != 2 {
		t.Fatalf("expected 2 tokens, got %v err=%v", items, err)
	}
	if items[0].Platform != "ios" {
		t.Fatalf("expected upserted platform, got %s", items[0].Platform)
	}

	if err := svc.UnregisterToken(ctx, "u-1", "tok-a"); err != nil {
		t.Fatalf("UnregisterToken: %v", err)
	}
	items, _ = svc.ListTokens(ctx, "u-1")
	if len(items) != 1 || items[0].Token != "tok-b" {
		t.Fatalf("expected only tok-b, got %v", items)
	}
}

func TestRealtimeRoute_PrependsIntoCache(t *testing.T) {
	c := cache.New(cache.Options{StaleTime: time.Hour})
	c.SetQueryData(listKey("u-1"), func(old any, ok bool) any {
		return []Notification{{ID: "old"}}
	})
	c.SetQueryData(unreadKey("u-1"), func(old any, ok bool) any { return 0 })

	route := RealtimeRoute("u-1")
	n := Notification{ID: "new", UserID: "u-1", Title: "Vote", CreatedAt: time.Now()}
	ch := realtime.Change{Table: Table, Type: realtime.Insert, Record: ToRecord(n)}

	if !route.Filter.Matches(ch) {
		t.Fatalf("route filter should match own notification")
	}
	route.Apply(c, ch)
	route.Apply(c, ch) // duplicado: no se agrega dos veces

	list, _ := c.Peek(listKey("u-1"))
	if got := list.([]Notification); len(got) != 2 || got[0].ID != "new" {
		t.Fatalf("expected prepended notification, got %#v", got)
	}
	if toast := route.Toast(ch); toast == nil || toast.Title != "Vote" {
		t.Fatalf("expected toast, got %#v", toast)
	}
}

func TestRealtimeRoute_UnreadCountStableAcrossSessions(t *testing.T) {
	c := cache.New(cache.Options{StaleTime: time.Hour})
	svc := NewService(newTestRepo(), &testTokens{}, c, nil, nil, nil)
	ctx := context.Background()

	n, err := svc.Create(ctx, CreateInput{UserID: "u-1", Kind: KindMessage, Title: "Hi"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got, _ := svc.UnreadCount(ctx, "u-1"); got != 1 {
		t.Fatalf("expected 1 unread, got %d", got)
	}

	// dos sesiones abiertas del mismo usuario reciben el mismo INSERT
	ch := realtime.Change{Table: Table, Type: realtime.Insert, Record: ToRecord(n)}
	RealtimeRoute("u-1").Apply(c, ch)
	RealtimeRoute("u-1").Apply(c, ch)

	if got, _ := svc.UnreadCount(ctx, "u-1"); got != 1 {
		t.Fatalf("expected unread count to stay 1, got %d", got)
	}
}
