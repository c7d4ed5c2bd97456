package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestCache(t *testing.T, opts Options) (*Cache, *testClock) {
	t.Helper()
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	c := New(opts)
	clock := &testClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	c.now = clock.Now
	return c, clock
}

func TestFetch_FreshHitDoesNotRefetch(t *testing.T) {
	c, _ := newTestCache(t, Options{StaleTime: time.Minute})

	var calls int32
	fn := func(ctx context.Context) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		return []string{"milo"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := Fetch(context.Background(), c, Key{"pets", "owner", "u-1"}, fn)
		if err != nil {
			t.Fatalf("Fetch error: %v", err)
		}
		if len(got) != 1 || got[0] != "milo" {
			t.Fatalf("unexpected data: %#v", got)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 fetch, got %d", calls)
	}
}

func TestFetch_DeduplicatesInFlight(t *testing.T) {
	c, _ := newTestCache(t, Options{})

	release := make(chan struct{})
	var calls int32
	fn := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Fetch(context.Background(), c, Key{"events", "list"}, fn)
			if err != nil {
				t.Errorf("Fetch error: %v", err)
			}
			results[i] = v
		}(i)
	}

	// dar tiempo a que todos entren al mismo flight
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected 1 in-flight fetch, got %d", calls)
	}
	for _, v := range results {
		if v != 42 {
			t.Fatalf("expected shared result 42, got %d", v)
		}
	}
}

func TestFetch_StaleWhileRevalidate(t *testing.T) {
	c, clock := newTestCache(t, Options{StaleTime: 10 * time.Second})

	var version int32 = 1
	refetched := make(chan struct{}, 1)
	fn := func(ctx context.Context) (int32, error) {
		v := atomic.LoadInt32(&version)
		if v > 1 {
			defer func() { refetched <- struct{}{} }()
		}
		return v, nil
	}

	key := Key{"challenges", "c-1"}
	if v, _ := Fetch(context.Background(), c, key, fn); v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}

	atomic.StoreInt32(&version, 2)
	clock.Advance(11 * time.Second)

	// stale: devuelve el valor viejo de inmediato
	v, err := Fetch(context.Background(), c, key, fn)
	if err != nil || v != 1 {
		t.Fatalf("expected stale value 1, got %d err=%v", v, err)
	}

	select {
	case <-refetched:
	case <-time.After(time.Second):
		t.Fatalf("expected background revalidation")
	}

	// esperar a que el store termine
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if d, ok := c.Peek(key); ok && d.(int32) == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected cache to hold revalidated value 2")
}

func TestInvalidate_ByPrefixForcesRefetch(t *testing.T) {
	c, _ := newTestCache(t, Options{StaleTime: time.Hour})

	var calls int32
	fn := func(ctx context.Context) (int32, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	mine := Key{"notifications", "u-1"}
	other := Key{"profiles", "u-1"}
	_, _ = Fetch(context.Background(), c, mine, fn)
	_, _ = Fetch(context.Background(), c, other, fn)

	c.Invalidate(Key{"notifications"})

	v, _ := Fetch(context.Background(), c, mine, fn)
	if v != 3 {
		t.Fatalf("expected refetch after invalidation, got %d", v)
	}
	v, _ = Fetch(context.Background(), c, other, fn)
	if v != 2 {
		t.Fatalf("expected untouched key served from cache, got %d", v)
	}
}

func TestInvalidate_DuringFetchDoesNotStoreOldResult(t *testing.T) {
	c, _ := newTestCache(t, Options{StaleTime: time.Hour})

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	fn := func(ctx context.Context) (int32, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			close(started)
			<-release
		}
		return n, nil
	}

	key := Key{"outreach", "list"}
	done := make(chan int32)
	go func() {
		v, _ := Fetch(context.Background(), c, key, fn)
		done <- v
	}()

	<-started
	c.Invalidate(Key{"outreach"})
	close(release)
	if v := <-done; v != 1 {
		t.Fatalf("caller should still get its result, got %d", v)
	}

	if _, ok := c.Peek(key); ok {
		t.Fatalf("result of invalidated flight must not be stored")
	}
	if v, _ := Fetch(context.Background(), c, key, fn); v != 2 {
		t.Fatalf("expected fresh fetch, got %d", v)
	}
}

func TestInvalidate_ReadAfterInvalidateDoesNotJoinOldFlight(t *testing.T) {
	c, _ := newTestCache(t, Options{StaleTime: time.Hour})

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	fn := func(ctx context.Context) (int32, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			close(started)
			<-release
		}
		return n, nil
	}

	key := Key{"notifications", "u-1", "unread"}
	first := make(chan int32)
	go func() {
		v, _ := Fetch(context.Background(), c, key, fn)
		first <- v
	}()

	<-started
	c.Invalidate(Key{"notifications", "u-1"})

	// la lectura posterior a la invalidación va al origen aunque el fetch viejo siga en curso
	v, err := Fetch(context.Background(), c, key, fn)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if v != 2 || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected new fetch after invalidate, got %d calls=%d", v, calls)
	}

	close(release)
	if v := <-first; v != 1 {
		t.Fatalf("older caller should still get its own result, got %d", v)
	}
	if got, ok := c.Peek(key); !ok || got.(int32) != 2 {
		t.Fatalf("old flight must not overwrite the newer value, got %v ok=%v", got, ok)
	}
}

func TestSetQueryData_DuringFetchStartsNewFlight(t *testing.T) {
	c, _ := newTestCache(t, Options{StaleTime: time.Hour})

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	fn := func(ctx context.Context) ([]string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
			return []string{"old"}, nil
		}
		return []string{"new"}, nil
	}

	key := Key{"messages", "conv-1"}
	go func() { _, _ = Fetch(context.Background(), c, key, fn) }()
	<-started

	c.SetQueryData(key, func(old any, ok bool) any { return []string{"pending"} })
	c.Invalidate(key)

	got, err := Fetch(context.Background(), c, key, fn)
	if err != nil || len(got) != 1 || got[0] != "new" {
		t.Fatalf("expected fresh fetch, got %v err=%v", got, err)
	}
	close(release)
}

func TestCache_NilIsNoop(t *testing.T) {
	var c *Cache
	if c.Len() != 0 {
		t.Fatalf("expected 0 for nil cache")
	}
	c.Invalidate(Key{"pets"})
	c.Remove(Key{"pets"})
	if _, ok := c.Peek(Key{"pets"}); ok {
		t.Fatalf("nil cache should hold nothing")
	}
	v, err := Fetch(context.Background(), c, Key{"pets"}, func(ctx context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("nil cache should call through, got %d err=%v", v, err)
	}
}

func TestFetch_RetriesThenSurfacesQueryError(t *testing.T) {
	c, _ := newTestCache(t, Options{Retry: 2})

	boom := errors.New("upstream down")
	var calls int32
	_, err := Fetch(context.Background(), c, Key{"pets", "p-1"}, func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", boom
	})

	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("expected *QueryError, got %v", err)
	}
	if qe.Attempts != 3 || calls != 3 {
		t.Fatalf("expected 3 attempts, got attempts=%d calls=%d", qe.Attempts, calls)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped upstream error")
	}
	if c.Len() != 0 {
		t.Fatalf("errors must not be cached")
	}
}

func TestFetch_PermanentErrorIsNotRetried(t *testing.T) {
	c, _ := newTestCache(t, Options{Retry: 3})

	notFound := errors.New("not found")
	var calls int32
	_, err := Fetch(context.Background(), c, Key{"pets", "missing"}, func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "", Permanent(notFound)
	})
	if calls != 1 {
		t.Fatalf("expected single attempt, got %d", calls)
	}
	if !errors.Is(err, notFound) {
		t.Fatalf("expected not found to be unwrapped, got %v", err)
	}
}

func TestUpdate_OptimisticAndRollback(t *testing.T) {
	c, _ := newTestCache(t, Options{StaleTime: time.Hour})

	key := Key{"messages", "conv-1"}
	_, _ = Fetch(context.Background(), c, key, func(ctx context.Context) ([]string, error) {
		return []string{"hi"}, nil
	})

	rollback := Update(c, key, func(old []string, ok bool) []string {
		if !ok {
			t.Fatalf("expected existing data")
		}
		return append(append([]string{}, old...), "pending")
	})

	got, _ := c.Peek(key)
	if len(got.([]string)) != 2 {
		t.Fatalf("expected optimistic append, got %#v", got)
	}

	rollback()
	got, _ = c.Peek(key)
	if len(got.([]string)) != 1 {
		t.Fatalf("expected rollback to snapshot, got %#v", got)
	}
}

func TestUpdate_SkipsUncachedKey(t *testing.T) {
	c, _ := newTestCache(t, Options{})
	key := Key{"notifications", "u-9"}

	rollback := Update(c, key, func(old []int, ok bool) []int {
		return append(old, 1)
	})
	if _, ok := c.Peek(key); ok {
		t.Fatalf("Update must not seed a missing key")
	}
	rollback()
}

func TestSetQueryData_RollbackRemovesWhenMissingBefore(t *testing.T) {
	c, _ := newTestCache(t, Options{})
	key := Key{"notifications", "u-9"}

	rollback := c.SetQueryData(key, func(old any, ok bool) any {
		return []int{1}
	})
	if _, ok := c.Peek(key); !ok {
		t.Fatalf("expected optimistic entry")
	}
	rollback()
	if _, ok := c.Peek(key); ok {
		t.Fatalf("expected entry removed on rollback")
	}
}

func TestFetch_GCEvictsUnusedEntries(t *testing.T) {
	c, clock := newTestCache(t, Options{StaleTime: time.Hour, GCTime: time.Minute})

	var calls int32
	fn := func(ctx context.Context) (int32, error) { return atomic.AddInt32(&calls, 1), nil }

	_, _ = Fetch(context.Background(), c, Key{"reports"}, fn)
	clock.Advance(2 * time.Minute)

	if v, _ := Fetch(context.Background(), c, Key{"reports"}, fn); v != 2 {
		t.Fatalf("expected GC'd entry to be refetched, got %d", v)
	}
}

func TestKey_HasPrefix(t *testing.T) {
	k := Key{"outreach", "e-1", "registrations"}
	if !k.HasPrefix(Key{"outreach"}) || !k.HasPrefix(Key{"outreach", "e-1"}) {
		t.Fatalf("expected prefix match")
	}
	if k.HasPrefix(Key{"outreach", "e-2"}) || k.HasPrefix(Key{"outreach", "e-1", "registrations", "x"}) {
		t.Fatalf("unexpected prefix match")
	}
}
