package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"pawpal/internal/domain/notifications"

	"github.com/go-chi/chi/v5"
)

type testTokens struct {
	items []notifications.DeviceToken
}

func (r *testTokens) Upsert(ctx context.Context, t notifications.DeviceToken) error {
	r.items = append(r.items, t)
	return nil
}

func (r *testTokens) Delete(ctx context.Context, userID, token string) error { return nil }

func (r *testTokens) ListByUser(ctx context.Context, userID string) ([]notifications.DeviceToken, error) {
	out := make([]notifications.DeviceToken, 0)
	for _, t := range r.items {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

type recordingSender struct {
	mu       sync.Mutex
	sent     []string
	fail     map[string]bool
	authErr  error
	exchange int
}

func (s *recordingSender) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchange++
	if s.authErr != nil {
		return "", s.authErr
	}
	return "bearer-1", nil
}

func (s *recordingSender) Send(ctx context.Context, bearer, token string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bearer != "bearer-1" {
		return errors.New("missing bearer")
	}
	s.sent = append(s.sent, token)
	if s.fail[token] {
		return errors.New("unregistered")
	}
	return nil
}

func TestUniqueTokens_FirstOccurrenceWins(t *testing.T) {
	got := UniqueTokens([]notifications.DeviceToken{
		{Token: "a"}, {Token: "b"}, {Token: "a"}, {Token: " "}, {Token: "c"}, {Token: "b"},
	})
	if strings.Join(got, ",") != "a,b,c" {
		t.Fatalf("expected a,b,c got %v", got)
	}
}

func TestDispatch_SendsOncePerUniqueTokenAndToleratesFailures(t *testing.T) {
	tokens := &testTokens{items: []notifications.DeviceToken{
		{UserID: "u-1", Token: "t1", Platform: "android"},
		{UserID: "u-1", Token: "t2", Platform: "ios"},
		{UserID: "u-1", Token: "t1", Platform: "web"},
		{UserID: "u-2", Token: "other"},
	}}
	sender := &recordingSender{fail: map[string]bool{"t2": true}}
	svc := NewService(tokens, sender, nil)

	res, err := svc.Dispatch(context.Background(), Message{UserID: "u-1", Title: "Hi"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Tokens != 2 || res.Sent != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 sends, got %v", sender.sent)
	}
	if sender.exchange != 1 {
		t.Fatalf("expected one access token per dispatch, got %d", sender.exchange)
	}
}

func TestDispatch_AccessTokenFailureFailsWholeDispatch(t *testing.T) {
	tokens := &testTokens{items: []notifications.DeviceToken{{UserID: "u-1", Token: "t1"}}}
	badAccount := errors.New("invalid_grant")
	sender := &recordingSender{authErr: badAccount}

	_, err := NewService(tokens, sender, nil).Dispatch(context.Background(), Message{UserID: "u-1", Title: "Hi"})
	if !errors.Is(err, badAccount) {
		t.Fatalf("expected access token error, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no sends without a bearer, got %v", sender.sent)
	}

	r := chi.NewRouter()
	RegisterRoutes(r, NewService(tokens, sender, nil))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/functions/push-notification",
		strings.NewReader(`{"record":{"user_id":"u-1","title":"Hi"}}`)))
	var out map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&out)
	if rec.Code != http.StatusInternalServerError || out["error"] == "" {
		t.Fatalf("expected 500 {error}, got %d %v", rec.Code, out)
	}
}

func TestDispatch_NoTokensSkipsAccessToken(t *testing.T) {
	sender := &recordingSender{authErr: errors.New("should not be called")}
	res, err := NewService(&testTokens{}, sender, nil).Dispatch(context.Background(), Message{UserID: "u-1"})
	if err != nil || res.Tokens != 0 || sender.exchange != 0 {
		t.Fatalf("expected empty dispatch without token exchange, got %+v err=%v exchanges=%d", res, err, sender.exchange)
	}
}

func TestDispatch_Errors(t *testing.T) {
	if _, err := NewService(&testTokens{}, nil, nil).Dispatch(context.Background(), Message{UserID: "u-1"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := NewService(&testTokens{}, &recordingSender{}, nil).Dispatch(context.Background(), Message{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestHandler_ResponseShapes(t *testing.T) {
	tokens := &testTokens{items: []notifications.DeviceToken{{UserID: "u-1", Token: "t1"}}}

	r := chi.NewRouter()
	RegisterRoutes(r, NewService(tokens, &recordingSender{}, nil))
	srv := httptest.NewServer(r)
	defer srv.Close()

	post := func(body string) (int, map[string]string) {
		resp, err := http.Post(srv.URL+"/functions/push-notification", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		defer resp.Body.Close()
		var out map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	st, out := post(`{"record":{"user_id":"u-1","title":"Hi","body":"There","data":{"kind":"message","count":2}}}`)
	if st != http.StatusOK || out["message"] != "Push sent to 1 of 1 devices" {
		t.Fatalf("unexpected success response: %d %v", st, out)
	}

	st, out = post(`{"record":{"user_id":"nobody","title":"Hi"}}`)
	if st != http.StatusOK || out["message"] != "No device tokens for user" {
		t.Fatalf("unexpected empty response: %d %v", st, out)
	}

	// sin sender => 500 {error}
	r2 := chi.NewRouter()
	RegisterRoutes(r2, NewService(tokens, nil, nil))
	srv2 := httptest.NewServer(r2)
	defer srv2.Close()
	resp, err := http.Post(srv2.URL+"/functions/push-notification", "application/json", strings.NewReader(`{"record":{"user_id":"u-1"}}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var errOut map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&errOut)
	if resp.StatusCode != http.StatusInternalServerError || errOut["error"] == "" {
		t.Fatalf("expected 500 with error, got %d %v", resp.StatusCode, errOut)
	}
}
