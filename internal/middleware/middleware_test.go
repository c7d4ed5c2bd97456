package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pawpal/internal/platform/logger"
	"pawpal/internal/ports/auth"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type fakeVerifier struct {
	want string
}

func (f fakeVerifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if token != f.want {
		return auth.Claims{}, errors.New("bad token")
	}
	return auth.Claims{UserID: "u-1", Email: "a@up.edu.ph"}, nil
}

func whoami(w http.ResponseWriter, r *http.Request) {
	c, ok := CurrentUser(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	_, _ = w.Write([]byte(c.UserID))
}

func TestAuthContext_DevHeader(t *testing.T) {
	h := AuthContext(nil)(http.HandlerFunc(whoami))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Debug-User-ID", "dev-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "dev-1" {
		t.Fatalf("expected dev-1, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuthContext_BearerAndQueryToken(t *testing.T) {
	h := AuthContext(fakeVerifier{want: "good"})(http.HandlerFunc(whoami))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with bearer, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/realtime?access_token=good", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with query token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
}

func TestRecover_LogsAndReturns500(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Out: &buf})

	h := chimw.RequestID(Recover(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "kaboom") {
		t.Fatalf("expected panic to be logged, got %q", buf.String())
	}
}

func TestRequestLogger_LogsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Out: &buf})

	h := chimw.RequestID(RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/pets/x", nil))

	out := buf.String()
	if !strings.Contains(out, "status=404") || !strings.Contains(out, "level=warn") || !strings.Contains(out, "request_id=") {
		t.Fatalf("unexpected log line %q", out)
	}
}

func TestRequireFunctionsKey(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	// un verifier que rechaza todo no debe abrir el paso
	h := AuthContext(fakeVerifier{want: "user-token"})(RequireFunctionsKey("fn-secret")(ok))

	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"anonymous", "", "", http.StatusUnauthorized},
		{"user token", "Authorization", "Bearer user-token", http.StatusUnauthorized},
		{"wrong key", "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"bearer key", "Authorization", "Bearer fn-secret", http.StatusOK},
		{"header key", "X-Functions-Key", "fn-secret", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/functions/schedule-reminder", nil)
		if tc.header != "" {
			req.Header.Set(tc.header, tc.value)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
		if tc.want == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"error"`) {
			t.Fatalf("%s: expected {error} body, got %q", tc.name, rec.Body.String())
		}
	}

	closed := RequireFunctionsKey("")(ok)
	req := httptest.NewRequest(http.MethodPost, "/functions/push-notification", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	closed.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with no secret configured, got %d", rec.Code)
	}
}
