package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pawpal/internal/config"
	"pawpal/internal/router"
)

const testFunctionsKey = "fn-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(router.NewRouter(router.Options{
		AuthVerifier: nil,
		Config: config.Config{
			EmailDomain:     "up.edu.ph",
			AdminUserIDs:    []string{"admin-1"},
			FunctionsSecret: testFunctionsKey,
		},
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_EndToEnd_SignUpOutreachAndNotifications(t *testing.T) {
	ts := newTestServer(t)

	// 1) Email fuera del dominio institucional
	{
		st, body := doReq(t, ts.URL, "POST", "/profiles", "member-1", map[string]any{
			"email":        "ana@gmail.com",
			"display_name": "Ana",
		})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 for foreign domain, got %d", st)
		}
		if !strings.Contains(string(body), "please sign up with your @up.edu.ph email address") {
			t.Fatalf("unexpected rejection message %q", string(body))
		}
	}

	signUp(t, ts.URL, "member-1", map[string]any{"email": "ana@up.edu.ph", "display_name": "Ana"})
	signUp(t, ts.URL, "member-2", map[string]any{"email": "ben@up.edu.ph", "display_name": "Ben"})
	signUp(t, ts.URL, "org-1", map[string]any{
		"email":             "rescue@up.edu.ph",
		"display_name":      "Rescue",
		"account_type":      "organization",
		"organization_name": "UP Rescue",
	})

	// 2) Un member no puede crear eventos
	eventPayload := map[string]any{
		"title":     "Adoption drive",
		"location":  "Sunken Garden",
		"starts_at": time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"capacity":  1,
	}
	if st, _ := doReq(t, ts.URL, "POST", "/outreach", "member-1", eventPayload); st != http.StatusForbidden {
		t.Fatalf("expected 403 for member creating event, got %d", st)
	}

	// 3) La organización crea el evento
	st, body := doReq(t, ts.URL, "POST", "/outreach", "org-1", eventPayload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 creating event, got %d body=%s", st, string(body))
	}
	var card struct {
		ID           string `json:"id"`
		AgeLabel     string `json:"age_label"`
		Registration struct {
			Open  bool   `json:"open"`
			Label string `json:"label"`
		} `json:"registration"`
	}
	mustJSON(t, body, &card)
	if !strings.HasSuffix(card.AgeLabel, "s") || card.Registration.Label != "Register" || !card.Registration.Open {
		t.Fatalf("unexpected card %+v", card)
	}

	// 4) Inscripción: la primera entra, la segunda rebota por cupo
	if st, body := doReq(t, ts.URL, "POST", "/outreach/"+card.ID+"/register", "member-1", nil); st != http.StatusCreated {
		t.Fatalf("expected 201 registering, got %d body=%s", st, string(body))
	}
	if st, _ := doReq(t, ts.URL, "POST", "/outreach/"+card.ID+"/register", "member-1", nil); st != http.StatusOK {
		t.Fatalf("expected idempotent 200, got %d", st)
	}
	if st, body := doReq(t, ts.URL, "POST", "/outreach/"+card.ID+"/register", "member-2", nil); st != http.StatusConflict || !strings.Contains(string(body), "event is full") {
		t.Fatalf("expected 409 event is full, got %d body=%s", st, string(body))
	}

	// 5) El organizador recibió la notificación
	st, body = doReq(t, ts.URL, "GET", "/notifications", "org-1", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 listing notifications, got %d", st)
	}
	var notes []map[string]any
	mustJSON(t, body, &notes)
	if len(notes) != 1 || notes[0]["kind"] != "registration" {
		t.Fatalf("expected one registration notification, got %s", string(body))
	}
}

func TestHTTP_PetPassportAndMessaging(t *testing.T) {
	ts := newTestServer(t)

	st, body := doReq(t, ts.URL, "POST", "/pets", "owner-1", map[string]any{
		"name":    "Milo",
		"species": "dog",
		"sex":     "male",
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 creating pet, got %d body=%s", st, string(body))
	}
	var pet struct {
		ID string `json:"id"`
	}
	mustJSON(t, body, &pet)

	// Pasaporte vacío: estado vacío, no error
	st, body = doReq(t, ts.URL, "GET", "/pets/"+pet.ID+"/passport", "owner-1", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 passport, got %d body=%s", st, string(body))
	}
	var passport struct {
		Empty   bool   `json:"empty"`
		Message string `json:"message"`
	}
	mustJSON(t, body, &passport)
	if !passport.Empty || passport.Message == "" {
		t.Fatalf("expected empty passport, got %s", string(body))
	}

	// Otro usuario no ve la salud de la mascota
	if st, _ := doReq(t, ts.URL, "GET", "/pets/"+pet.ID+"/vaccinations", "stranger", nil); st != http.StatusForbidden {
		t.Fatalf("expected 403 for stranger, got %d", st)
	}

	if st, body := doReq(t, ts.URL, "POST", "/pets/"+pet.ID+"/vaccinations", "owner-1", map[string]any{
		"name":       "Rabies",
		"date_given": "2025-01-10",
		"next_due":   "2026-01-10",
	}); st != http.StatusCreated {
		t.Fatalf("expected 201 adding vaccination, got %d body=%s", st, string(body))
	}

	// Mensajería
	st, body = doReq(t, ts.URL, "POST", "/conversations", "owner-1", map[string]any{"user_id": "friend-1"})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 starting conversation, got %d body=%s", st, string(body))
	}
	var conv struct {
		ID string `json:"id"`
	}
	mustJSON(t, body, &conv)

	if st, body := doReq(t, ts.URL, "POST", "/conversations/"+conv.ID+"/messages", "owner-1", map[string]any{"body": "Is Milo free on Saturday?"}); st != http.StatusCreated {
		t.Fatalf("expected 201 sending message, got %d body=%s", st, string(body))
	}
	if st, _ := doReq(t, ts.URL, "GET", "/conversations/"+conv.ID+"/messages", "stranger", nil); st != http.StatusNotFound {
		t.Fatalf("expected 404 for non-participant, got %d", st)
	}

	st, body = doReq(t, ts.URL, "GET", "/notifications/unread-count", "friend-1", nil)
	if st != http.StatusOK || !strings.Contains(string(body), `"count":1`) {
		t.Fatalf("expected unread count 1 for recipient, got %d body=%s", st, string(body))
	}
}

func TestHTTP_ReportsModerationAndSuspension(t *testing.T) {
	ts := newTestServer(t)

	signUp(t, ts.URL, "member-1", map[string]any{"email": "ana@up.edu.ph", "display_name": "Ana"})

	st, body := doReq(t, ts.URL, "POST", "/reports", "member-1", map[string]any{
		"target_type": "profile",
		"target_id":   "spammer",
		"reason":      "spam",
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 reporting, got %d body=%s", st, string(body))
	}
	var rep struct {
		ID string `json:"id"`
	}
	mustJSON(t, body, &rep)

	if st, _ := doReq(t, ts.URL, "GET", "/reports?status=open", "member-1", nil); st != http.StatusForbidden {
		t.Fatalf("expected 403 for member listing reports, got %d", st)
	}
	if st, body := doReq(t, ts.URL, "POST", "/reports/"+rep.ID+"/resolve", "admin-1", map[string]any{"note": "user warned"}); st != http.StatusOK {
		t.Fatalf("expected 200 resolving, got %d body=%s", st, string(body))
	}

	// Admin suspende a member-1: las mutaciones quedan bloqueadas, las lecturas no
	if st, body := doReq(t, ts.URL, "POST", "/admin/profiles/member-1/suspend", "admin-1", nil); st != http.StatusOK {
		t.Fatalf("expected 200 suspending, got %d body=%s", st, string(body))
	}
	if st, _ := doReq(t, ts.URL, "POST", "/reports", "member-1", map[string]any{
		"target_type": "pet", "target_id": "p-1", "reason": "x",
	}); st != http.StatusForbidden {
		t.Fatalf("expected 403 for suspended user, got %d", st)
	}
	if st, _ := doReq(t, ts.URL, "GET", "/notifications", "member-1", nil); st != http.StatusOK {
		t.Fatalf("expected reads allowed for suspended user, got %d", st)
	}
}

func TestHTTP_FunctionsRequireServiceKey(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/functions/schedule-reminder", "/functions/push-notification"} {
		// anónimo, o con un usuario cualquiera, no alcanza
		for _, user := range []string{"", "member-1"} {
			st, body := doReq(t, ts.URL, "POST", path, user, map[string]any{
				"record": map[string]any{"user_id": "u-1", "title": "hi"},
			})
			if st != http.StatusUnauthorized || !strings.Contains(string(body), "error") {
				t.Fatalf("expected 401 {error} for %s as %q, got %d body=%s", path, user, st, string(body))
			}
		}
		if st, _ := doFn(t, ts.URL, path, "wrong-key", nil); st != http.StatusUnauthorized {
			t.Fatalf("expected 401 with wrong key on %s, got %d", path, st)
		}
	}

	// sin clave configurada las funciones quedan cerradas
	closed := httptest.NewServer(router.NewRouter(router.Options{Config: config.Config{EmailDomain: "up.edu.ph"}}))
	defer closed.Close()
	if st, _ := doFn(t, closed.URL, "/functions/schedule-reminder", "", nil); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 when no functions key is configured, got %d", st)
	}
}

func TestHTTP_FunctionsAndHealth(t *testing.T) {
	ts := newTestServer(t)

	st, body := doFn(t, ts.URL, "/functions/schedule-reminder", testFunctionsKey, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 from reminder function, got %d body=%s", st, string(body))
	}
	var out struct {
		Message string `json:"message"`
		PHTime  string `json:"ph_time"`
	}
	mustJSON(t, body, &out)
	if !strings.HasSuffix(out.PHTime, "+08:00") {
		t.Fatalf("expected ph_time in +08:00, got %q", out.PHTime)
	}

	// Sin FCM configurado el dispatch falla con {error}
	st, body = doFn(t, ts.URL, "/functions/push-notification", testFunctionsKey, map[string]any{
		"record": map[string]any{"user_id": "u-1", "title": "hi"},
	})
	if st != http.StatusInternalServerError || !strings.Contains(string(body), "error") {
		t.Fatalf("expected 500 {error} without sender, got %d body=%s", st, string(body))
	}

	if st, body := doReq(t, ts.URL, "GET", "/health", "", nil); st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health response %d %q", st, string(body))
	}
}

func signUp(t *testing.T, baseURL, userID string, payload map[string]any) {
	t.Helper()
	st, body := doReq(t, baseURL, "POST", "/profiles", userID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 signing up %s, got %d body=%s", userID, st, string(body))
	}
}

func mustJSON(t *testing.T, body []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(body, out); err != nil {
		t.Fatalf("json unmarshal: %v body=%s", err, string(body))
	}
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}

// doFn llama a una función con la clave de servicio como bearer.
func doFn(t *testing.T, baseURL, path, key string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
