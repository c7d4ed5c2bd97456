package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestDoJSON_DecodesAndSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "k" {
			http.Error(w, "missing apikey", http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "bad content type", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"u-1"}`))
	}))
	defer srv.Close()

	c, err := NewWithBaseURL(srv.URL, 0)
	if err != nil {
		t.Fatalf("NewWithBaseURL: %v", err)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.DoJSON(context.Background(), http.MethodPost, "users", map[string]string{"apikey": "k"}, map[string]string{"a": "b"}, &out); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out.ID != "u-1" {
		t.Fatalf("expected id u-1, got %q", out.ID)
	}
}

func TestDoJSON_Non2xxReturnsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))
	defer srv.Close()

	err := New(0).DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if StatusCode(err) != http.StatusTeapot || he.Body != "nope" {
		t.Fatalf("unexpected error: %#v", he)
	}
}

func TestDoForm_EncodesValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("grant_type") != "jwt" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok"}`))
	}))
	defer srv.Close()

	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := New(0).DoForm(context.Background(), srv.URL, nil, url.Values{"grant_type": {"jwt"}}, &out)
	if err != nil || out.AccessToken != "tok" {
		t.Fatalf("DoForm: err=%v token=%q", err, out.AccessToken)
	}
}

func TestDoMultipart_SendsFileAndFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "no file", http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(f)
		if string(b) != "png-bytes" || r.FormValue("folder") != "pets" {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"secure_url":"https://cdn/x.png"}`))
	}))
	defer srv.Close()

	var out struct {
		SecureURL string `json:"secure_url"`
	}
	err := New(0).DoMultipart(context.Background(), srv.URL, nil,
		map[string]string{"folder": "pets"},
		FilePart{Filename: "x.png", Content: strings.NewReader("png-bytes")},
		&out,
	)
	if err != nil || out.SecureURL != "https://cdn/x.png" {
		t.Fatalf("DoMultipart: err=%v url=%q", err, out.SecureURL)
	}
}

func TestResolveURL_RelativeWithoutBase(t *testing.T) {
	if err := New(0).DoJSON(context.Background(), http.MethodGet, "/x", nil, nil, nil); err == nil {
		t.Fatalf("expected error for relative path without BaseURL")
	}
}
