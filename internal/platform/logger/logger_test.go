package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLogger_TextFormat_SortedAndFiltered(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Info, Format: FormatText, App: "pawpal", Out: &buf})

	l.Debug("hidden", nil)
	l.With(Fields{"user_id": "u-1"}).Info("signed up", Fields{"domain": "up.edu.ph"})

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered, got %q", out)
	}
	if !strings.Contains(out, "app=pawpal") || !strings.Contains(out, "user_id=u-1") {
		t.Fatalf("expected base + child fields, got %q", out)
	}
	if strings.Index(out, "app=") > strings.Index(out, "user_id=") {
		t.Fatalf("expected sorted keys, got %q", out)
	}
	if !strings.Contains(out, `msg="signed up"`) {
		t.Fatalf("expected quoted msg, got %q", out)
	}
}

func TestLogger_JSONFormat_StringifiesErrors(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Debug, Format: FormatJSON, Out: &buf})

	l.Error("push failed", Fields{"err": errors.New("boom")})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json line: %v (%q)", err, buf.String())
	}
	if entry["err"] != "boom" || entry["level"] != "error" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
}

func TestFromContext_Fallback(t *testing.T) {
	var buf bytes.Buffer
	fb := New(Options{Out: &buf})
	if got := FromContext(context.Background(), fb); got != fb {
		t.Fatalf("expected fallback logger")
	}

	child := fb.With(Fields{"request_id": "r-1"})
	ctx := WithContext(context.Background(), child)
	if got := FromContext(ctx, fb); got != child {
		t.Fatalf("expected logger from context")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"debug": Debug, "": Info, "WARNING": Warn, "error": Error, "nope": Info}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
