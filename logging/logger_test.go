package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func decodeEntries(t *testing.T, buf *bytes.Buffer) []Entry {
	t.Helper()
	var out []Entry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("unmarshal entry %q: %v", line, err)
		}
		out = append(out, e)
	}
	return out
}

func TestLoggerWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	logger := New("quill", INFO, &buf)
	logger.Info("auth", "login successful", map[string]any{"email": "a@example.com"})
	logger.Error("auth", "login failed", errors.New("boom"), nil)

	entries := decodeEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != "INFO" || entries[0].Category != "auth" || entries[0].Site != "quill" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Error != "boom" || entries[1].Level != "ERROR" {
		t.Fatalf("unexpected error entry: %+v", entries[1])
	}
}

func TestLoggerRespectsMinLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("quill", WARN, &buf)
	logger.Debug("x", "debug", nil)
	logger.Info("x", "info", nil)
	logger.Warn("x", "warn", nil)
	if entries := decodeEntries(t, &buf); len(entries) != 1 || entries[0].Message != "warn" {
		t.Fatalf("expected only warn entry, got %+v", entries)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Info("x", "ignored", nil)
	l.Error("x", "ignored", nil, nil)
}

func TestLogContextCarriesRequestAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New("quill", INFO, &buf)
	logger.WithRequestID("req-1").WithCategory("admin").WithField("user_id", "u1").Info("post created")

	var nilLogger *Logger
	nilLogger.WithRequestID("req-2").Info("ignored")

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.RequestID != "req-1" || e.Category != "admin" || e.Fields["user_id"] != "u1" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestSubscribeReceivesEntries(t *testing.T) {
	logger := New("quill", INFO, &bytes.Buffer{})
	ch := make(chan Entry, 1)
	unsubscribe := logger.Subscribe(ch)
	logger.Info("modal", "opened", nil)
	select {
	case e := <-ch:
		if e.Message != "opened" {
			t.Fatalf("unexpected entry %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected subscriber to receive entry")
	}
	unsubscribe()
	logger.Info("modal", "closed", nil)
	select {
	case e := <-ch:
		t.Fatalf("unexpected entry after unsubscribe: %+v", e)
	default:
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"debug": DEBUG, "WARN": WARN, "warning": WARN, "error": ERROR, "": INFO, "nope": INFO}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMiddlewareLogsAndRedactsPasswords(t *testing.T) {
	var buf bytes.Buffer
	logger := New("quill", INFO, &buf)
	var seenID string
	handler := NewHTTPLogger(logger, 0).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	form := url.Values{"email": {"a@example.com"}, "password": {"hunter2"}}
	req := httptest.NewRequest(http.MethodPost, "/modal/submit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cookie", "quill_session=abc")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if seenID == "" || rr.Header().Get("X-Request-ID") != seenID {
		t.Fatalf("expected request id to be propagated, got %q / %q", seenID, rr.Header().Get("X-Request-ID"))
	}
	if strings.Contains(buf.String(), "hunter2") {
		t.Fatalf("password leaked into log: %s", buf.String())
	}
	entries := decodeEntries(t, &buf)
	if len(entries) != 1 || entries[0].Level != "WARN" || entries[0].Category != "http" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if headers, ok := entries[0].Fields["request_headers"].(map[string]any); ok {
		if _, leaked := headers["Cookie"]; leaked {
			t.Fatalf("cookie header should be dropped")
		}
	}
}

func TestFileWriterAndReadRecent(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWriter(dir, "quill.log", 1, 2)
	if err != nil {
		t.Fatalf("new file writer: %v", err)
	}
	logger := New("quill", INFO, fw)
	for i := 0; i < 5; i++ {
		logger.Info("server", "tick", map[string]any{"i": i})
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := ReadRecent(filepath.Join(dir, "quill.log"), 3)
	if err != nil {
		t.Fatalf("read recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if got := entries[2].Fields["i"]; got != float64(4) {
		t.Fatalf("expected newest entry last, got %v", got)
	}
}

func TestReadRecentMissingFile(t *testing.T) {
	entries, err := ReadRecent(filepath.Join(t.TempDir(), "missing.log"), 10)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty result, got %v, %v", entries, err)
	}
}
