package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Its-donkey/quill/internal/accounts"
	"github.com/Its-donkey/quill/internal/auth"
	"github.com/Its-donkey/quill/internal/ratelimit"
)

func newTestAPI(t *testing.T, attempts int) *httptest.Server {
	t.Helper()
	svc, err := accounts.NewService(accounts.Options{
		Repository: accounts.NewMemoryRepository(),
		Secret:     "test-secret",
		Cost:       bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	limiter := ratelimit.NewMemory()
	t.Cleanup(limiter.Close)
	mux := http.NewServeMux()
	NewHandler(HandlerOptions{
		Authenticator: svc,
		Authorizer:    svc,
		Limiter:       limiter,
		Attempts:      attempts,
		Window:        time.Minute,
	}).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp, payload
}

func TestHandlerRegisterAndLogin(t *testing.T) {
	srv := newTestAPI(t, 0)

	resp, payload := postJSON(t, srv.URL+RegisterPath, `{"name":"Ada","email":"ada@example.com","password":"hunter22"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status %d: %v", resp.StatusCode, payload)
	}
	if payload["token"] == "" || payload["message"] != "Registration successful!" {
		t.Fatalf("unexpected register payload %v", payload)
	}

	resp, payload = postJSON(t, srv.URL+LoginPath, `{"email":"ada@example.com","password":"hunter22"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %v", resp.StatusCode, payload)
	}
	user, _ := payload["user"].(map[string]any)
	if user["name"] != "Ada" {
		t.Fatalf("unexpected user %v", payload["user"])
	}
}

func TestHandlerStatusCodes(t *testing.T) {
	srv := newTestAPI(t, 0)
	postJSON(t, srv.URL+RegisterPath, `{"name":"Ada","email":"ada@example.com","password":"hunter22"}`)

	cases := []struct {
		path, body string
		want       int
	}{
		{LoginPath, `{"email":"ada@example.com","password":"nope-nope"}`, http.StatusUnauthorized},
		{LoginPath, `{"email":""}`, http.StatusBadRequest},
		{LoginPath, `not json`, http.StatusBadRequest},
		{RegisterPath, `{"name":"Ada","email":"ada@example.com","password":"hunter22"}`, http.StatusConflict},
	}
	for _, tc := range cases {
		resp, payload := postJSON(t, srv.URL+tc.path, tc.body)
		if resp.StatusCode != tc.want {
			t.Fatalf("%s %s: status %d want %d", tc.path, tc.body, resp.StatusCode, tc.want)
		}
		if payload["error"] == "" {
			t.Fatalf("expected error message, got %v", payload)
		}
	}

	resp, err := http.Get(srv.URL + LoginPath)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestHandlerRateLimits(t *testing.T) {
	srv := newTestAPI(t, 2)
	body := `{"email":"ada@example.com","password":"hunter22"}`
	for i := 0; i < 2; i++ {
		resp, _ := postJSON(t, srv.URL+LoginPath, body)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, resp.StatusCode)
		}
	}
	resp, _ := postJSON(t, srv.URL+LoginPath, body)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestClientRoundTrip(t *testing.T) {
	srv := newTestAPI(t, 0)
	client := NewClient(srv.URL+"/", nil)
	ctx := context.Background()

	session, err := client.Register(ctx, auth.Registration{Name: "Ada", Email: "ada@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if session.Token == "" || session.User.Email != "ada@example.com" {
		t.Fatalf("unexpected session %+v", session)
	}

	_, err = client.Login(ctx, auth.Credentials{Email: "ada@example.com", Password: "wrong-pass"})
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Status != http.StatusUnauthorized {
		t.Fatalf("expected remote 401, got %v", err)
	}
	if err.Error() != accounts.ErrInvalidCredentials.Error() {
		t.Fatalf("expected server message to pass through, got %q", err.Error())
	}
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, nil).Login(context.Background(), auth.Credentials{Email: "a", Password: "b"})
	if !errors.Is(err, auth.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestClientPlugsIntoStore(t *testing.T) {
	srv := newTestAPI(t, 0)
	store := auth.NewStore(auth.Options{Authenticator: NewClient(srv.URL, nil)})
	store.Dispatch(auth.Register{Name: "Ada", Email: "ada@example.com", Password: "hunter22"})
	store.Wait()
	st := store.Snapshot()
	if !st.IsAuthenticated || st.User.Name != "Ada" || st.Message != "Registration successful!" {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestHandlerRateLimitIgnoresForwardedFor(t *testing.T) {
	srv := newTestAPI(t, 2)
	body := `{"email":"ada@example.com","password":"hunter22"}`
	limited := 0
	for i := 0; i < 10; i++ {
		req, err := http.NewRequest(http.MethodPost, srv.URL+LoginPath, strings.NewReader(body))
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 8 {
		t.Fatalf("expected 8 limited replies, got %d", limited)
	}
}

func TestClientAuthorizeRoundTrip(t *testing.T) {
	srv := newTestAPI(t, 0)
	client := NewClient(srv.URL, nil)
	ctx := context.Background()

	session, err := client.Register(ctx, auth.Registration{Name: "Ada", Email: "ada@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	user, err := client.Authorize(ctx, session.Token)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if user.ID != session.User.ID || user.Email != "ada@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}

	_, err = client.Authorize(ctx, session.Token+"x")
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Status != http.StatusUnauthorized {
		t.Fatalf("expected remote 401, got %v", err)
	}
	if errors.Is(err, auth.ErrUnavailable) {
		t.Fatalf("a rejected token is not an outage")
	}
}

func TestHandlerMeRequiresBearerToken(t *testing.T) {
	srv := newTestAPI(t, 0)
	resp, err := http.Get(srv.URL + MePath)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestRemoteErrorUserMessage(t *testing.T) {
	cases := []struct {
		err         *RemoteError
		want        string
		unavailable bool
	}{
		{&RemoteError{Status: http.StatusUnauthorized, Message: "Invalid email or password."}, "Invalid email or password.", false},
		{&RemoteError{Status: http.StatusServiceUnavailable, Message: "dial tcp 10.0.0.5:5432: refused"}, "Authentication is currently unavailable.", true},
	}
	for _, tc := range cases {
		if got := tc.err.UserMessage(); got != tc.want {
			t.Fatalf("%d: message %q want %q", tc.err.Status, got, tc.want)
		}
		if got := errors.Is(tc.err, auth.ErrUnavailable); got != tc.unavailable {
			t.Fatalf("%d: unavailable = %v", tc.err.Status, got)
		}
	}
}
