package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Its-donkey/quill/internal/auth"
)

// Client calls a remote auth API. It implements auth.Authenticator and
// auth.Authorizer.
type Client struct {
	baseURL string
	http    *http.Client
}

var (
	_ auth.Authenticator = (*Client)(nil)
	_ auth.Authorizer    = (*Client)(nil)
)

// NewClient returns a Client for baseURL. A nil httpClient gets a 10 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Login posts credentials to the login endpoint.
func (c *Client) Login(ctx context.Context, creds auth.Credentials) (auth.Session, error) {
	return c.post(ctx, LoginPath, creds)
}

// Register posts a registration to the register endpoint.
func (c *Client) Register(ctx context.Context, reg auth.Registration) (auth.Session, error) {
	return c.post(ctx, RegisterPath, reg)
}

// Authorize asks the API which user token belongs to.
func (c *Client) Authorize(ctx context.Context, token string) (auth.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+MePath, nil)
	if err != nil {
		return auth.User{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var reply MeReply
	if err := c.do(ctx, req, &reply); err != nil {
		return auth.User{}, err
	}
	return reply.User, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (auth.Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return auth.Session{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return auth.Session{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var reply Reply
	if err := c.do(ctx, req, &reply); err != nil {
		return auth.Session{}, err
	}
	return auth.Session{User: reply.User, Token: reply.Token, Message: reply.Message}, nil
}

// do sends req and decodes a 200 reply into dst. Other statuses become a
// RemoteError, or ErrUnavailable when the server failed without a message.
func (c *Client) do(ctx context.Context, req *http.Request, dst any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return context.DeadlineExceeded
		}
		return auth.ErrUnavailable
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e ErrorReply
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return &RemoteError{Status: resp.StatusCode, Message: e.Error}
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return auth.ErrUnavailable
		}
		return &RemoteError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// RemoteError carries the error text the API returned.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Unwrap lets a 5xx reply match auth.ErrUnavailable.
func (e *RemoteError) Unwrap() error {
	if e.Status >= http.StatusInternalServerError {
		return auth.ErrUnavailable
	}
	return nil
}

// UserMessage returns the API's text, which the server wrote for visitors.
// A 5xx reply never carries internal details, so it is shown generically.
func (e *RemoteError) UserMessage() string {
	if e.Status >= http.StatusInternalServerError {
		return "Authentication is currently unavailable."
	}
	return e.Message
}
