// Package api is the typed HTTP client for the Calendarik backend.
// It owns the wire formats and the error model; everything above it
// (session manager, chat, calendar) works with these types.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to one backend instance. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default 30s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger attaches a logger for request-level debug output.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithHTTPClient replaces the underlying http.Client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the backend at baseURL (scheme://host[:port],
// no /api suffix).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// do issues the request and decodes a JSON response into out (when non-nil).
// 401 maps to ErrUnauthorized, other non-2xx to *APIError with the backend's
// "detail" message when present.
func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api request",
		"method", req.Method, "path", req.URL.Path,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// readDetail extracts the backend's {"detail": "..."} error payload.
func readDetail(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(body))
}

func (c *Client) newJSONRequest(ctx context.Context, method, path, token string, body any) (*http.Request, error) {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s body: %w", path, err)
		}
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// ── Auth endpoints ───────────────────────────────────────────────────────────

// Login exchanges credentials for a token pair. The endpoint expects an
// OAuth2 password form: username is the email.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var pair TokenPair
	if err := c.do(req, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, data RegisterRequest) (*User, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/auth/register", "", data)
	if err != nil {
		return nil, err
	}
	var u User
	if err := c.do(req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Refresh exchanges a refresh token for a fresh token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := map[string]string{"refresh_token": refreshToken}
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/auth/refresh", "", body)
	if err != nil {
		return nil, err
	}
	var pair TokenPair
	if err := c.do(req, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Me fetches the profile of the token's owner.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/api/auth/me", token, nil)
	if err != nil {
		return nil, err
	}
	var u User
	if err := c.do(req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdatePersonality changes the assistant personality on the profile.
func (c *Client) UpdatePersonality(ctx context.Context, token, personality string) (*User, error) {
	body := map[string]string{"personality": personality}
	req, err := c.newJSONRequest(ctx, http.MethodPut, "/api/user/me/personality", token, body)
	if err != nil {
		return nil, err
	}
	var u User
	if err := c.do(req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ── Chat endpoints ───────────────────────────────────────────────────────────

// Chats lists the user's chats (without full histories).
func (c *Client) Chats(ctx context.Context, token string) ([]Chat, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/api/chat/", token, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Chats []Chat `json:"chats"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

// Chat fetches one chat including its message history.
func (c *Client) Chat(ctx context.Context, token string, id int) (*Chat, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, fmt.Sprintf("/api/chat/%d", id), token, nil)
	if err != nil {
		return nil, err
	}
	var ch Chat
	if err := c.do(req, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// RenameChat updates a chat title.
func (c *Client) RenameChat(ctx context.Context, token string, id int, title string) (*Chat, error) {
	body := map[string]string{"title": title}
	req, err := c.newJSONRequest(ctx, http.MethodPut, fmt.Sprintf("/api/chat/%d", id), token, body)
	if err != nil {
		return nil, err
	}
	var ch Chat
	if err := c.do(req, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// DeleteChat removes a chat and its messages.
func (c *Client) DeleteChat(ctx context.Context, token string, id int) error {
	req, err := c.newJSONRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/chat/%d", id), token, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// SendMessage submits a message for AI analysis and returns the reply.
func (c *Client) SendMessage(ctx context.Context, token string, msg SendMessageRequest) (*SendMessageResponse, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/ai/analyze", token, msg)
	if err != nil {
		return nil, err
	}
	var resp SendMessageResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ── Calendar endpoints ───────────────────────────────────────────────────────

// Events lists the user's events, optionally bounded by a start/end window.
func (c *Client) Events(ctx context.Context, token string, start, end *time.Time) ([]Event, error) {
	q := url.Values{}
	if start != nil {
		q.Set("start_date", start.UTC().Format(time.RFC3339))
	}
	if end != nil {
		q.Set("end_date", end.UTC().Format(time.RFC3339))
	}
	path := "/api/calendar/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	req, err := c.newJSONRequest(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}
	var events []Event
	if err := c.do(req, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Event fetches one event by id.
func (c *Client) Event(ctx context.Context, token string, id int) (*Event, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, fmt.Sprintf("/api/calendar/events/%d", id), token, nil)
	if err != nil {
		return nil, err
	}
	var ev Event
	if err := c.do(req, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// CreateEvent adds a new event.
func (c *Client) CreateEvent(ctx context.Context, token string, draft EventDraft) (*Event, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/calendar/events", token, draft)
	if err != nil {
		return nil, err
	}
	var ev Event
	if err := c.do(req, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// UpdateEvent replaces an event's mutable fields.
func (c *Client) UpdateEvent(ctx context.Context, token string, id int, draft EventDraft) (*Event, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPut, fmt.Sprintf("/api/calendar/events/%d", id), token, draft)
	if err != nil {
		return nil, err
	}
	var ev Event
	if err := c.do(req, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, token string, id int) error {
	req, err := c.newJSONRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/calendar/events/%d", id), token, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// ── Speech ───────────────────────────────────────────────────────────────────

// SpeechToken fetches a short-lived token for the speech-recognition service.
func (c *Client) SpeechToken(ctx context.Context) (*SpeechToken, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/api/speech/token", "", nil)
	if err != nil {
		return nil, err
	}
	var st SpeechToken
	if err := c.do(req, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
