// Package api is the HTTP client of the messenger backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zhouzirui/z-messenger/internal/model/auth"
	"github.com/zhouzirui/z-messenger/internal/model/chat"
)

// ErrUnauthorized matches any *Error with a 401 status.
var ErrUnauthorized = errors.New("unauthorized")

// Error is a non-2xx response from the backend.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Client talks to one backend origin.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each request. It sets the timeout on a copy, so a
// shared client passed to WithHTTPClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// New returns a client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Origin returns the base URL requests are sent to.
func (c *Client) Origin() string {
	return c.baseURL
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, creds auth.Credentials) error {
	return c.do(ctx, http.MethodPost, "/auth/register", "", creds, nil)
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, creds auth.Credentials) (auth.TokenResponse, error) {
	var out auth.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", creds, &out); err != nil {
		return auth.TokenResponse{}, err
	}
	if out.AccessToken == "" {
		return auth.TokenResponse{}, errors.New("login response has no access_token")
	}
	return out, nil
}

// Me returns the user id the token was issued for.
func (c *Client) Me(ctx context.Context, token string) (int64, error) {
	var out struct {
		UserID int64 `json:"user_id"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &out); err != nil {
		return 0, err
	}
	return out.UserID, nil
}

// ListChats fetches the caller's chat list.
func (c *Client) ListChats(ctx context.Context, token string) ([]chat.Summary, error) {
	var out []chat.Summary
	if err := c.do(ctx, http.MethodGet, "/chats", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateChat creates a chat owned by the caller.
func (c *Client) CreateChat(ctx context.Context, token, name string, isGroup bool) (chat.Chat, error) {
	body := map[string]any{"name": name, "is_group": isGroup}
	var out chat.Chat
	err := c.do(ctx, http.MethodPost, "/chats/create", token, body, &out)
	return out, err
}

// UpdateChat renames a chat or changes its avatar.
func (c *Client) UpdateChat(ctx context.Context, token string, update chat.Update) (chat.Chat, error) {
	var out chat.Chat
	err := c.do(ctx, http.MethodPost, "/chats/update", token, update, &out)
	return out, err
}

// SendMessage posts content to a chat.
func (c *Client) SendMessage(ctx context.Context, token string, chatID int64, content string) (chat.Message, error) {
	body := map[string]any{"chat_id": chatID, "content": content}
	var out chat.Message
	err := c.do(ctx, http.MethodPost, "/messages/send", token, body, &out)
	return out, err
}

// EditMessage replaces a message's content.
func (c *Client) EditMessage(ctx context.Context, token string, messageID int64, content string) (chat.Message, error) {
	q := url.Values{}
	q.Set("message_id", strconv.FormatInt(messageID, 10))
	q.Set("new_content", content)
	var out chat.Message
	err := c.do(ctx, http.MethodPut, "/messages/edit?"+q.Encode(), token, nil, &out)
	return out, err
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, token string, messageID int64) error {
	q := url.Values{}
	q.Set("message_id", strconv.FormatInt(messageID, 10))
	return c.do(ctx, http.MethodDelete, "/messages/delete?"+q.Encode(), token, nil, nil)
}

// ListMessages fetches a chat's history.
func (c *Client) ListMessages(ctx context.Context, token string, chatID int64) ([]chat.Message, error) {
	var out []chat.Message
	path := "/messages/receiving/" + strconv.FormatInt(chatID, 10)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload sends r as a multipart file and returns its public URL.
func (c *Client) Upload(ctx context.Context, token, filename string, r io.Reader) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/files/upload", token, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out struct {
		FileURL string `json:"file_url"`
	}
	if err := c.send(req, &out); err != nil {
		return "", err
	}
	return out.FileURL, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// decodeError reads the `detail` field of an error body. Non-string details
// (validation error lists) are returned as raw JSON.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	detail := ""
	if err := json.Unmarshal(data, &body); err == nil && len(body.Detail) > 0 {
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil {
			detail = s
		} else {
			detail = string(body.Detail)
		}
	}
	if detail == "" {
		detail = strings.TrimSpace(string(data))
	}
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}
	return &Error{Status: resp.StatusCode, Detail: detail}
}
