// Package client: HTTP-клиент REST API todo-chat.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"todo-chat/internal/models"
)

// APIError: ответ бэкенда со статусом не 2xx
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// IsUnauthorized: токен отсутствует, просрочен или неверен
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Detail возвращает текст ошибки бэкенда, если он есть.
func Detail(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail, true
	}
	return "", false
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// чат с LLM бывает долгим
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

type LoginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type VerifyResult struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Valid    bool   `json:"valid"`
}

func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var res LoginResult
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/login", "", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Signup(ctx context.Context, username, email, password string) error {
	body := map[string]string{"username": username, "email": email, "password": password}
	return c.do(ctx, http.MethodPost, "/api/signup", "", body, nil)
}

func (c *Client) Verify(ctx context.Context, token string) (*VerifyResult, error) {
	var res VerifyResult
	if err := c.do(ctx, http.MethodGet, "/api/verify", token, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Tasks(ctx context.Context, token string) ([]models.Task, error) {
	var res struct {
		Tasks []models.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tasks", token, nil, &res); err != nil {
		return nil, err
	}
	if res.Tasks == nil {
		res.Tasks = []models.Task{}
	}
	return res.Tasks, nil
}

func (c *Client) Chat(ctx context.Context, token, message string) (string, error) {
	var res struct {
		Response string `json:"response"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat", token, map[string]string{"message": message}, &res); err != nil {
		return "", err
	}
	return res.Response, nil
}

func (c *Client) UpdateStatus(ctx context.Context, token, id string, status models.Status) error {
	return c.do(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id), token, map[string]models.Status{"status": status}, nil)
}

func (c *Client) Delete(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), token, nil, nil)
}

func (c *Client) ClearChat(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/chat/clear", token, nil, nil)
}

func (c *Client) History(ctx context.Context, token string) ([]models.ChatMessage, error) {
	var res struct {
		History []models.ChatMessage `json:"history"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/chat/history", token, nil, &res); err != nil {
		return nil, err
	}
	return res.History, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e struct {
			Detail string `json:"detail"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil {
			apiErr.Detail = e.Detail
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
