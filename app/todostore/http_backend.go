package todostore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nestodo/app/models"
)

// StatusError is a non-2xx answer the client has no dedicated error for.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

// Error reports the HTTP status and the server message.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// apiClient performs JSON requests against the server API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) apiClient {
	return apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// do sends body as JSON and decodes a 2xx response into out. Error
// responses come back as *StatusError or *ValidationError; callers map the
// statuses that matter to them.
func (c apiClient) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, out); err != nil {
				return resp.StatusCode, fmt.Errorf("decode response: %w", err)
			}
		}
		return resp.StatusCode, nil
	}

	var ae models.ErrorResponse
	_ = json.Unmarshal(raw, &ae)
	if resp.StatusCode == http.StatusBadRequest && len(ae.Error.Fields) > 0 {
		return resp.StatusCode, validationFromFields(ae.Error.Fields)
	}
	msg := ae.Error.Message
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	return resp.StatusCode, &StatusError{Status: resp.StatusCode, Code: ae.Error.Code, Message: msg}
}

// HTTPBackend talks to the server's REST API with a session token.
type HTTPBackend struct {
	api apiClient
}

// NewHTTPBackend returns a backend for the API at baseURL.
func NewHTTPBackend(baseURL, token string) *HTTPBackend {
	return &HTTPBackend{api: newAPIClient(baseURL, token)}
}

func todoErr(status int, err error) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return err
}

// ListTodos handles GET /api/todos.
func (b *HTTPBackend) ListTodos(ctx context.Context, ownerID string) ([]models.Todo, error) {
	var todos []models.Todo
	if status, err := b.api.do(ctx, http.MethodGet, "/api/todos", nil, &todos); err != nil {
		return nil, todoErr(status, err)
	}
	// The server scopes by token; keep only what belongs to ownerID anyway.
	out := make([]models.Todo, 0, len(todos))
	for _, t := range todos {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

type createTodoRequest struct {
	Title    string  `json:"title"`
	ParentID *string `json:"parentId"`
}

// CreateTodo handles POST /api/todos.
func (b *HTTPBackend) CreateTodo(ctx context.Context, ownerID string, parentID *string, title string) (models.Todo, error) {
	var t models.Todo
	status, err := b.api.do(ctx, http.MethodPost, "/api/todos", createTodoRequest{Title: title, ParentID: parentID}, &t)
	if status == http.StatusNotFound {
		return t, ErrUnknownParent
	}
	if err != nil {
		return t, todoErr(status, err)
	}
	return t, nil
}

type updateTodoRequest struct {
	Completed bool `json:"completed"`
}

// UpdateTodo handles PATCH /api/todos/{todoID}.
func (b *HTTPBackend) UpdateTodo(ctx context.Context, ownerID, id string, completed bool) (models.Todo, error) {
	var t models.Todo
	if status, err := b.api.do(ctx, http.MethodPatch, "/api/todos/"+url.PathEscape(id), updateTodoRequest{Completed: completed}, &t); err != nil {
		return t, todoErr(status, err)
	}
	return t, nil
}

// DeleteTodo handles DELETE /api/todos/{todoID}.
func (b *HTTPBackend) DeleteTodo(ctx context.Context, ownerID, id string) error {
	if status, err := b.api.do(ctx, http.MethodDelete, "/api/todos/"+url.PathEscape(id), nil, nil); err != nil {
		return todoErr(status, err)
	}
	return nil
}
