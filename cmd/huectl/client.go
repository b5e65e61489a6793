package main

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

	"github.com/google/uuid"
)

type client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type toolDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  []struct {
		Name     string `json:"name"`
		Type     string `json:"type"`
		Required bool   `json:"required"`
	} `json:"parameters"`
}

// apiError is a non-2xx answer from the gateway
type apiError struct {
	Status int
	Body   []byte
}

func (e *apiError) Error() string {
	var payload struct {
		Error   string          `json:"error"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(e.Body, &payload); err == nil && payload.Error != "" {
		msg := payload.Message
		if msg == "" && len(payload.Details) > 0 {
			msg = string(payload.Details)
		}
		return fmt.Sprintf("%d %s: %s", e.Status, payload.Error, msg)
	}
	return fmt.Sprintf("%d: %s", e.Status, strings.TrimSpace(string(e.Body)))
}

func newClient(baseURL, token string, timeout time.Duration) *client {
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *client) request(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apiError{Status: resp.StatusCode, Body: out}
	}
	return out, nil
}

func (c *client) listTools(ctx context.Context) ([]toolDescriptor, error) {
	body, err := c.request(ctx, http.MethodGet, "/tools", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Tools []toolDescriptor `json:"tools"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode tool list: %w", err)
	}
	return resp.Tools, nil
}

func (c *client) callTool(ctx context.Context, name string, args map[string]interface{}) (json.RawMessage, error) {
	if args == nil {
		args = map[string]interface{}{}
	}
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return c.request(ctx, http.MethodPost, "/tools/"+name, payload)
}

func (c *client) readiness(ctx context.Context) (json.RawMessage, error) {
	body, err := c.request(ctx, http.MethodGet, "/readyz", nil)
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable {
		return apiErr.Body, err
	}
	return body, err
}

// parseArgs turns key=value pairs into tool arguments. Values stay strings;
// the gateway accepts strings for every tool parameter.
func parseArgs(pairs []string, raw string) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return nil, fmt.Errorf("--json must be a JSON object: %w", err)
		}
	}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q is not key=value", p)
		}
		args[key] = value
	}
	return args, nil
}
