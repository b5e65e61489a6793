// Package hue is a client for the lighting bridge REST API.
package hue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/upb/hue-gateway/internal/observability"
	"github.com/upb/hue-gateway/services"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// ClientConfig holds configuration for Client
type ClientConfig struct {
	// BaseURL is the bridge root, e.g. http://192.168.1.20
	BaseURL      string
	Username     string
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Logger       *zap.Logger
}

// Client talks to one bridge on behalf of one whitelisted username
type Client struct {
	apiURL string
	http   *retryablehttp.Client
	logger *zap.Logger
}

// NewClient creates a new Client
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = 100 * time.Millisecond
	}
	if cfg.RetryWaitMax <= 0 {
		cfg.RetryWaitMax = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.Logger = leveledLogger{cfg.Logger.Sugar()}
	// hand the last response back so bridge error payloads can be reported
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		apiURL: strings.TrimRight(cfg.BaseURL, "/") + "/api/" + cfg.Username,
		http:   rc,
		logger: cfg.Logger,
	}
}

// Lights returns every light keyed by id
func (c *Client) Lights(ctx context.Context) (map[string]Light, error) {
	var lights map[string]Light
	if err := c.do(ctx, http.MethodGet, "/lights", nil, &lights); err != nil {
		return nil, err
	}
	return lights, nil
}

// Groups returns every group keyed by id
func (c *Client) Groups(ctx context.Context) (map[string]Group, error) {
	var groups map[string]Group
	if err := c.do(ctx, http.MethodGet, "/groups", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// Rooms returns the groups of type Room keyed by id
func (c *Client) Rooms(ctx context.Context) (map[string]Group, error) {
	groups, err := c.Groups(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make(map[string]Group, len(groups))
	for id, g := range groups {
		if g.IsRoom() {
			rooms[id] = g
		}
	}
	return rooms, nil
}

// FindRoom looks a room up by name, ignoring case
func (c *Client) FindRoom(ctx context.Context, name string) (string, Group, error) {
	rooms, err := c.Rooms(ctx)
	if err != nil {
		return "", Group{}, err
	}
	for id, g := range rooms {
		if strings.EqualFold(g.Name, name) {
			return id, g, nil
		}
	}
	return "", Group{}, services.NotFound("room", name)
}

// SetLightState applies state to one light
func (c *Client) SetLightState(ctx context.Context, lightID string, state LightState) ([]Result, error) {
	var results []Result
	if err := c.do(ctx, http.MethodPut, "/lights/"+lightID+"/state", state, &results); err != nil {
		return nil, err
	}
	return results, resultsError(results)
}

// SetGroupAction applies action to every light in a group
func (c *Client) SetGroupAction(ctx context.Context, groupID string, action LightState) ([]Result, error) {
	var results []Result
	if err := c.do(ctx, http.MethodPut, "/groups/"+groupID+"/action", action, &results); err != nil {
		return nil, err
	}
	return results, resultsError(results)
}

// Ping checks that the bridge answers for the configured username
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Lights(ctx)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	start := time.Now()
	err := c.roundTrip(ctx, method, path, body, out)

	outcome := "success"
	if err != nil {
		outcome = string(services.GetErrorType(err))
	}
	observability.BridgeRequestDurationSeconds.WithLabelValues(method, outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		c.logger.Warn("bridge request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out interface{}) error {
	var raw interface{}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return services.WrapInternal("failed to encode bridge request", err)
		}
		raw = bytes.NewReader(b)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.apiURL+path, raw)
	if err != nil {
		return services.WrapInternal("failed to create bridge request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil && resp == nil {
		return services.ErrBridgeUnavailable.Wrap(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return services.NewDomainError(services.ErrorTypeUnavailable, "failed to read bridge response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, path, payload)
	}

	// the bridge reports some failures as a 200 with an error list
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			if apiErr := firstAPIError(payload); apiErr != nil {
				return apiErrorToDomain(apiErr)
			}
			return services.NewDomainError(services.ErrorTypeExternal, "unexpected bridge response", err)
		}
	}
	return nil
}

func statusError(status int, path string, payload []byte) error {
	var cause error = fmt.Errorf("status code %d", status)
	if apiErr := firstAPIError(payload); apiErr != nil {
		cause = apiErr
	}
	switch {
	case status == http.StatusNotFound && strings.HasPrefix(path, "/lights/"):
		return services.ErrLightNotFound.Wrap(cause).WithDetail("path", path)
	case status == http.StatusNotFound:
		return services.NewDomainError(services.ErrorTypeNotFound, "bridge resource not found", cause).
			WithDetail("path", path)
	case status >= 500:
		return services.ErrBridgeUnavailable.Wrap(cause)
	default:
		return services.ErrBridgeError.Wrap(cause).
			WithDetail("status", status)
	}
}

func firstAPIError(payload []byte) *APIError {
	var results []Result
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil
	}
	for _, r := range results {
		if r.Error != nil {
			return r.Error
		}
	}
	return nil
}

func resultsError(results []Result) error {
	for _, r := range results {
		if r.Error != nil {
			return apiErrorToDomain(r.Error)
		}
	}
	return nil
}

func apiErrorToDomain(apiErr *APIError) error {
	errType := services.ErrorTypeExternal
	switch apiErr.Type {
	case ErrorTypeNotAvailable:
		errType = services.ErrorTypeNotFound
	case ErrorTypeInvalidParameter:
		errType = services.ErrorTypeValidation
	}
	return services.NewDomainError(errType, apiErr.Description, apiErr).
		WithDetail("bridge_error_type", apiErr.Type).
		WithDetail("address", apiErr.Address)
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
