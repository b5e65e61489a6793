// Package tools holds the lighting tools the gateway exposes and the registry
// that dispatches invocations to them.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/upb/hue-gateway/internal/observability"
	"github.com/upb/hue-gateway/services"
	"go.uber.org/zap"
)

var (
	// ErrToolAlreadyRegistered is returned when trying to register a duplicate tool
	ErrToolAlreadyRegistered = errors.New("tool already registered")
)

// Tool is a named operation callable with JSON arguments
type Tool interface {
	Name() string
	Description() string
	Parameters() []Parameter
	Invoke(ctx context.Context, args json.RawMessage) (interface{}, error)
}

// Parameter describes one tool argument
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Descriptor is the public listing of a tool
type Descriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// Registry manages tool instances
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger *zap.Logger
}

// NewRegistry creates a new tool registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register registers a tool instance
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return errors.New("tool cannot be nil")
	}
	name := tool.Name()
	if name == "" {
		return errors.New("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return ErrToolAlreadyRegistered
	}
	r.tools[name] = tool
	return nil
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, services.NotFound("tool", name)
	}
	return tool, nil
}

// List returns every tool sorted by name
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		params := t.Parameters()
		if params == nil {
			params = []Parameter{}
		}
		out = append(out, Descriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  params,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of registered tools
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}

// Invoke runs the named tool
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	tool, err := r.Get(name)
	if err != nil {
		observability.ToolInvocationsTotal.WithLabelValues("unknown", string(services.ErrorTypeNotFound)).Inc()
		return nil, err
	}

	start := time.Now()
	result, err := tool.Invoke(ctx, args)

	status := "success"
	if err != nil {
		status = string(services.GetErrorType(err))
		if status == "" {
			status = string(services.ErrorTypeInternal)
		}
	}
	observability.ToolInvocationsTotal.WithLabelValues(name, status).Inc()

	fields := []zap.Field{
		zap.String("tool", name),
		zap.String("status", status),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		r.logger.Warn("tool invocation failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	r.logger.Debug("tool invoked", fields...)
	return result, nil
}

// funcTool adapts a function to Tool
type funcTool struct {
	name        string
	description string
	params      []Parameter
	fn          func(ctx context.Context, args json.RawMessage) (interface{}, error)
}

func (t *funcTool) Name() string            { return t.name }
func (t *funcTool) Description() string     { return t.description }
func (t *funcTool) Parameters() []Parameter { return t.params }

func (t *funcTool) Invoke(ctx context.Context, args json.RawMessage) (interface{}, error) {
	return t.fn(ctx, args)
}
