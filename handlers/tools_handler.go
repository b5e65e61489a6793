package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/hue-gateway/middleware"
	"github.com/upb/hue-gateway/tools"
	"github.com/upb/hue-gateway/utils"
	"go.uber.org/zap"
)

const maxArgumentBytes = 64 << 10

// ToolService lists and runs tools
type ToolService interface {
	List() []tools.Descriptor
	Invoke(ctx context.Context, name string, args json.RawMessage) (interface{}, error)
}

// ToolListResponse is the body of GET /tools
type ToolListResponse struct {
	Tools []tools.Descriptor `json:"tools"`
}

// ToolCallResponse is the body of a successful POST /tools/{name}
type ToolCallResponse struct {
	InvocationID string      `json:"invocation_id"`
	Tool         string      `json:"tool"`
	Result       interface{} `json:"result"`
}

// ToolsHandler handles tool listing and invocation
type ToolsHandler struct {
	service ToolService
	logger  *zap.Logger
}

// NewToolsHandler creates a new ToolsHandler
func NewToolsHandler(service ToolService, logger *zap.Logger) *ToolsHandler {
	return &ToolsHandler{
		service: service,
		logger:  logger,
	}
}

// HandleList handles GET /tools
func (h *ToolsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if err := utils.WriteOK(w, ToolListResponse{Tools: h.service.List()}); err != nil {
		h.logger.Error("failed to write tool list", zap.Error(err))
	}
}

// HandleInvoke handles POST /tools/{name}
// Expects RequireAuth to have bound a Principal
func (h *ToolsHandler) HandleInvoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	requestID := middleware.GetRequestIDFromContext(ctx)
	principal := middleware.GetPrincipalFromContext(ctx)

	args, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxArgumentBytes))
	if err != nil {
		h.logger.Warn("failed to read tool arguments",
			zap.String("request_id", requestID),
			zap.Error(err))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = utils.WriteError(w, http.StatusRequestEntityTooLarge, "Tool arguments too large", nil)
			return
		}
		_ = utils.WriteBadRequest(w, "Failed to read tool arguments", nil)
		return
	}
	if len(args) > 0 && !json.Valid(args) {
		_ = utils.WriteBadRequest(w, "Tool arguments must be a JSON object", nil)
		return
	}

	invocationID := uuid.New().String()
	logger := h.logger.With(
		zap.String("request_id", requestID),
		zap.String("invocation_id", invocationID),
		zap.String("tool", name))
	if principal != nil {
		logger = logger.With(zap.String("email", principal.Email), zap.Bool("anonymous", principal.Anonymous))
	}

	result, err := h.service.Invoke(ctx, name, args)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("tool invoked")
	if err := utils.WriteOK(w, ToolCallResponse{
		InvocationID: invocationID,
		Tool:         name,
		Result:       result,
	}); err != nil {
		logger.Error("failed to write tool result", zap.Error(err))
	}
}
