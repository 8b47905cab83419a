package handler

import (
	"context"
	"net/http"
	"strconv"

	"intent-orchestrator/internal/domain/conversation"
	"intent-orchestrator/internal/domain/tool"
	"intent-orchestrator/internal/usecase/orchestrator"
	appErrors "intent-orchestrator/pkg/errors"
	"intent-orchestrator/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Orchestrator is the chat, tool and session surface. *orchestrator.Service
// satisfies it.
type Orchestrator interface {
	Handle(ctx context.Context, req *orchestrator.ChatRequest) (*orchestrator.ChatResponse, error)
	ListTools() []tool.Info
	CallTool(ctx context.Context, req *orchestrator.CallToolRequest) (any, error)
	History(ctx context.Context, sessionID string, limit int) ([]conversation.Message, error)
	Clear(ctx context.Context, sessionID string) error
	Sessions(ctx context.Context) ([]conversation.SessionInfo, error)
	Stats(ctx context.Context, sessionID string) (*conversation.Stats, error)
}

type ChatHandler struct {
	service Orchestrator
}

func NewChatHandler(service Orchestrator) *ChatHandler {
	return &ChatHandler{service: service}
}

func (h *ChatHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/chat", h.Chat)
	router.GET("/tools", h.ListTools)

	sessions := router.Group("/sessions")
	{
		sessions.GET("", h.ListSessions)
		sessions.GET("/:id/messages", h.GetMessages)
		sessions.DELETE("/:id/messages", h.ClearMessages)
		sessions.GET("/:id/stats", h.GetStats)
	}
}

// RegisterOperatorRoutes mounts direct tool calls, which skip the assistant.
func (h *ChatHandler) RegisterOperatorRoutes(router *gin.RouterGroup) {
	router.POST("/tools/:name/:operation", h.CallTool)
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req orchestrator.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithCode(c, http.StatusBadRequest, appErrors.CodeInvalidArgument, "Invalid request body")
		return
	}

	resp, err := h.service.Handle(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Message processed", resp)
}

func (h *ChatHandler) ListTools(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Tools retrieved successfully", h.service.ListTools())
}

func (h *ChatHandler) CallTool(c *gin.Context) {
	params := map[string]any{}
	if err := bindOptionalJSON(c, &params); err != nil {
		utils.ErrorResponseWithCode(c, http.StatusBadRequest, appErrors.CodeInvalidArgument, "Invalid request body")
		return
	}

	result, err := h.service.CallTool(c.Request.Context(), &orchestrator.CallToolRequest{
		Tool:      c.Param("name"),
		Operation: c.Param("operation"),
		Params:    params,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Tool call completed", result)
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	sessions, err := h.service.Sessions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Sessions retrieved successfully", sessions)
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.ErrorResponseWithCode(c, http.StatusBadRequest, appErrors.CodeInvalidArgument, "limit must be an integer")
			return
		}
		limit = parsed
	}

	messages, err := h.service.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Messages retrieved successfully", messages)
}

func (h *ChatHandler) ClearMessages(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Session cleared", nil)
}

func (h *ChatHandler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Session stats retrieved successfully", stats)
}
